// Copyright (c) 2024 santosr2
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pacphi/sindri/internal/display"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show installed extensions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := setupEngine()
		if err != nil {
			return err
		}
		installed, err := eng.Status()
		if err != nil {
			return err
		}

		rows := make([]display.Row, 0, len(installed))
		for _, inst := range installed {
			rows = append(rows, display.Row{inst.Name, inst.Version, inst.InstalledAt.Format(time.RFC3339)})
		}
		display.Table(cmd.OutOrStdout(), display.Row{"EXTENSION", "VERSION", "INSTALLED"}, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
