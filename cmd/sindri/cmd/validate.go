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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pacphi/sindri/internal/display"
)

var validateCmd = &cobra.Command{
	Use:   "validate <extension>",
	Short: "Validate a single extension manifest and its dependency closure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := setupEngine()
		if err != nil {
			return err
		}
		if err := eng.ValidateExtension(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
		return nil
	},
}

var validateAllCmd = &cobra.Command{
	Use:   "validate-all",
	Short: "Validate every loaded extension's manifest and dependency closure",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := setupEngine()
		if err != nil {
			return err
		}
		results := eng.ValidateAll()

		for _, loadErr := range eng.LoadErrors() {
			fmt.Fprintf(cmd.OutOrStdout(), "load error: %v\n", loadErr)
		}

		names := display.SortedKeys(results)
		rows := make([]display.Row, 0, len(names))
		for _, name := range names {
			rows = append(rows, display.Row{name, results[name].Error()})
		}
		display.Table(cmd.OutOrStdout(), display.Row{"EXTENSION", "ERROR"}, rows)

		if len(results) > 0 {
			return fmt.Errorf("%d extension(s) failed validation", len(results))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(validateAllCmd)
}
