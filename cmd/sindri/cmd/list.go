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
	"sort"

	"github.com/spf13/cobra"

	"github.com/pacphi/sindri/internal/display"
)

var listCapability string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known extensions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := setupEngine()
		if err != nil {
			return err
		}
		names := eng.List(listCapability)
		if listCapability == "" {
			sort.Strings(names)
		}

		rows := make([]display.Row, 0, len(names))
		for _, name := range names {
			ext, err := eng.Info(name)
			if err != nil {
				rows = append(rows, display.Row{name, "", ""})
				continue
			}
			rows = append(rows, display.Row{name, ext.Metadata.Version, display.TitleCase(string(ext.Metadata.Category))})
		}
		display.Table(cmd.OutOrStdout(), display.Row{"EXTENSION", "VERSION", "CATEGORY"}, rows)
		return nil
	},
}

var listProfilesCmd = &cobra.Command{
	Use:   "list-profiles",
	Short: "List known profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := setupEngine()
		if err != nil {
			return err
		}
		profiles, err := eng.ListProfiles()
		if err != nil {
			return err
		}

		rows := make([]display.Row, 0, len(profiles))
		for _, p := range profiles {
			rows = append(rows, display.Row{p.Name, joinNames(p.Extensions)})
		}
		display.Table(cmd.OutOrStdout(), display.Row{"PROFILE", "EXTENSIONS"}, rows)
		return nil
	},
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

func init() {
	listCmd.Flags().StringVar(&listCapability, "capability", "", "only list extensions declaring this capability (project-init, auth, hooks, mcp, collision-handling, project-context)")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(listProfilesCmd)
}
