/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/sefer/internal/reference"
	"github.com/valpere/sefer/internal/sefaria"
)

var fetchJSON bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <reference>",
	Short: "Print the source passages of a chapter or section",
	Long: `Fetch source text from Sefaria without translating it.

Example:
  sefer fetch Pardes_Rimmonim.6.3
  sefer fetch Pardes_Rimmonim.6 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		client := newClient()

		ref, err := parseReference(ctx, client, args[0])
		if err != nil {
			return err
		}

		var chapters [][]string
		if ref.Level() == reference.LevelSection {
			chapters, err = client.FetchSection(ctx, ref)
		} else {
			var ch reference.Chapter
			if ch, err = reference.AsChapter(ref); err == nil {
				var passages []string
				passages, err = client.FetchChapter(ctx, ch)
				chapters = [][]string{passages}
			}
		}
		if err != nil {
			return err
		}

		if fetchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(chapters)
		}

		for i, passages := range chapters {
			if len(chapters) > 1 {
				fmt.Printf("== %s %d ==\n\n", ref.Labels.Chapter, i+1)
			}
			for j, p := range passages {
				if ref.Passage > 0 && j+1 != ref.Passage {
					continue
				}
				fmt.Printf("[%d] %s\n\n", j+1, sefaria.CleanText(p))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "Print passages as JSON")
}
