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
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	metaAuthors string
	metaPrint   bool
)

var metaCmd = &cobra.Command{
	Use:   "meta <title>",
	Short: "Save the Sefaria index metadata of a text",
	Long: `Fetch a text's index from Sefaria and save its metadata next to the
translated chapters.

Example:
  sefer meta Pardes_Rimmonim --authors "Moses ben Jacob Cordovero"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := newClient().FetchIndex(context.Background(), args[0])
		if err != nil {
			return err
		}
		meta := idx.Meta(strings.ReplaceAll(args[0], " ", "_"), metaAuthors)

		if metaPrint {
			fmt.Printf("Title:      %s\n", meta.Title)
			fmt.Printf("Categories: %s\n", strings.Join(meta.Categories, " / "))
			fmt.Printf("Levels:     %s, %s, %s\n", meta.Labels.Section, meta.Labels.Chapter, meta.Labels.Passage)
			if meta.Description != "" {
				fmt.Printf("\n%s\n", meta.Description)
			}
			return nil
		}

		path, err := newWriter().WriteMeta(meta)
		if err != nil {
			return err
		}
		fmt.Printf("Saved metadata: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(metaCmd)
	metaCmd.Flags().StringVar(&metaAuthors, "authors", "", "Author display names")
	metaCmd.Flags().BoolVar(&metaPrint, "print", false, "Print a summary instead of saving")
	metaCmd.Flags().StringP("output-dir", "o", "saved_translations", "Directory for translated texts")
}
