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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/sefer/internal/output"
)

var (
	renderFormat string
	renderOutput string
)

var renderCmd = &cobra.Command{
	Use:   "render <chapter.json>",
	Short: "Render a saved chapter as HTML or text",
	Long: `Render a translated chapter saved as JSON into another format.
The result is written next to the JSON file unless --output is given;
use --output - for stdout.

Example:
  sefer render saved_translations/pardes_rimmonim/section_006/pardes_rimmonim_006_003.json --to txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := output.ParseFormat(renderFormat)
		if err != nil {
			return err
		}
		doc, err := output.ReadChapter(args[0])
		if err != nil {
			return err
		}
		data, err := output.Render(doc, f)
		if err != nil {
			return err
		}

		switch renderOutput {
		case "-":
			_, err = os.Stdout.Write(data)
			return err
		case "":
			renderOutput = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "." + string(f)
		}
		if renderOutput == args[0] {
			return fmt.Errorf("input file and output file cannot be the same")
		}
		if err := os.WriteFile(renderOutput, data, 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Printf("Rendered: %s\n", renderOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderFormat, "to", "t", "html", "Target format: json, html, txt, md")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output file")
}
