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
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/sefer/internal/store"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Manage chapter translation checkpoints",
	Long:  `List, inspect, and delete the per-chapter progress records used to resume translations.`,
}

var checkpointListStatus string

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		cps, err := db.ListCheckpoints(context.Background(), checkpointListStatus)
		if err != nil {
			return fmt.Errorf("failed to list checkpoints: %w", err)
		}

		if len(cps) == 0 {
			fmt.Println("No checkpoints.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCHAPTER\tPROVIDER\tSTATUS\tPROGRESS\tUPDATED")
		for _, cp := range cps {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
				cp.ID, cp.Ref, cp.Provider, cp.Status, cp.Completed, cp.Total,
				cp.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the passages of a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		cp, err := db.GetCheckpoint(ctx, args[0])
		if err != nil {
			return err
		}
		snap, err := db.LoadSnapshot(ctx, cp.ID)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s, %s) %d/%d passages\n\n", cp.Ref, cp.Provider, cp.Status, len(snap.Translations), len(snap.Passages))
		for i, p := range snap.Passages {
			fmt.Printf("[%d] %s\n", i+1, p)
			if i < len(snap.Translations) {
				fmt.Printf("    %s\n", snap.Translations[i])
			}
			fmt.Println()
		}
		return nil
	},
}

var checkpointDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a checkpoint by ID",
	Long: `Delete a checkpoint so the chapter is fetched and translated from the
first passage on the next run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteCheckpoint(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete checkpoint: %w", err)
		}
		fmt.Printf("Deleted checkpoint: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkpointCmd)

	checkpointCmd.PersistentFlags().String("db", "", "Checkpoint database path")
	checkpointListCmd.Flags().StringVar(&checkpointListStatus, "status", "",
		fmt.Sprintf("Filter by status (%s, %s)", store.StatusRunning, store.StatusCompleted))

	checkpointCmd.AddCommand(checkpointListCmd)
	checkpointCmd.AddCommand(checkpointShowCmd)
	checkpointCmd.AddCommand(checkpointDeleteCmd)
}
