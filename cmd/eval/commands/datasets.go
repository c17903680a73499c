package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/goldeneval"
)

var (
	importKind        string
	importForce       bool
	importDescription string
	datasetsFormat    string
	showRecords       int
)

// NewDatasetsCmd creates the datasets command and its subcommands.
func NewDatasetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "Manage the local dataset library",
		Long: `Import, inspect and delete datasets stored in the local SQLite library.

Examples:
  goldeneval datasets import geography golden.xlsx
  goldeneval datasets import run-42 answers.csv --kind actual
  goldeneval datasets list
  goldeneval datasets show geography --records 5
  goldeneval datasets delete run-42`,
	}

	cmd.PersistentFlags().StringVar(&datasetsFormat, "format", "text", "Output format: text or json")

	cmd.AddCommand(newDatasetsImportCmd())
	cmd.AddCommand(newDatasetsListCmd())
	cmd.AddCommand(newDatasetsShowCmd())
	cmd.AddCommand(newDatasetsDeleteCmd())

	return cmd
}

func newDatasetsImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import NAME FILE",
		Short: "Load a dataset file into the library",
		Long: `Load FILE and store its records under NAME.

Re-importing an unchanged file is a no-op unless --force is given. Changing
the kind of an existing dataset also requires --force.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			var opts []goldeneval.ImportOption
			if importForce {
				opts = append(opts, goldeneval.WithForceReimport())
			}
			if importDescription != "" {
				opts = append(opts, goldeneval.WithDescription(importDescription))
			}

			ds, err := e.ImportDataset(cmd.Context(), args[0], importKind, args[1], opts...)
			if err != nil {
				return err
			}
			if datasetsFormat == "json" {
				return printJSON(cmd, ds)
			}

			if ds.Unchanged {
				fmt.Fprintf(cmd.OutOrStdout(), "%s unchanged (%d records)\n", ds.Name, ds.RecordCount)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s dataset %s: %d records from %s\n",
				ds.Kind, ds.Name, ds.RecordCount, ds.Source)
			return nil
		},
	}

	cmd.Flags().StringVar(&importKind, "kind", "golden", "Dataset kind: golden or actual")
	cmd.Flags().BoolVar(&importForce, "force", false, "Re-import even if the file is unchanged")
	cmd.Flags().StringVar(&importDescription, "description", "", "Free-text description")

	return cmd
}

func newDatasetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			list, err := e.ListDatasets(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing datasets: %w", err)
			}
			if datasetsFormat == "json" {
				return printJSON(cmd, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No datasets found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "NAME\tKIND\tRECORDS\tUPDATED\tSOURCE\n")
			for _, ds := range list {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					ds.Name, ds.Kind, ds.RecordCount, ds.UpdatedAt, truncate(ds.Source, 50))
			}
			w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d dataset(s)\n", len(list))
			return nil
		},
	}
}

func newDatasetsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Show a stored dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			ds, err := e.GetDataset(ctx, args[0])
			if err != nil {
				return err
			}
			records, err := e.DatasetRecords(ctx, args[0])
			if err != nil {
				return err
			}
			if showRecords >= 0 && showRecords < len(records) {
				records = records[:showRecords]
			}

			if datasetsFormat == "json" {
				return printJSON(cmd, map[string]any{"dataset": ds, "records": records})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:        %s\n", ds.Name)
			fmt.Fprintf(out, "Kind:        %s\n", ds.Kind)
			fmt.Fprintf(out, "Records:     %d\n", ds.RecordCount)
			fmt.Fprintf(out, "Source:      %s\n", ds.Source)
			if ds.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", ds.Description)
			}
			fmt.Fprintf(out, "Hash:        %s\n", ds.ContentHash)
			fmt.Fprintf(out, "Created:     %s\n", ds.CreatedAt)
			fmt.Fprintf(out, "Updated:     %s\n", ds.UpdatedAt)

			for i, r := range records {
				answer := r.ExpectedAnswer()
				if answer == "" {
					answer = r.ActualAnswer()
				}
				fmt.Fprintf(out, "\n%d. %s\n   %s\n", i+1, truncate(r.Question(), 100), truncate(answer, 100))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&showRecords, "records", 10, "Number of records to print (-1 for all)")

	return cmd
}

func newDatasetsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.DeleteDataset(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
	return nil
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
