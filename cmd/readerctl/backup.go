package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the library to a JSON backup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openContainer(cmd, opts)
			if err != nil {
				return err
			}
			defer c.Close()

			b, err := c.BackupService.Export(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to export library: %w", err)
			}
			data, err := json.MarshalIndent(b, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			return writeOutput(cmd, out, append(data, '\n'))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Path to the backup file (default stdout)")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the library with the contents of a JSON backup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readInput(cmd, in)
			if err != nil {
				return err
			}

			c, err := openContainer(cmd, opts)
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := c.BackupService.Import(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("failed to import backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d articles and %d highlights\n", result.Articles, result.Highlights)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "Path to the backup file (- for stdin)")
	return cmd
}
