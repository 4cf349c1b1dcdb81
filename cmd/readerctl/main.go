// Package main provides readerctl, a command-line client for the reader library.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"page-reader/internal/config"
	"page-reader/pkg/logger"
)

// appName names the per-user data directory.
const appName = "page-reader"

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	databasePath string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "readerctl",
		Short:         "Manage the read-later library and its highlights",
		Long:          "readerctl saves pages, highlights passages, renders stored highlights onto HTML and moves the library in and out of JSON backups.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.databasePath, "db", "", "SQLite database path (overrides DATABASE_PATH, default under the XDG data directory)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")

	cmd.AddCommand(
		newSaveCmd(opts),
		newListCmd(opts),
		newHighlightCmd(opts),
		newAnnotateCmd(opts),
		newNotesCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
	)
	return cmd
}

// openContainer wires the application with logs sent to stderr so command
// output on stdout stays machine readable.
func openContainer(cmd *cobra.Command, opts *rootOptions) (*config.Container, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	switch {
	case opts.databasePath != "":
		cfg.StoreDriver = config.DriverSQLite
		cfg.DatabasePath = opts.databasePath
	case cfg.GetStoreDriver() == config.DriverSQLite && cfg.GetDatabasePath() == config.DefaultDatabasePath:
		if cfg.DatabasePath, err = dataFile("reader.db"); err != nil {
			return nil, err
		}
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	c, err := config.NewContainerWithConfig(cfg, logger.NewLoggerWithWriter(cfg.GetLogLevel(), cmd.ErrOrStderr()))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return c, nil
}

// dataFile returns name inside the user's data directory, creating the directory.
func dataFile(name string) (string, error) {
	path, err := xdg.DataFile(filepath.Join(appName, name))
	if err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return path, nil
}

// readInput reads path, or stdin when path is "-" or empty.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}

// writeOutput writes data to path, or stdout when path is "-" or empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
