package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docfield",
	Short: "docfield evaluates Word field codes",
	Long: `docfield evaluates the field codes of Word documents (MERGEFIELD, IF, REF, SEQ, =, ...)
and renders the documents with freshly computed or cached field results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (default ./docfield.yaml when present)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before configuration")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error, off)")
}

// loadEnvFile loads the .env file. A missing default file is not an error.
func loadEnvFile(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("env-file")
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}
