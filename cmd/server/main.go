// Command tablebook runs the restaurant table reservation API and its
// maintenance tools.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "tablebook",
	Short: "tablebook serves restaurant table reservations",
	Long: `tablebook keeps a conflict-free ledger of restaurant table bookings
behind a JSON API.

Configuration comes from environment variables, optionally loaded from a
.env file first (see --env-file).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Variables already set in the environment win over the file.
		if err := godotenv.Load(envFile); err != nil {
			if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
				return nil
			}
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
