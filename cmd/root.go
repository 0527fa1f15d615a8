// Package cmd contains the command line entrypoints
package cmd

import (
	"bitwise74/account-api/config"
	"bitwise74/account-api/db"
	"bitwise74/account-api/internal"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "account-api",
	Short:         "User account lifecycle service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Setup(cmd.Flags()); err != nil {
			return err
		}

		return config.SetupLogger()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to the config file (default ./config.toml)")

	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd)
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Println(err)
	}

	return err
}

func setup() (*internal.Deps, error) {
	gdb, err := db.New()
	if err != nil {
		return nil, err
	}

	return internal.NewDeps(gdb), nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(*cobra.Command, []string) error {
		// db.New migrates on open
		d, err := setup()
		if err != nil {
			return err
		}
		defer d.Close()

		zap.L().Info("Database migrated")
		return nil
	},
}
