package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvflow/internal/logging"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lvflow",
		Short:         "Phase-equilibrium flashes and recycle flowsheet simulation",
		Long:          `lvflow converges process flowsheets with recycle loops and solves bubble, dew and flash problems for ideal and activity-model liquids.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	root.AddCommand(
		newSimulateCmd(),
		newFlashCmd(),
		newPointCmd("bubble"),
		newPointCmd("dew"),
		newVersionCmd(),
	)

	return root
}

// commandLogger writes to the command's stderr at the --log-level level.
func commandLogger(cmd *cobra.Command) (*slog.Logger, error) {
	s, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(s)
	if err != nil {
		return nil, err
	}

	return logging.NewWriter(cmd.ErrOrStderr(), level), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lvflow version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("lvflow version %s\n", version)
		},
	}
}
