package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arumata/nautback/internal/app"
	"github.com/arumata/nautback/internal/usecase"
)

type depsFactoryFunc func(*slog.Logger) *usecase.Dependencies

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	verbose bool
	quiet   bool
}

func main() {
	os.Exit(runMain())
}

func runMain() int {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		syscall.SIGHUP,
	)
	defer stop()

	cmd, exitCode := newRootCmd(app.NewDefaultDependencies)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsageError
	}
	return *exitCode
}

func newRootCmd(depsFactory depsFactoryFunc) (*cobra.Command, *int) {
	exitCode := 0
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "nautback",
		Short:         "Timestamped backups of files and folders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&opts.quiet, "quiet", false, "disable desktop notifications")

	cmd.AddCommand(newBackupCmd(opts, depsFactory, &exitCode))
	cmd.AddCommand(newBackupToCmd(opts, depsFactory, &exitCode))
	cmd.AddCommand(newBackupAsCmd(opts, depsFactory, &exitCode))
	cmd.AddCommand(newRestoreCmd(opts, depsFactory, &exitCode))
	cmd.AddCommand(newCompareCmd(opts, depsFactory, &exitCode))
	cmd.AddCommand(newHistoryCmd(opts, depsFactory, &exitCode))
	cmd.AddCommand(newStatsCmd(opts, depsFactory, &exitCode))
	cmd.AddCommand(newSettingsCmd(opts, depsFactory, &exitCode))
	cmd.AddCommand(newStatusCmd(opts, depsFactory, &exitCode))
	cmd.AddCommand(newInitCmd(opts, depsFactory, &exitCode))
	cmd.AddCommand(newVersionCmd())

	return cmd, &exitCode
}
