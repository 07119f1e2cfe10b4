package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/arumata/nautback/internal/usecase"
)

func newBackupCmd(opts *rootOptions, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   "backup PATH...",
		Short: "Back up files and folders next to themselves",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			withSession(ctx, opts, depsFactory, exitCode, func(s *session) error {
				return printBatch(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), s.engine.QuickBackup(ctx, args))
			})
		},
	}
}

func newBackupToCmd(opts *rootOptions, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "backup-to PATH...",
		Short: "Back up files and folders into the backup folder",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			withSession(ctx, opts, depsFactory, exitCode, func(s *session) error {
				return printBatch(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), s.engine.BackupTo(ctx, args, dest))
			})
		},
	}
	cmd.Flags().StringVar(&dest, "dest", "", "destination directory (default: configured backup folder)")
	_ = cmd.RegisterFlagCompletionFunc("dest",
		func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveFilterDirs
		},
	)
	return cmd
}

func newBackupAsCmd(opts *rootOptions, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   "backup-as SOURCE DEST",
		Short: "Back up one file or folder to an exact path",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			withSession(ctx, opts, depsFactory, exitCode, func(s *session) error {
				return printBatch(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), s.engine.BackupAs(ctx, args[0], args[1]))
			})
		},
	}
}

// printBatch waits for task and prints one line per item, failed items
// included. The first item error is returned for the exit code.
func printBatch(ctx context.Context, stdout, stderr io.Writer, task *usecase.Task[usecase.BatchResult]) error {
	if task.Async() {
		_, _ = fmt.Fprintln(stderr, "Backup in progress...")
	}
	res, err := task.Wait(ctx)
	if err != nil && len(res.Items) == 0 {
		return err
	}
	for _, it := range res.Items {
		if it.Err != nil {
			_, _ = fmt.Fprintf(stderr, "Failed to backup %s: %s\n", it.Source, usecase.UserMessage(it.Err))
			continue
		}
		_, _ = fmt.Fprintf(stdout, "%s -> %s (%s)\n", it.Source, it.Destination, humanize.Bytes(uint64(max(it.Bytes, 0))))
		for _, removed := range it.Removed {
			_, _ = fmt.Fprintf(stdout, "  removed old backup %s\n", removed)
		}
	}
	return res.Err()
}
