package main

import (
	"github.com/spf13/cobra"

	"github.com/arumata/nautback/internal/usecase"
)

func newInitCmd(opts *rootOptions, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	var (
		backupRoot string
		force      bool
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration and create the backup folder",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			logger := setupLogger(opts.verbose)
			deps := depsFactory(logger)
			homeDir, err := resolveHomeDir()
			if err != nil {
				handleCmdError(exitCode, err)
				return
			}
			initOpts := usecase.InitOptions{
				BackupRoot: backupRoot,
				Force:      force,
				DryRun:     dryRun,
				HomeDir:    homeDir,
				ConfigDir:  configDirPath(homeDir),
			}
			handleCmdError(exitCode, usecase.Init(cmd.Context(), initOpts, deps, logger))
		},
	}

	cmd.Flags().StringVar(&backupRoot, "backup-root", "", "backup folder (default: ~/Backups)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config (the old one is kept as .bak)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan changes without writing to disk")

	_ = cmd.RegisterFlagCompletionFunc("backup-root",
		func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveFilterDirs
		},
	)

	return cmd
}
