package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arumata/nautback/internal/usecase"
)

func newSettingsCmd(opts *rootOptions, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the backup folder and auto-cleanup",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print current settings",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			withSession(cmd.Context(), opts, depsFactory, exitCode, func(s *session) error {
				cur := s.engine.Settings()
				retention := "disabled (keep all)"
				if !cur.Retention.Unlimited() {
					retention = "keep last " + cur.Retention.String()
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Backup folder: %s\nAuto-cleanup: %s\n",
					usecase.ContractHomeDirPublic(cur.BackupRoot, s.homeDir), retention)
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "retention N|unlimited",
		Short: "Keep only the newest N backups of each file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			n, err := parseRetention(args[0])
			if err != nil {
				handleCmdError(exitCode, err)
				return
			}
			withSession(ctx, opts, depsFactory, exitCode, func(s *session) error {
				if err := s.engine.SetRetention(ctx, n); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Auto-cleanup: %s\n", s.engine.Settings().Retention)
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "root PATH",
		Short: "Set the backup folder used by backup-to",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			withSession(ctx, opts, depsFactory, exitCode, func(s *session) error {
				if err := s.engine.SetBackupRoot(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Backup folder: %s\n", s.engine.Settings().BackupRoot)
				return err
			})
		},
	})
	return cmd
}

// parseRetention accepts a non-negative count or "unlimited" (0).
func parseRetention(arg string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "unlimited", "off", "disabled":
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 0 {
		return 0, usecase.InvalidArgument.New("retention must be a number or 'unlimited', got %q", arg)
	}
	return n, nil
}
