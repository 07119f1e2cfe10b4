package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arumata/nautback/internal/usecase"
)

func newHistoryCmd(opts *rootOptions, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   "history PATH",
		Short: "List backups of a file or folder, newest first",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			withSession(ctx, opts, depsFactory, exitCode, func(s *session) error {
				recs, err := s.engine.History(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), usecase.FormatHistory(args[0], recs, s.useColor))
				return err
			})
		},
	}
}

func newStatsCmd(opts *rootOptions, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show lifetime backup statistics",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			withSession(cmd.Context(), opts, depsFactory, exitCode, func(s *session) error {
				_, err := fmt.Fprint(cmd.OutOrStdout(), usecase.FormatStats(s.engine.Stats()))
				return err
			})
		},
	}
}
