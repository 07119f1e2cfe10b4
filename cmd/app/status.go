package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arumata/nautback/internal/usecase"
)

func newStatusCmd(opts *rootOptions, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, statistics and backups of a source",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			withSession(ctx, opts, depsFactory, exitCode, func(s *session) error {
				report, err := s.engine.Status(ctx, usecase.StatusOptions{Source: source})
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), usecase.FormatStatus(report, s.useColor))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "also summarize the backups of this path")

	return cmd
}
