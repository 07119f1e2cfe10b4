package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arumata/nautback/internal/usecase"
)

func newCompareCmd(opts *rootOptions, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	var original string
	cmd := &cobra.Command{
		Use:   "compare BACKUP",
		Short: "Show differences between a backup and its original",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			withSession(ctx, opts, depsFactory, exitCode, func(s *session) error {
				cmp, err := s.engine.Compare(ctx, args[0], original)
				if err != nil {
					return err
				}
				msg := cmp.Message()
				if cmp.Status == usecase.ComparisonDiffer && !cmp.Binary {
					_, err = fmt.Fprint(cmd.OutOrStdout(), msg)
				} else {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&original, "original", "", "compare against this file instead of the original location")
	return cmd
}
