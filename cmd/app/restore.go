package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arumata/nautback/internal/usecase"
)

//nolint:gochecknoglobals // overridden in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func newRestoreCmd(opts *rootOptions, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	var (
		target string
		yes    bool
	)
	cmd := &cobra.Command{
		Use:   "restore BACKUP",
		Short: "Restore a backup to its original location",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			withSession(ctx, opts, depsFactory, exitCode, func(s *session) error {
				return runRestore(ctx, cmd, s.engine, args[0], target, yes)
			})
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "restore to this path instead of the original location")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "overwrite an existing target without asking")
	return cmd
}

func runRestore(ctx context.Context, cmd *cobra.Command, engine *usecase.Engine, backup, target string, yes bool) error {
	out := cmd.OutOrStdout()
	plan, err := engine.PlanRestore(ctx, backup, target)
	if err != nil {
		// let Restore report and notify the failure
		_, err = engine.Restore(ctx, backup, usecase.RestoreOptions{Target: target}).Wait(ctx)
		return err
	}

	confirmed := yes
	if plan.TargetExists && !yes {
		if !stdinIsTerminal() {
			return usecase.InvalidArgument.New("%s already exists; pass --yes to overwrite", plan.Target)
		}
		ok, err := confirm(cmd.InOrStdin(), out, fmt.Sprintf("Overwrite %s?", plan.Target))
		if err != nil {
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(out, "Restore canceled")
			return nil
		}
		confirmed = true
	}

	task := engine.Restore(ctx, backup, usecase.RestoreOptions{Target: target, Confirmed: confirmed})
	if task.Async() {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Restore in progress...")
	}
	outcome, err := task.Wait(ctx)
	if err != nil {
		return err
	}
	if outcome.State == usecase.RestoreConfirmationPending {
		// the target appeared between planning and restoring
		return usecase.DestinationExists.New("%s already exists", outcome.Plan.Target)
	}
	_, _ = fmt.Fprintln(out, strings.ReplaceAll(outcome.Message, "\n", " "))
	return nil
}

// confirm asks a y/N question. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	_, _ = fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
