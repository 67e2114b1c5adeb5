package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"encore/internal/api"
	"encore/internal/scheduler"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var winnerID int64

	cmd := &cobra.Command{
		Use:   "resolve <competition>",
		Short: "Declare the winner of a competition tied for first place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withScheduler(func(mgr *scheduler.Manager, svc *api.CompetitionService) error {
				comp, err := svc.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := mgr.ResolveManualWinner(cmd.Context(), comp.ID, winnerID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submission %d declared winner of %q\n", winnerID, comp.Title)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&winnerID, "winner", 0, "Winning submission ID")
	_ = cmd.MarkFlagRequired("winner")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel <competition>",
		Short: "Cancel a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withScheduler(func(mgr *scheduler.Manager, svc *api.CompetitionService) error {
				comp, err := svc.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := mgr.Cancel(cmd.Context(), comp.ID, reason); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %q\n", comp.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded on the competition")
	return cmd
}

// newTickCommand runs one scheduler cycle in-process, for operating without
// the daemon and for inspecting stuck competitions.
func newTickCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run one scheduler cycle now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withScheduler(func(mgr *scheduler.Manager, _ *api.CompetitionService) error {
				if err := mgr.RunCycle(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Scheduler cycle complete")
				return nil
			})
		},
	}
}
