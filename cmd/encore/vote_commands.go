package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"encore/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var userID int64
	var title, trackRef string

	cmd := &cobra.Command{
		Use:   "submit <competition>",
		Short: "Enter a track into an open competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.CompetitionService) error {
				sub, err := svc.Submit(cmd.Context(), args[0], userID, title, trackRef)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, sub)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted %q as entry %d\n", sub.Title, sub.ID)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Entrant user ID")
	cmd.Flags().StringVar(&title, "title", "", "Track title")
	cmd.Flags().StringVar(&trackRef, "track", "", "Track reference (storage key or URL)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("track")
	return cmd
}

func newVoteCommand(ctx *commandContext) *cobra.Command {
	var voterID int64
	var score int
	var comment string

	cmd := &cobra.Command{
		Use:   "vote <competition> <submission-id>",
		Short: "Score a submission in the currently open round",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			submissionID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.CompetitionService) error {
				if err := svc.Vote(cmd.Context(), args[0], voterID, submissionID, score, comment); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded score %d for submission %d\n", score, submissionID)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&voterID, "voter", 0, "Voter user ID")
	cmd.Flags().IntVar(&score, "score", 0, "Score for the submission")
	cmd.Flags().StringVar(&comment, "comment", "", "Optional feedback comment")
	_ = cmd.MarkFlagRequired("voter")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}

func newAssignmentCommand(ctx *commandContext) *cobra.Command {
	var voterID int64

	cmd := &cobra.Command{
		Use:   "assignment <competition>",
		Short: "Show the anonymized round 1 review slate for a voter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.CompetitionService) error {
				asg, err := svc.AssignmentFor(cmd.Context(), args[0], voterID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, asg)
				}
				if len(asg.Submissions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No assignment found for this voter")
					return nil
				}
				rows := make([][]string, 0, len(asg.Submissions))
				for _, sub := range asg.Submissions {
					rows = append(rows, []string{
						fmt.Sprintf("%d", sub.ID),
						sub.Title,
						orDash(sub.TrackURL),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Submission", "Title", "Track"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&voterID, "voter", 0, "Voter user ID")
	_ = cmd.MarkFlagRequired("voter")
	return cmd
}
