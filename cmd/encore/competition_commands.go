package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"encore/internal/api"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var organizerID int64
	var opensAt, submissionDeadline, round1Closes, round2Closes string

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Schedule a new competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := api.CreateInput{Title: args[0], OrganizerID: organizerID}
			var err error
			if input.OpensAt, err = parseDeadline(opensAt); err != nil {
				return fmt.Errorf("--opens: %w", err)
			}
			if input.SubmissionDeadline, err = parseDeadline(submissionDeadline); err != nil {
				return fmt.Errorf("--submissions-close: %w", err)
			}
			if input.Round1ClosesAt, err = parseDeadline(round1Closes); err != nil {
				return fmt.Errorf("--round1-closes: %w", err)
			}
			if input.Round2ClosesAt, err = parseDeadline(round2Closes); err != nil {
				return fmt.Errorf("--round2-closes: %w", err)
			}

			return ctx.withService(func(svc *api.CompetitionService) error {
				comp, err := svc.Create(cmd.Context(), input)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, comp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created competition %d (%s)\n", comp.ID, comp.PublicID)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&organizerID, "organizer", 0, "Organizer user ID")
	cmd.Flags().StringVar(&opensAt, "opens", "", "When submissions open (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&submissionDeadline, "submissions-close", "", "Submission deadline")
	cmd.Flags().StringVar(&round1Closes, "round1-closes", "", "Round 1 voting deadline")
	cmd.Flags().StringVar(&round2Closes, "round2-closes", "", "Round 2 voting deadline")
	_ = cmd.MarkFlagRequired("organizer")
	_ = cmd.MarkFlagRequired("opens")
	_ = cmd.MarkFlagRequired("submissions-close")
	_ = cmd.MarkFlagRequired("round1-closes")
	_ = cmd.MarkFlagRequired("round2-closes")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List competitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.CompetitionService) error {
				comps, err := svc.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.CompetitionListResponse{Competitions: comps})
				}
				if len(comps) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No competitions found")
					return nil
				}
				rows := make([][]string, 0, len(comps))
				for _, comp := range comps {
					rows = append(rows, []string{
						fmt.Sprintf("%d", comp.ID),
						comp.Title,
						comp.Status,
						orDash(comp.NextDeadline),
						orDash(comp.StatusNote),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Next Deadline", "Note"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <competition>",
		Short: "Show one competition and its submissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.CompetitionService) error {
				detail, err := svc.Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, detail)
				}
				out := cmd.OutOrStdout()
				comp := detail.Competition
				fmt.Fprintf(out, "%s (%s)\n", comp.Title, comp.PublicID)
				fmt.Fprintf(out, "  Status:        %s\n", comp.Status)
				if comp.StatusNote != "" {
					fmt.Fprintf(out, "  Note:          %s\n", comp.StatusNote)
				}
				fmt.Fprintf(out, "  Opens:         %s\n", comp.OpensAt)
				fmt.Fprintf(out, "  Submissions:   until %s\n", comp.SubmissionDeadline)
				fmt.Fprintf(out, "  Round 1 ends:  %s\n", comp.Round1ClosesAt)
				fmt.Fprintf(out, "  Round 2 ends:  %s\n", comp.Round2ClosesAt)
				if comp.CompletedAt != "" {
					fmt.Fprintf(out, "  Completed:     %s\n", comp.CompletedAt)
				}

				if len(detail.Submissions) == 0 {
					fmt.Fprintln(out, "No submissions yet")
					return nil
				}
				rows := make([][]string, 0, len(detail.Submissions))
				for _, sub := range detail.Submissions {
					rows = append(rows, []string{
						fmt.Sprintf("%d", sub.ID),
						sub.Title,
						sub.Status,
						formatScore(sub.Round1Score),
						yesNo(sub.AdvancedToRound2),
						formatScore(sub.Round2Score),
						formatRank(sub.FinalRank),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Status", "R1 Score", "Finalist", "R2 Score", "Rank"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func newResultsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "results <competition>",
		Short: "Show published standings for a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.CompetitionService) error {
				results, err := svc.Results(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, results)
				}
				out := cmd.OutOrStdout()
				if len(results.Round1) == 0 && len(results.Round2) == 0 {
					fmt.Fprintln(out, "No results published yet")
					return nil
				}
				if len(results.Round1) > 0 {
					fmt.Fprintln(out, "Round 1")
					fmt.Fprintln(out, renderResultRows(results.Round1, false))
				}
				if len(results.Round2) > 0 {
					fmt.Fprintln(out, "Round 2 (final)")
					fmt.Fprintln(out, renderResultRows(results.Round2, true))
				}
				return nil
			})
		},
	}
}

func renderResultRows(rows []api.ResultRow, withRank bool) string {
	headers := []string{"Submission", "Title", "Score"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight}
	if withRank {
		headers = append(headers, "Rank")
		aligns = append(aligns, alignRight)
	} else {
		headers = append(headers, "Finalist")
		aligns = append(aligns, alignLeft)
	}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := []string{
			fmt.Sprintf("%d", row.SubmissionID),
			row.Title,
			formatScore(row.Score),
		}
		if withRank {
			line = append(line, formatRank(row.Rank))
		} else {
			line = append(line, yesNo(row.Finalist))
		}
		out = append(out, line)
	}
	return renderTable(headers, out, aligns)
}
