package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"CaseCollector/internal/domain"
	"CaseCollector/internal/infrastructure/storage"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Inspect the review queue",
	}

	reviewCmd.AddCommand(newReviewListCommand(ctx))

	return reviewCmd
}

func newReviewListCommand(ctx *commandContext) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending review entries, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := reviewKinds(kind)
			if err != nil {
				return err
			}

			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			repo, err := storage.Open(cmd.Context(), cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer repo.Close()

			var entries []domain.ApprovalQueueEntry
			for _, k := range kinds {
				pending, err := repo.PendingReviews(cmd.Context(), k)
				if err != nil {
					return err
				}
				entries = append(entries, pending...)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Review queue is empty")
				return nil
			}
			fmt.Fprintln(out, renderReviews(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only list entries of this kind (classification or keyword)")
	return cmd
}

func reviewKinds(kind string) ([]domain.QueueKind, error) {
	switch domain.QueueKind(strings.ToLower(strings.TrimSpace(kind))) {
	case "":
		return []domain.QueueKind{domain.QueueKindClassification, domain.QueueKindKeyword}, nil
	case domain.QueueKindClassification:
		return []domain.QueueKind{domain.QueueKindClassification}, nil
	case domain.QueueKindKeyword:
		return []domain.QueueKind{domain.QueueKindKeyword}, nil
	default:
		return nil, fmt.Errorf("unknown review kind %q", kind)
	}
}

func renderReviews(entries []domain.ApprovalQueueEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		subject := string(e.Dimension)
		if e.Kind == domain.QueueKindKeyword {
			subject = e.Term + " x" + strconv.Itoa(e.Frequency)
		}
		rows = append(rows, []string{
			e.ID,
			string(e.Kind),
			subject,
			e.Link,
			formatOptions(e.Options),
			e.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return renderTable(
		[]string{"ID", "Kind", "Subject", "Link", "Options", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func formatOptions(options []domain.QueueOption) string {
	parts := make([]string, 0, len(options))
	for _, o := range options {
		if o.Confidence > 0 {
			parts = append(parts, fmt.Sprintf("%s (%d)", o.Value, o.Confidence))
			continue
		}
		parts = append(parts, o.Value)
	}
	return strings.Join(parts, ", ")
}
