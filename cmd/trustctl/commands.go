package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmachain/trustscore/internal/application/service"
	"github.com/pharmachain/trustscore/internal/domain/entity"
	"github.com/pharmachain/trustscore/pkg/utils"
)

// withApp opens the container for one command and closes it afterwards
func withApp(cmd *cobra.Command, opts *globalOpts, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, opts, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func supplierArg(args []string) (string, error) {
	if err := utils.ValidateID("supplier", args[0]); err != nil {
		return "", err
	}
	return args[0], nil
}

func newScoreCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "score <supplier-id>",
		Short: "Show a supplier's trust score, computing it on first lookup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := supplierArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				score, err := a.container.Services().Trust.GetOrCreateTrustScore(ctx, id)
				if err != nil {
					return err
				}
				return a.render.Score(score)
			})
		},
	}
}

func newRecalculateCmd(opts *globalOpts) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "recalculate [supplier-id]",
		Short: "Recompute a supplier's trust score from current evidence",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("pass either a supplier id or --all")
			}
			if all {
				return withApp(cmd, opts, func(ctx context.Context, a *app) error {
					summary, err := a.container.PeriodicRecalc().RunOnce(ctx)
					if err != nil {
						return err
					}
					return a.render.RunSummary(summary)
				})
			}

			id, err := supplierArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				score, err := a.container.Services().Trust.RecalculateTrustScore(ctx, id)
				if err != nil {
					return err
				}
				return a.render.Score(score)
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Recompute every eligible supplier and refresh ranks")
	return cmd
}

func newPreviewCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <supplier-id>",
		Short: "Compute a trust score without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := supplierArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				preview, err := a.container.Services().Trust.PreviewTrustScore(ctx, id)
				if err != nil {
					return err
				}
				return a.render.Preview(preview)
			})
		},
	}
}

func newBadgesCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "badges <supplier-id>",
		Short: "Evaluate badge rules for a scored supplier and list newly awarded badges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := supplierArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				awarded, err := a.container.Services().Badges.AwardBadges(ctx, id)
				if err != nil {
					return err
				}
				return a.render.Badges(id, awarded)
			})
		},
	}
}

func newHistoryCmd(opts *globalOpts) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "history <supplier-id>",
		Short: "Page through score history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := supplierArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.container.Services().Trust.GetScoreHistory(ctx, id, page, limit)
				if err != nil {
					return err
				}
				return a.render.History(result)
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", service.DefaultHistoryLimit, "Entries per page")
	return cmd
}

func newAdjustCmd(opts *globalOpts) *cobra.Command {
	var (
		adjType string
		amount  int
		reason  string
		by      string
		expires time.Duration
	)

	cmd := &cobra.Command{
		Use:   "adjust <supplier-id>",
		Short: "Apply a manual reward or penalty",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := supplierArg(args)
			if err != nil {
				return err
			}
			req := service.AdjustmentRequest{
				Type:     entity.AdjustmentType(strings.ToLower(adjType)),
				Amount:   amount,
				Reason:   reason,
				Metadata: service.AdjustmentMetadata{AppliedBy: by},
			}
			if expires > 0 {
				at := time.Now().Add(expires)
				req.Metadata.ExpiresAt = &at
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				score, err := a.container.Services().Trust.ApplyRewardOrPenalty(ctx, id, req)
				if err != nil {
					return err
				}
				return a.render.Score(score)
			})
		},
	}

	cmd.Flags().StringVar(&adjType, "type", "", "reward or penalty (required)")
	cmd.Flags().IntVar(&amount, "amount", 0, "Positive amount (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the ledger (required)")
	cmd.Flags().StringVar(&by, "by", os.Getenv("USER"), "Who applied the adjustment")
	cmd.Flags().DurationVar(&expires, "expires-in", 0, "Drop the adjustment from recomputes after this long")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

type rankingFlags struct {
	limit  int
	role   string
	search string
}

func (f *rankingFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.limit, "limit", service.DefaultRankingLimit, "Maximum rows")
	cmd.Flags().StringVar(&f.role, "role", "", "Restrict to one role")
	cmd.Flags().StringVar(&f.search, "search", "", "Case-insensitive supplier name filter")
}

func (f *rankingFlags) query() (service.RankingQuery, error) {
	role := entity.Role(strings.ToLower(f.role))
	if role != "" && !role.IsEligible() {
		return service.RankingQuery{}, fmt.Errorf("unknown role %q", f.role)
	}
	return service.RankingQuery{Limit: f.limit, Role: role, Search: utils.SanitizeString(f.search)}, nil
}

func newRankingCmd(opts *globalOpts) *cobra.Command {
	flags := &rankingFlags{}

	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "List suppliers by trust score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := flags.query()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				summaries, err := a.container.Services().Trust.GetRanking(ctx, query)
				if err != nil {
					return err
				}
				return a.render.Ranking(summaries)
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newRiskCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "risk <batch-id>",
		Short: "Assess a drug batch's risk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.ValidateID("batch", args[0]); err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				assessment, err := a.container.Services().Risk.AssessDrugRisk(ctx, args[0])
				if err != nil {
					return err
				}
				return a.render.Risks([]*entity.DrugRiskAssessment{assessment})
			})
		},
	}
}

func newBatchRisksCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "batch-risks <manufacturer-id>",
		Short: "Assess every batch of a manufacturer, riskiest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := supplierArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				assessments, err := a.container.Services().Risk.AssessManufacturerBatches(ctx, id)
				if err != nil {
					return err
				}
				return a.render.Risks(assessments)
			})
		},
	}
}

func newExportCmd(opts *globalOpts) *cobra.Command {
	flags := &rankingFlags{}
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ranking to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := flags.query()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.container.Services().Export.ExportRanking(ctx, query)
				if err != nil {
					return err
				}
				path := outPath
				if path == "" {
					path = result.FileName
				}
				if err := os.WriteFile(path, result.Content, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				return a.render.Exported(path, result)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: generated name in the current directory)")
	return cmd
}
