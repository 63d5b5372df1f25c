package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/templui/pawcare/internal/app"
	"github.com/templui/pawcare/internal/service"
)

func CouponsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coupons",
		Short: "Manage coupons",
	}

	cmd.AddCommand(couponsIssueCmd())
	cmd.AddCommand(couponsShowCmd())
	return cmd
}

func couponsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <code>",
		Short: "Show a coupon by code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				c, err := a.CouponService.ByCode(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d tokens\tends %s\tactive=%t\tstatus=%s\tredemptions=%d\n",
					c.Code, c.Tokens, c.EndsAt.Format(time.RFC3339), c.IsActive, c.Status, c.RedemptionCount)
				return nil
			})
		},
	}
}

func couponsIssueCmd() *cobra.Command {
	var (
		tokens int
		count  int
		endsAt string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a batch of coupons and print their codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				coupons, err := a.CouponService.CreateBatch(ctx, service.CreateBatchInput{
					Tokens: tokens,
					EndsAt: endsAt,
					Count:  count,
				})
				if err != nil {
					return err
				}
				for _, c := range coupons {
					fmt.Fprintln(cmd.OutOrStdout(), c.Code)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&tokens, "tokens", 0, "tokens granted per coupon")
	cmd.Flags().IntVar(&count, "count", 1, "number of coupons")
	cmd.Flags().StringVar(&endsAt, "ends-at", "", "expiry, RFC 3339 or YYYY-MM-DD (UTC)")
	_ = cmd.MarkFlagRequired("tokens")
	_ = cmd.MarkFlagRequired("ends-at")
	return cmd
}
