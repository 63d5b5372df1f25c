package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/templui/pawcare/internal/app"
)

func RefundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refunds",
		Short: "Refund maintenance",
	}

	cmd.AddCommand(refundsRecoverCmd())
	return cmd
}

func refundsRecoverCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Revert refunds stuck in REFUNDING back to COMPLETED",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if olderThan <= 0 {
					olderThan = a.Cfg.RefundStaleAfter
				}
				if olderThan <= a.Cfg.MinRefundStaleAfter() {
					return fmt.Errorf("--older-than must exceed %s or in-flight refunds could be reverted", a.Cfg.MinRefundStaleAfter())
				}
				reverted, err := a.RefundService.RecoverStale(ctx, olderThan)
				if err != nil {
					return err
				}
				for _, txn := range reverted {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", txn.OrderID(), txn.AccountID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reverted %d refund(s)\n", len(reverted))
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "only revert refunds untouched for this long (default REFUND_STALE_AFTER)")
	return cmd
}
