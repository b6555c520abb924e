package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fines-must-flow/internal/accrual"
	"github.com/Veraticus/the-fines-must-flow/internal/cli"
	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/engine"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
	"github.com/Veraticus/the-fines-must-flow/internal/settlement"
)

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <subject>",
		Short: "Show what a student owes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			bal, err := a.engine.Balance(ctx, args[0])
			if err != nil {
				return err
			}
			return printBalance(cmd.OutOrStdout(), bal)
		},
	}
}

func printBalance(out io.Writer, bal accrual.Balance) error {
	fmt.Fprintln(out, cli.FormatTitle(bal.Subject))
	if len(bal.Lines) == 0 {
		fmt.Fprintln(out, cli.InfoStyle.Render("No infractions recorded."))
		return nil
	}

	table := cli.NewTable(out, "ID", "Date", "Week", "Code", "Due", "Paid", "Outstanding")
	for _, line := range bal.Lines {
		table.Row(line.ID, formatDate(&line.Date), line.Period, line.Code,
			settlement.FormatAmount(line.Due), settlement.FormatAmount(line.AmountPaid),
			settlement.FormatAmount(line.Outstanding))
	}
	if err := table.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nDue %s, paid %s, outstanding %s\n",
		settlement.FormatCurrency(bal.Due), settlement.FormatCurrency(bal.Paid),
		cli.FormatOutstanding(bal.Outstanding, settlement.FormatCurrency(bal.Outstanding)))
	if !bal.Settled() {
		fmt.Fprintf(out, "Transfer note: %s\n", cli.BoldStyle.Render(
			settlement.GeneratePaymentMessage(bal.Subject, bal.Outstanding, bal.Codes)))
	}
	return nil
}

func settleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settle [subject]",
		Short: "Settle what a student owes",
		Long: `Mark every outstanding infraction of a student as paid, record the payment
in the ledger and update the spreadsheet. With --all, every student who owes
something is settled in turn.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSettle,
	}

	cmd.Flags().Int64("account", 0, "Account ID making the payment (required)")
	cmd.Flags().Bool("all", false, "Settle every student with something outstanding")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runSettle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	all, _ := cmd.Flags().GetBool("all")
	accountID, _ := cmd.Flags().GetInt64("account")
	if all == (len(args) == 1) {
		return errors.New("give either a student or --all")
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	out := cmd.OutOrStdout()
	if !all {
		outcome, err := a.engine.Settle(ctx, settlement.Request{Subject: args[0], AccountID: accountID})
		if err != nil {
			return err
		}
		printSettlement(out, args[0], outcome)
		return nil
	}

	owing, err := a.engine.Outstanding(ctx)
	if err != nil {
		return err
	}
	if len(owing) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("Nobody owes anything."))
		return nil
	}

	handler := cli.NewInterruptHandler(out, "Settlement")
	ctx = handler.HandleInterrupts(ctx, true)

	progress := cli.NewProgress(out, len(owing), "Settling")
	var total int64
	settled := 0
	for _, b := range owing {
		if ctx.Err() != nil {
			break
		}
		outcome, err := a.engine.Settle(ctx, settlement.Request{Subject: b.Subject, AccountID: accountID})
		progress.Step()
		if err != nil {
			common.LogError(a.logger, err, "settlement failed", common.Fields{"subject": b.Subject})
			continue
		}
		if !outcome.NothingDue {
			settled++
			total += outcome.Total
		}
	}
	if handler.WasInterrupted() {
		return ctx.Err()
	}
	progress.Finish()

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Settled %d students for %s", settled, settlement.FormatCurrency(total))))
	return nil
}

func printSettlement(out io.Writer, subject string, outcome *settlement.Outcome) {
	if outcome.NothingDue {
		fmt.Fprintln(out, cli.FormatInfo(model.NormalizeName(subject)+" has nothing outstanding."))
		return
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Settled %d infractions for %s",
		len(outcome.Settled), settlement.FormatCurrency(outcome.Total))))
	if outcome.Entry != nil {
		fmt.Fprintf(out, "Ledger entry %s: %s\n", outcome.Entry.ID, outcome.Entry.Note)
	}
	if msg := warnMirror(outcome.Mirror); msg != "" {
		fmt.Fprintln(out, cli.FormatWarning(msg))
	}
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show per-student totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			filter := engine.SummaryFilter{}
			filter.Subject, _ = cmd.Flags().GetString("subject")
			filter.Status, _ = cmd.Flags().GetString("status")
			filter.Period, _ = cmd.Flags().GetInt("week")

			balances, err := a.engine.Summary(ctx, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dashboard, _ := cmd.Flags().GetBool("dashboard"); dashboard {
				a.refreshRoster(ctx)
				d, err := a.engine.Dashboard(ctx, a.engine.Today())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cli.RenderBox(cli.ChartIcon+" Week "+fmt.Sprint(d.CurrentPeriod), fmt.Sprintf(
					"Records: %d\nClass size: %d\nDue: %s\nPaid: %s\nOutstanding: %s",
					d.Records, d.RosterSize, settlement.FormatCurrency(d.Due),
					settlement.FormatCurrency(d.Paid), settlement.FormatCurrency(d.Outstanding))))
			}

			if len(balances) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No infractions found."))
				return nil
			}

			table := cli.NewTable(out, "Student", "Records", "Due", "Paid", "Outstanding", "Codes")
			var due, paid, outstanding int64
			for _, b := range balances {
				table.Row(b.Subject, len(b.Lines), settlement.FormatAmount(b.Due), settlement.FormatAmount(b.Paid),
					cli.FormatOutstanding(b.Outstanding, settlement.FormatAmount(b.Outstanding)), joinCodes(b.Codes))
				due += b.Due
				paid += b.Paid
				outstanding += b.Outstanding
			}
			table.Row("Total", "", settlement.FormatAmount(due), settlement.FormatAmount(paid), settlement.FormatAmount(outstanding), "")
			return table.Flush()
		},
	}

	cmd.Flags().String("subject", "", "Only this student")
	cmd.Flags().String("status", "", "paid or unpaid")
	cmd.Flags().Int("week", 0, "Only this week")
	cmd.Flags().Bool("dashboard", false, "Also show the overall dashboard")

	return cmd
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Show recorded payments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var entries []model.LedgerEntry
			if accountID, _ := cmd.Flags().GetInt64("account"); accountID > 0 {
				entries, err = a.store.ListLedgerEntries(ctx, accountID)
			} else {
				entries, err = a.store.ListAllLedgerEntries(ctx)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No payments recorded."))
				return nil
			}

			table := cli.NewTable(out, "Paid at", "Student", "Amount", "Codes", "Account", "ID")
			for _, e := range entries {
				table.Row(e.PaidAt.In(a.cfg.Location).Format("2006-01-02 15:04"), e.Subject,
					settlement.FormatAmount(e.Amount), joinCodes(e.Codes), e.AccountID, e.ID)
			}
			return table.Flush()
		},
	}

	cmd.Flags().Int64("account", 0, "Only payments made by this account")
	return cmd
}

func joinCodes(codes []string) string {
	if len(codes) == 0 {
		return "-"
	}
	return strings.Join(codes, ", ")
}
