package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fines-must-flow/internal/cli"
	"github.com/Veraticus/the-fines-must-flow/internal/engine"
	"github.com/Veraticus/the-fines-must-flow/internal/settlement"
)

func infractionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "infractions",
		Aliases: []string{"inf"},
		Short:   "Record, list and delete infractions",
	}

	cmd.AddCommand(addInfractionCmd())
	cmd.AddCommand(listInfractionsCmd())
	cmd.AddCommand(deleteInfractionCmd())
	cmd.AddCommand(quoteCmd())
	cmd.AddCommand(complainCmd())

	return cmd
}

func addInfractionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <subject> <code>",
		Short: "Record an infraction",
		Long: `Record an infraction for a student.

The amount is computed from the category default and, for escalating
categories, how many times the student already has it this week. Pass
--amount to fix the amount for this record only.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			dateFlag, _ := cmd.Flags().GetString("date")
			date, err := parseDate(dateFlag, a.engine.Today())
			if err != nil {
				return err
			}

			req := engine.RecordRequest{Subject: args[0], Code: args[1], Date: date}
			req.Reason, _ = cmd.Flags().GetString("reason")
			req.Notes, _ = cmd.Flags().GetString("notes")
			req.RecordedBy, _ = cmd.Flags().GetInt64("by")
			if cmd.Flags().Changed("amount") {
				amount, _ := cmd.Flags().GetInt64("amount")
				req.Amount = &amount
			}

			outcome, err := a.engine.RecordInfraction(ctx, req)
			if err != nil {
				return err
			}

			inf := outcome.Infraction
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Recorded #%d: %s %s on %s (week %d) for %s",
				inf.ID, inf.Subject, inf.Code, formatDate(&inf.Date), inf.Period, settlement.FormatCurrency(inf.AmountDue))))
			if msg := warnMirror(outcome.Mirror); msg != "" {
				fmt.Fprintln(out, cli.FormatWarning(msg))
			}
			return nil
		},
	}

	cmd.Flags().String("date", "", "Date of the infraction, YYYY-MM-DD (default: today)")
	cmd.Flags().String("reason", "", "Reason")
	cmd.Flags().String("notes", "", "Notes")
	cmd.Flags().Int64("amount", 0, "Fixed amount for this record")
	cmd.Flags().Int64("by", 0, "Account ID of the recorder")

	return cmd
}

func listInfractionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List infractions with their computed amounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			filter := engine.SummaryFilter{}
			filter.Subject, _ = cmd.Flags().GetString("subject")
			filter.Period, _ = cmd.Flags().GetInt("week")
			code, _ := cmd.Flags().GetString("code")
			code = strings.ToUpper(strings.TrimSpace(code))

			balances, err := a.engine.Summary(ctx, filter)
			if err != nil {
				return err
			}

			table := cli.NewTable(cmd.OutOrStdout(), "ID", "Date", "Week", "Student", "Code", "Due", "Paid", "Outstanding", "Settled", "Reason")
			rows := 0
			for _, b := range balances {
				for _, line := range b.Lines {
					if code != "" && line.Code != code {
						continue
					}
					table.Row(line.ID, formatDate(&line.Date), line.Period, line.Subject, line.Code,
						settlement.FormatAmount(line.Due), settlement.FormatAmount(line.AmountPaid),
						cli.FormatOutstanding(line.Outstanding, settlement.FormatAmount(line.Outstanding)),
						formatDate(line.SettledOn), line.Reason)
					rows++
				}
			}
			if rows == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No infractions found."))
				return nil
			}
			return table.Flush()
		},
	}

	cmd.Flags().String("subject", "", "Only this student")
	cmd.Flags().String("code", "", "Only this category")
	cmd.Flags().Int("week", 0, "Only this week")

	return cmd
}

func deleteInfractionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an infraction",
		Long: `Delete an infraction and its spreadsheet row. Later records in the same
week and category move up one position, so their computed amounts drop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			inf, err := a.store.GetInfraction(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				prompt := fmt.Sprintf("Delete #%d (%s %s on %s)?", inf.ID, inf.Subject, inf.Code, formatDate(&inf.Date))
				ok, err := cli.NewConfirmer(cmd.InOrStdin(), out).Confirm(ctx, prompt)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, cli.FormatInfo("Cancelled."))
					return nil
				}
			}

			res, err := a.engine.DeleteInfraction(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted #%d", id)))
			if msg := warnMirror(res); msg != "" {
				fmt.Fprintln(out, cli.FormatWarning(msg))
			}
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func quoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote <subject> <code>",
		Short: "Show what a new infraction would cost",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			dateFlag, _ := cmd.Flags().GetString("date")
			date, err := parseDate(dateFlag, a.engine.Today())
			if err != nil {
				return err
			}

			amount, err := a.engine.Quote(ctx, args[0], date, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", settlement.FormatCurrency(amount))
			return nil
		},
	}

	cmd.Flags().String("date", "", "Date, YYYY-MM-DD (default: today)")
	return cmd
}
