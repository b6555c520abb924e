package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fines-must-flow/internal/cli"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
	"github.com/Veraticus/the-fines-must-flow/internal/settlement"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage infraction categories",
		Long:  `List infraction categories and change their default amounts.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(setAmountCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			categories, err := a.store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			table := cli.NewTable(cmd.OutOrStdout(), "Code", "Description", "Default", "Escalates")
			for _, c := range categories {
				escalates := ""
				if c.Escalates() {
					escalates = "+" + settlement.FormatAmount(model.EscalationStep) + " per repeat"
				}
				table.Row(c.Code, c.Description, settlement.FormatCurrency(c.DefaultAmount), escalates)
			}
			return table.Flush()
		},
	}
}

func setAmountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-amount <code> <amount>",
		Short: "Change a category's default amount",
		Long: `Change the default amount of a category.

Computed amounts are always derived from the current default, so the change
applies to every existing record of the category, including settled ones.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			code := strings.ToUpper(strings.TrimSpace(args[0]))
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || amount < 0 {
				return fmt.Errorf("invalid amount %q", args[1])
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			cat, err := a.store.GetCategory(ctx, code)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf(
				"%s: %s → %s applies retroactively to every %s record, including settled ones.",
				code, settlement.FormatCurrency(cat.DefaultAmount), settlement.FormatCurrency(amount), code)))

			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				ok, err := cli.NewConfirmer(cmd.InOrStdin(), out).Confirm(ctx, "Continue?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, cli.FormatInfo("Cancelled."))
					return nil
				}
			}

			if err := a.store.UpdateCategoryAmount(ctx, code, amount); err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s default is now %s", code, settlement.FormatCurrency(amount))))
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
