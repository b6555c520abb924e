package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fines-must-flow/internal/cli"
)

func rosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Show the class roster",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the student names offered for selection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.roster.Refresh(ctx); err != nil {
				return err
			}

			table := cli.NewTable(cmd.OutOrStdout(), "#", "Name")
			for i, name := range a.roster.Names() {
				table.Row(i+1, name)
			}
			return table.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Reload the roster from the spreadsheet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.roster.Refresh(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Loaded %d names", a.roster.Len())))
			return nil
		},
	})

	return cmd
}
