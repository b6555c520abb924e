package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fines-must-flow/internal/cli"
	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/engine"
	"github.com/Veraticus/the-fines-must-flow/internal/mirror"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Load an existing spreadsheet into an empty database",
		Long: `Read every category sheet of the configured mirror workbook and store its
rows as infractions. Only runs against an empty database; the whole import
is one transaction.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if a.book == nil {
				return fmt.Errorf("%w: set mirror.backend to file or sheets", common.ErrMirrorUnavailable)
			}

			out := cmd.OutOrStdout()
			sheets, err := engine.SheetRows(ctx, a.book)
			if err != nil {
				return err
			}
			rows := 0
			for _, r := range sheets {
				rows += len(r)
			}

			handler := cli.NewInterruptHandler(out, "Import")
			ctx = handler.HandleInterrupts(ctx, false)

			progress := cli.NewProgress(out, rows, "Importing")
			report, err := a.engine.Import(ctx, sheets, progress.Step)
			if err != nil {
				return err
			}
			progress.Finish()

			table := cli.NewTable(out, "Sheet", "Rows")
			for _, sheet := range mirror.Sheets() {
				if n, ok := report.Sheets[sheet]; ok {
					table.Row(sheet, n)
				}
			}
			if err := table.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d infractions (%d rows skipped)", report.Imported, report.Skipped)))
			return nil
		},
	}
}
