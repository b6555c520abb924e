package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fines-must-flow/internal/cli"
	"github.com/Veraticus/the-fines-must-flow/internal/engine"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

func complainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complain <id>",
		Short: "File a complaint against an infraction",
		Long: `File a complaint disputing an infraction. An admin reviews it and replies
to the given email address. The complaint is removed if the infraction is
deleted.`,
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

			req := engine.ComplaintRequest{InfractionID: id}
			req.Email, _ = cmd.Flags().GetString("email")
			req.Message, _ = cmd.Flags().GetString("message")
			req.AccountID, _ = cmd.Flags().GetInt64("by")

			c, err := a.engine.FileComplaint(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Complaint #%d filed against #%d (%s %s)", c.ID, c.InfractionID, c.Subject, c.Code)))
			return nil
		},
	}

	cmd.Flags().String("email", "", "Email address for the reply (required)")
	cmd.Flags().String("message", "", "What is wrong with the record (required)")
	cmd.Flags().Int64("by", 0, "Account ID filing the complaint")

	return cmd
}

func complaintsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complaints",
		Short: "Review complaints against infractions",
	}

	cmd.AddCommand(listComplaintsCmd())
	cmd.AddCommand(resolveComplaintCmd())

	return cmd
}

func listComplaintsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List complaints, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			filter := model.ComplaintFilter{}
			filter.OpenOnly, _ = cmd.Flags().GetBool("open")

			complaints, err := a.engine.Complaints(ctx, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(complaints) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No complaints."))
				return nil
			}

			table := cli.NewTable(out, "ID", "Filed", "Infraction", "Student", "Code", "Email", "Status", "Message")
			for _, c := range complaints {
				status := "open"
				if c.Resolved {
					status = "resolved"
				}
				table.Row(c.ID, c.CreatedAt.In(a.cfg.Location).Format("2006-01-02 15:04"), c.InfractionID,
					c.Subject, c.Code, c.Email, status, c.Message)
			}
			return table.Flush()
		},
	}

	cmd.Flags().Bool("open", false, "Only unresolved complaints")
	return cmd
}

func resolveComplaintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>",
		Short: "Mark a complaint as resolved",
		Args:  cobra.ExactArgs(1),
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

			if err := a.engine.ResolveComplaint(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Complaint #%d resolved", id)))
			return nil
		},
	}
}
