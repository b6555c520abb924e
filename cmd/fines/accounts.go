package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fines-must-flow/internal/cli"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
		Long:  `Add accounts, link them to a student and grant admin rights.`,
	}

	cmd.AddCommand(addAccountCmd())
	cmd.AddCommand(listAccountsCmd())
	cmd.AddCommand(linkAccountCmd())
	cmd.AddCommand(promoteAccountCmd())

	return cmd
}

func addAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			acct := &model.Account{Username: args[0]}
			acct.DisplayName, _ = cmd.Flags().GetString("name")
			acct.Subject, _ = cmd.Flags().GetString("subject")
			acct.IsAdmin, _ = cmd.Flags().GetBool("admin")
			if acct.DisplayName == "" {
				acct.DisplayName = acct.Username
			}

			if err := a.engine.CreateAccount(ctx, acct); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created account #%d (%s)", acct.ID, acct.Username)))
			return nil
		},
	}

	cmd.Flags().String("name", "", "Display name")
	cmd.Flags().String("subject", "", "Student this account pays for")
	cmd.Flags().Bool("admin", false, "Grant admin rights")

	return cmd
}

func listAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			accounts, err := a.store.ListAccounts(ctx)
			if err != nil {
				return err
			}

			table := cli.NewTable(cmd.OutOrStdout(), "ID", "Username", "Name", "Student", "Admin")
			for _, acct := range accounts {
				admin := ""
				if acct.IsAdmin {
					admin = cli.SuccessIcon
				}
				student := acct.Subject
				if student == "" {
					student = "-"
				}
				table.Row(acct.ID, acct.Username, acct.DisplayName, student, admin)
			}
			return table.Flush()
		},
	}
}

func linkAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <id> <subject>",
		Short: "Link an account to a student",
		Args:  cobra.ExactArgs(2),
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

			a.refreshRoster(ctx)
			subject := model.NormalizeName(args[1])
			if a.roster.Len() > 0 && !a.roster.Contains(subject) {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(subject+" is not on the class roster"))
			}

			if err := a.store.LinkSubject(ctx, id, subject); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Account #%d now pays for %s", id, subject)))
			return nil
		},
	}
}

func promoteAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote <id>",
		Short: "Grant or revoke admin rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			revoke, _ := cmd.Flags().GetBool("revoke")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.store.SetAdmin(ctx, id, !revoke); err != nil {
				return err
			}
			verb := "is now an admin"
			if revoke {
				verb = "is no longer an admin"
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Account #%d %s", id, verb)))
			return nil
		},
	}

	cmd.Flags().Bool("revoke", false, "Revoke admin rights instead")
	return cmd
}

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Read account notifications",
	}

	cmd.PersistentFlags().Int64("account", 0, "Account ID (required)")
	_ = cmd.MarkPersistentFlagRequired("account")

	cmd.AddCommand(listNotificationsCmd())
	cmd.AddCommand(readNotificationsCmd())

	return cmd
}

func listNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an account's notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			accountID, _ := cmd.Flags().GetInt64("account")
			unread, _ := cmd.Flags().GetBool("unread")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			notes, err := a.store.ListNotifications(ctx, accountID)
			if err != nil {
				return err
			}

			table := cli.NewTable(cmd.OutOrStdout(), "ID", "When", "", "Message", "Link")
			for _, n := range notes {
				if unread && n.Read {
					continue
				}
				marker := "•"
				if n.Read {
					marker = ""
				}
				table.Row(n.ID, n.CreatedAt.In(a.cfg.Location).Format("2006-01-02 15:04"), marker, n.Message, n.Link)
			}
			return table.Flush()
		},
	}

	cmd.Flags().Bool("unread", false, "Only unread notifications")
	return cmd
}

func readNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read [id]",
		Short: "Mark notifications as read",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			accountID, _ := cmd.Flags().GetInt64("account")
			all, _ := cmd.Flags().GetBool("all")
			if all == (len(args) == 1) {
				return errors.New("give either a notification id or --all")
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			out := cmd.OutOrStdout()
			if all {
				n, err := a.store.MarkAllNotificationsRead(ctx, accountID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Marked %d notifications read", n)))
				return nil
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.store.MarkNotificationRead(ctx, accountID, id); err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Marked notification #%d read", id)))
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "Mark every notification read")
	return cmd
}
