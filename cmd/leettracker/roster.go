package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"LeetTracker/internal/domain"
)

func rosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage tracked LeetCode users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <username> <display name>",
		Short: "Start tracking a user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			identity := domain.TrackedIdentity{Identifier: args[0], DisplayName: strings.Join(args[1:], " ")}
			if err := application.Commands().AddIdentity(cmd.Context(), identity); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tracking %s as %s\n", identity.Identifier, identity.DisplayName)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <username>",
		Short: "Stop tracking a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Commands().RemoveIdentity(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show tracked users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			identities, err := application.Roster().ListIdentities(cmd.Context())
			if err != nil {
				return err
			}
			for _, identity := range identities {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", identity.Identifier, identity.DisplayName)
			}
			return nil
		},
	})

	return cmd
}

func destinationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destination",
		Short: "Manage the report destination",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "register <chat id>",
		Short: "Post reports to the given Telegram chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Commands().RegisterDestination(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reports go to %s\n", args[0])
			return nil
		},
	})

	return cmd
}
