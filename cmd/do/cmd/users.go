package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/templui/pawcare/internal/app"
	"github.com/templui/pawcare/internal/model"
)

func UsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}

	cmd.AddCommand(usersCreateCmd())
	cmd.AddCommand(usersPromoteCmd())
	cmd.AddCommand(usersListCmd())
	return cmd
}

func usersCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <email>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				user, err := a.UserService.Create(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", user.ID, user.Email)
				return nil
			})
		},
	}
}

func usersPromoteCmd() *cobra.Command {
	var flags string

	cmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Grant the admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var adminFlags model.AdminFlags
			if flags != "" {
				parsed, err := model.ParseAdminFlags(strings.Split(flags, ","))
				if err != nil {
					return err
				}
				adminFlags = parsed
			}

			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				user, err := a.UserService.ByEmail(ctx, args[0])
				if err != nil {
					return err
				}
				user, err = a.UserService.MakeAdmin(ctx, user.ID, adminFlags)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", user.ID, user.Email, strings.Join(user.AdminFlags.Names(), ","))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags, "flags", "", "comma separated admin areas (coupons,payments,users); empty grants all")
	return cmd
}

func usersListCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				users, err := a.UserService.List(ctx, role)
				if err != nil {
					return err
				}
				for _, u := range users {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Role, strings.Join(u.AdminFlags.Names(), ","))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "filter by role (user or admin)")
	return cmd
}
