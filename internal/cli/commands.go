package cli

import (
	"context"
	"errors"
	"fmt"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var (
		email, password string
		demo            bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session",
		Long: `Sign in and keep the session.

Missing credentials are prompted for on stdin.

Examples:
  eduauth login --email ada@school.test
  eduauth login --demo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *eduAuth.Client) error {
				form := c.LoginForm()
				values := map[string]any{"email": email, "password": password}
				if demo {
					var notice string
					values, notice = form.Demo()
					fmt.Fprintln(a.errw, notice)
				}

				var err error
				if values["email"], err = a.prompt("Email", values["email"].(string)); err != nil {
					return err
				}
				if values["password"], err = a.prompt("Password", values["password"].(string)); err != nil {
					return err
				}
				return a.report(form.Submit(ctx, values))
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when omitted)")
	cmd.Flags().BoolVar(&demo, "demo", false, "Use the demo account")
	cmd.MarkFlagsMutuallyExclusive("demo", "email")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var (
		firstName, lastName, email string
		password, confirm          string
		grade                      int
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *eduAuth.Client) error {
				var err error
				if password, err = a.prompt("Password", password); err != nil {
					return err
				}
				if confirm, err = a.prompt("Confirm password", confirm); err != nil {
					return err
				}

				form := c.RegisterForm()
				values := form.Defaults()
				values["firstName"] = firstName
				values["lastName"] = lastName
				values["email"] = email
				values["password"] = password
				values["confirmPassword"] = confirm
				if cmd.Flags().Changed("grade") {
					values["grade"] = grade
				}
				return a.report(form.Submit(ctx, values))
			})
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "Password confirmation (prompted when omitted)")
	cmd.Flags().IntVar(&grade, "grade", eduAuth.DefaultGrade, "School grade, 1 to 12")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Refresh and print the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *eduAuth.Client) error {
				u, err := c.Me(ctx)
				if err != nil {
					return errors.New(c.ErrorMessage(err))
				}
				printUser(a, &u)
				return nil
			})
		},
	}
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *eduAuth.Client) error {
				return a.report(c.SignOut(ctx))
			})
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session without contacting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, func(_ context.Context, c *eduAuth.Client) error {
				cfg := c.Config()
				fmt.Fprintf(a.out, "api:      %s\n", cfg.API.BaseURL)
				fmt.Fprintf(a.out, "storage:  %s %s\n", cfg.Storage.Backend, cfg.Storage.Path)
				st := c.Session()
				if !st.IsAuthenticated {
					fmt.Fprintln(a.out, "session:  none")
					return nil
				}
				fmt.Fprintln(a.out, "session:  active")
				printUser(a, st.User)
				return nil
			})
		},
	}
}

func printUser(a *app, u *eduAuth.User) {
	fmt.Fprintf(a.out, "user:     %s <%s>\n", u.FullName(), u.Email)
	fmt.Fprintf(a.out, "role:     %s\n", u.Role)
	if u.Grade != nil {
		fmt.Fprintf(a.out, "grade:    %d\n", *u.Grade)
	}
}
