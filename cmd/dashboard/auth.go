package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rickgao/candidate-tracker/internal/api"
	"github.com/rickgao/candidate-tracker/internal/config"
	"github.com/rickgao/candidate-tracker/internal/model"
)

// passwordEnv supplies the password when --password is not given.
const passwordEnv = "CANDIDATE_TRACKER_PASSWORD"

var errHostedOnly = errors.New("sessions are only used with the hosted backend")

// readPassword takes the flag, then the environment, then one line of in.
func readPassword(flag string, in io.Reader, prompt io.Writer) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(passwordEnv); env != "" {
		return env, nil
	}
	fmt.Fprint(prompt, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLoginCommand(g *globals) *cobra.Command {
	var email, password, provider, redirect string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Example: `  dashboard login --email hr@example.com
  dashboard login --provider github --redirect http://localhost:8080/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.Backend != config.BackendHosted {
				return errHostedOnly
			}
			sessions, client := newSessions(cfg, logger)
			out := cmd.OutOrStdout()

			if provider != "" {
				u, err := client.OAuthURL(provider, redirect)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Open this URL to sign in with %s:\n%s\n", provider, u)
				return nil
			}

			if email == "" {
				email = cfg.Auth.Email
			}
			if email == "" {
				return errors.New("--email is required")
			}
			pw, err := readPassword(password, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			user, err := sessions.SignIn(cmd.Context(), email, pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Signed in as %s\n", connectedColor.Sprint(user.Email))
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (default auth.email)")
	cmd.Flags().StringVar(&password, "password", "", "account password (default $"+passwordEnv+" or prompt)")
	cmd.Flags().StringVar(&provider, "provider", "", "print an OAuth sign-in URL for google, github or facebook")
	cmd.Flags().StringVar(&redirect, "redirect", "", "OAuth redirect URL")
	return cmd
}

func newLogoutCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.Backend != config.BackendHosted {
				return errHostedOnly
			}
			sessions, _ := newSessions(cfg, logger)

			if err := sessions.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newSignupCommand(g *globals) *cobra.Command {
	var in model.SignUp

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a recruiter account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.Backend != config.BackendHosted {
				return errHostedOnly
			}
			_, client := newSessions(cfg, logger)

			in.Password, err = readPassword(in.Password, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			res, err := client.SignUp(cmd.Context(), in)
			if errors.Is(err, api.ErrEmailExists) {
				return fmt.Errorf("%s is already registered", in.Email)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.RequiresEmailConfirmation() {
				fmt.Fprintf(out, "Check %s for a confirmation link\n", res.User.Email)
				return nil
			}
			fmt.Fprintf(out, "Registered %s; run \"dashboard login\" to sign in\n", res.User.Email)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&in.Email, "email", "e", "", "account email")
	f.StringVar(&in.Password, "password", "", "account password, at least 6 characters")
	f.StringVar(&in.FullName, "name", "", "full name")
	f.StringVar(&in.Company, "company", "", "company")
	f.StringVar(&in.Position, "position", "", "position")
	f.StringVar(&in.Location, "location", "", "location")
	f.StringVar(&in.Phone, "phone", "", "phone")
	cmd.MarkFlagRequired("email")
	return cmd
}
