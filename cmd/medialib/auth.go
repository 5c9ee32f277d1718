package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			in := bufio.NewReader(os.Stdin)
			out := cmd.OutOrStdout()

			if email == "" {
				if email, err = prompt(in, out, "Email: "); err != nil {
					return err
				}
			}
			password, err := readPassword(in, out)
			if err != nil {
				return err
			}

			res, err := a.api.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s signed in as %s\n", okStyle.Render("✓"), res.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func registerCmd() *cobra.Command {
	var username, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			in := bufio.NewReader(os.Stdin)
			out := cmd.OutOrStdout()

			if username == "" {
				if username, err = prompt(in, out, "Username: "); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = prompt(in, out, "Email: "); err != nil {
					return err
				}
			}
			password, err := readPassword(in, out)
			if err != nil {
				return err
			}

			res, err := a.api.Register(cmd.Context(), username, email, password)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s registered %s\n", okStyle.Render("✓"), res.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the token and clear local history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			logoutErr := a.api.Logout(cmd.Context())
			if err := a.save(); err != nil {
				return err
			}
			if logoutErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: server logout failed: %v\n", logoutErr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			u, err := a.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", u.Username, u.Email, u.ID)
			return nil
		},
	}
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	v := strings.TrimSpace(line)
	if v == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(strings.TrimSuffix(label, ": ")))
	}
	return v, nil
}

// readPassword reads without echo on a terminal and falls back to a plain
// line when stdin is piped.
func readPassword(in *bufio.Reader, out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(in, out, "Password: ")
	}
	fmt.Fprint(out, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("password is required")
	}
	return string(b), nil
}
