package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"todocat/internal/client"
)

func (a *app) loginCmd() *cobra.Command {
	return a.credentialsCmd("login", "Log in and remember the token", func(ctx context.Context, c *client.Client, user, pass string) (string, error) {
		return c.Login(ctx, user, pass)
	})
}

func (a *app) registerCmd() *cobra.Command {
	return a.credentialsCmd("register", "Create an account and remember the token", func(ctx context.Context, c *client.Client, user, pass string) (string, error) {
		return c.Register(ctx, user, pass)
	})
}

type credentialsFunc func(ctx context.Context, c *client.Client, username, password string) (string, error)

func (a *app) credentialsCmd(use, short string, call credentialsFunc) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := a.v.GetString("server")
			if server == "" {
				return fmt.Errorf("%s needs a server, set --server or server in the config", use)
			}

			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if username == "" {
				if username, err = prompt(cmd.OutOrStdout(), in, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = readPassword(cmd, in); err != nil {
					return err
				}
			}

			c := client.New(server, "", a.v.GetDuration("timeout"))
			token, err := call(cmd.Context(), c, username, password)
			if err != nil {
				return err
			}
			if err := a.saveSetting("server", server); err != nil {
				return err
			}
			if err := a.saveSetting("token", token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password; prompted when empty")
	return cmd
}

func prompt(out io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return prompt(cmd.OutOrStdout(), in, "Password: ")
	}
	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
