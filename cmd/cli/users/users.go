package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	cliconfig "github.com/crucial707/webdemo/cmd/cli/config"
	"github.com/crucial707/webdemo/cmd/cli/output"
	"github.com/crucial707/webdemo/internal/auth"
	"github.com/crucial707/webdemo/internal/db"
	"github.com/crucial707/webdemo/internal/models"
	"github.com/crucial707/webdemo/internal/repo"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// opener returns a database handle and the bcrypt cost to use.
type opener func(ctx context.Context) (*sql.DB, int, error)

func openFromConfig(ctx context.Context) (*sql.DB, int, error) {
	database, cfg, err := cliconfig.OpenDB(ctx)
	if err != nil {
		return nil, 0, err
	}
	return database, cfg.BcryptCost, nil
}

// readPassword prompts on stderr and reads a line without echo.
var readPassword = func(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal for password prompt; pass --password")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// InitUsers registers the users command tree on the root command.
func InitUsers(rootCmd *cobra.Command) {
	rootCmd.AddCommand(usersCmd(openFromConfig))
}

// ==========================
// CLI Command Init
// ==========================
func usersCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
		Long:  "Create and inspect user accounts directly in the database.",
	}
	cmd.AddCommand(createUserCmd(open), showUserCmd(open))
	return cmd
}

// ==========================
// Create User
// ==========================
func createUserCmd(open opener) *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Long:  "Create a user with a hashed password. Prompts for the password when --password is omitted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				first, err := readPassword("Password: ")
				if err != nil {
					return err
				}
				second, err := readPassword("Repeat password: ")
				if err != nil {
					return err
				}
				if first != second {
					return errors.New("passwords do not match")
				}
				password = first
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			database, cost, err := open(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			service := auth.NewService(repo.NewUserRepo(database), auth.NewPasswordHasher(cost))

			var user *models.User
			err = db.WithTx(ctx, database, func(ctx context.Context) error {
				user, err = service.Register(ctx, strings.TrimSpace(email), password, strings.TrimSpace(name))
				return err
			})
			if err != nil {
				var ve *models.ValidationError
				switch {
				case errors.As(err, &ve):
					return fmt.Errorf("invalid input: %w", err)
				case errors.Is(err, repo.ErrDuplicateEmail):
					return fmt.Errorf("a user with email %q already exists", email)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created user %d (%s).\n", user.ID, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// ==========================
// Show User
// ==========================
func showUserCmd(open opener) *cobra.Command {
	var email string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a user by email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			database, _, err := open(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			user, err := repo.NewUserRepo(database).GetByEmail(ctx, email)
			if errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("no user with email %q", email)
			}
			if err != nil {
				return err
			}

			if asJSON {
				return output.RenderJSON(cmd.OutOrStdout(), user)
			}
			output.RenderTable(cmd.OutOrStdout(), []string{"ID", "Email", "Name"},
				[][]interface{}{{user.ID, user.Email, user.Name}})
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
