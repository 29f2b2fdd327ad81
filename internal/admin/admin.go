// Package admin implements the operator CLI of the diary server: schema
// migrations and account maintenance straight against the database.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dmitrijs2005/dailydiary/internal/common"
	"github.com/dmitrijs2005/dailydiary/internal/logging"
	"github.com/dmitrijs2005/dailydiary/internal/server/auth"
	"github.com/dmitrijs2005/dailydiary/internal/server/config"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dailydiary/internal/server/services"
	"github.com/dmitrijs2005/dailydiary/internal/server/validator"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// loadConfig is a test seam for config.LoadConfigFrom.
var loadConfig = config.LoadConfigFrom

// openRepositories is a test seam for the PostgreSQL connection.
var openRepositories = func(dsn string) (repomanager.RepositoryManager, func() error, error) {
	db, err := repomanager.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	return repomanager.NewPostgresRepositoryManager(db), db.Close, nil
}

type options struct {
	configPath string
	dsn        string
}

// NewRootCmd builds the admin command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "admin",
		Short:        "Diary server administration",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a JSON or TOML config file")
	root.PersistentFlags().StringVarP(&opts.dsn, "dsn", "d", "", "database DSN (overrides the config)")

	root.AddCommand(newMigrateCmd(opts), newCreateUserCmd(opts), newResetPasswordCmd(opts))
	return root
}

// session is everything a subcommand needs once the config is loaded.
type session struct {
	cfg   *config.Config
	log   logging.Logger
	repos repomanager.RepositoryManager
	close func() error
}

func (o *options) open(cmd *cobra.Command) (*session, error) {
	var args []string
	if o.configPath != "" {
		args = []string{"-c", o.configPath}
	}
	cfg := loadConfig(args)
	if o.dsn != "" {
		cfg.DatabaseDSN = o.dsn
	}

	repos, closeFn, err := openRepositories(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	return &session{
		cfg:   cfg,
		log:   logging.New(cmd.ErrOrStderr(), cfg.LogLevel),
		repos: repos,
		close: closeFn,
	}, nil
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.repos.RunMigrations(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

func newCreateUserCmd(opts *options) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a new user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword(cmd.OutOrStdout(), "Enter password: ")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			confirm, err := promptPassword(cmd.OutOrStdout(), "Confirm password: ")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(confirm)

			if errs := validator.ValidateRegister(username, string(password)); errs.HasErrors() {
				return validationError(errs)
			}
			if string(password) != string(confirm) {
				return common.ErrPasswordMismatch
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			users := services.NewUserService(s.repos, auth.NewBcryptHasher(), s.log)
			u, err := users.Register(cmd.Context(), username, string(password))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "User %s created (id %s)\n", u.UserName, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "user name")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newResetPasswordCmd(opts *options) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Change a user's password and end their sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := promptPassword(cmd.OutOrStdout(), "Current password: ")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(current)

			newPassword, err := promptPassword(cmd.OutOrStdout(), "New password: ")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(newPassword)

			confirm, err := promptPassword(cmd.OutOrStdout(), "Confirm new password: ")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(confirm)

			if errs := validator.ValidateResetPassword(username, string(current), string(newPassword), string(confirm)); errs.HasErrors() {
				return validationError(errs)
			}
			if string(newPassword) != string(confirm) {
				return common.ErrPasswordMismatch
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			hasher := auth.NewBcryptHasher()
			as := services.NewAuthService(s.repos, hasher, s.cfg.SecretKey, s.cfg.SessionValidity, s.log)
			if err := as.ResetPassword(cmd.Context(), username, string(current), string(newPassword)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", username)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "user name")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// promptPassword reads a password from the terminal without echo.
// The caller must wipe the returned slice.
func promptPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func validationError(errs validator.ValidationErrors) error {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, errs[f])
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Execute runs the admin CLI with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
