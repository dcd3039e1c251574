// Package cli implements rlsctl, the command-line front end of the RLS
// manager. It operates directly on the administrative store and the AWS
// account, without going through the HTTP server.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"qs-rls-manager/internal/app"
	"qs-rls-manager/internal/config"
	"qs-rls-manager/internal/db"
	"qs-rls-manager/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

type globalOptions struct {
	metaDB    string
	accountID string
	profile   string
	output    string
	logLevel  string
}

// runtime carries the I/O streams and the lazily opened application shared by
// every command of one invocation.
type runtime struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// clients replaces the AWS client registry when set.
	clients    domain.ClientRegistry
	isTerminal func() bool

	opts    globalOptions
	profile Profile
	cfg     *config.Config
	logger  *slog.Logger

	db  *sql.DB
	app *app.App
}

func newRuntime(in io.Reader, out, errOut io.Writer) *runtime {
	return &runtime{
		in:     in,
		out:    out,
		errOut: errOut,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// App opens and migrates the store on first use and wires the services.
func (rt *runtime) App() (*app.App, error) {
	if rt.app != nil {
		return rt.app, nil
	}
	if rt.cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	conn, err := db.Open(rt.cfg.MetaDBPath, db.ModeWrite, 0)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	rt.db = conn
	rt.app = app.New(app.Deps{
		Cfg:     rt.cfg,
		DB:      conn,
		Logger:  rt.logger,
		Clients: rt.clients,
	})
	return rt.app, nil
}

func (rt *runtime) close() {
	if rt.db != nil {
		_ = rt.db.Close()
		rt.db = nil
		rt.app = nil
	}
}

// resolve applies flag > env > profile > default precedence and loads the
// server configuration with the result.
func (rt *runtime) resolve(cmd *cobra.Command) error {
	uc, err := LoadUserConfig()
	if err != nil {
		// The config file is optional.
		uc = emptyUserConfig()
	}
	p, err := uc.ActiveProfile(rt.opts.profile)
	if err != nil {
		return err
	}
	rt.profile = p

	flags := cmd.Flags()
	if !flags.Changed("output") {
		if v := os.Getenv("RLSCTL_OUTPUT"); v != "" {
			rt.opts.output = v
		} else if p.Output != "" {
			rt.opts.output = p.Output
		}
	}
	if err := validateOutputFormat(rt.opts.output); err != nil {
		return err
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if flags.Changed("meta-db") {
		cfg.MetaDBPath = rt.opts.metaDB
	} else if os.Getenv("META_DB_PATH") == "" && p.MetaDB != "" {
		cfg.MetaDBPath = p.MetaDB
	}
	if flags.Changed("account-id") {
		cfg.AWS.AccountID = rt.opts.accountID
	} else if os.Getenv("AWS_ACCOUNT_ID") == "" && p.AccountID != "" {
		cfg.AWS.AccountID = p.AccountID
	}
	cfg.LogLevel = rt.opts.logLevel
	rt.cfg = cfg

	rt.logger = slog.New(slog.NewTextHandler(rt.errOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	for _, w := range cfg.Warnings {
		if strings.HasPrefix(w, "AWS_ACCOUNT_ID") && cfg.AWS.AccountID != "" {
			continue
		}
		rt.logger.Warn(w)
	}
	return nil
}

func validateOutputFormat(v string) error {
	if v != outputTable && v != outputJSON {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", v)
	}
	return nil
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rt := newRuntime(os.Stdin, os.Stdout, os.Stderr)
	return run(rt, os.Args[1:])
}

func run(rt *runtime, args []string) int {
	rootCmd := newRootCmd(rt)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(rt.in)
	rootCmd.SetOut(rt.out)
	rootCmd.SetErr(rt.errOut)

	err := rootCmd.ExecuteContext(context.Background())
	rt.close()
	if err == nil {
		return 0
	}

	if rt.opts.output == outputJSON {
		status, errorType := classifyCLIError(err)
		_ = printJSON(rt.out, map[string]any{
			"error":     err.Error(),
			"status":    status,
			"errorType": errorType,
		})
	} else {
		_, _ = fmt.Fprintf(rt.errOut, "Error: %v\n", err)
	}
	return 1
}

func classifyCLIError(err error) (int, string) {
	var pe *pipelineError
	if errors.As(err, &pe) {
		return pe.out.Status, pe.out.ErrorType
	}
	return domain.Classify(err)
}

func newRootCmd(rt *runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rlsctl",
		Short:         "QuickSight row-level security manager",
		Long:          "Manage row-level security permissions for QuickSight datasets and publish them as rules datasets.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.resolve(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rt.opts.metaDB, "meta-db", "", "Path of the SQLite administrative store (env META_DB_PATH)")
	pf.StringVar(&rt.opts.accountID, "account-id", "", "AWS account id (env AWS_ACCOUNT_ID)")
	pf.StringVarP(&rt.opts.profile, "profile", "p", "", "Config profile to use")
	pf.StringVarP(&rt.opts.output, "output", "o", outputTable, "Output format (table, json)")
	pf.StringVar(&rt.opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newVersionCmd(rt))
	rootCmd.AddCommand(newConfigCmd(rt))
	rootCmd.AddCommand(newMigrateCmd(rt))
	rootCmd.AddCommand(newRegionCmd(rt))
	rootCmd.AddCommand(newDatasetCmd(rt))
	rootCmd.AddCommand(newPermissionCmd(rt))
	rootCmd.AddCommand(newCSVCmd(rt))
	rootCmd.AddCommand(newPublishCmd(rt))
	rootCmd.AddCommand(newRollbackCmd(rt))
	rootCmd.AddCommand(newHistoryCmd(rt))
	rootCmd.AddCommand(newDeleteCmd(rt))
	rootCmd.AddCommand(newVisibilityCmd(rt))

	return rootCmd
}
