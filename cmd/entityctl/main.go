package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tendant/simple-entity/pkg/simpleentity"
	"github.com/tendant/simple-entity/pkg/simpleentity/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

// run executes the root command and returns the process exit code once
// the service's connections are closed.
func run() int {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := newApp()
	defer app.Close()

	if err := NewRootCommand(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// app carries settings and the lazily built service across commands.
type app struct {
	v       *viper.Viper
	service simpleentity.Service
	closers []func()
}

func newApp() *app {
	v := viper.New()
	v.SetEnvPrefix("ENTITY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return &app{v: v}
}

// Close releases database connections held by the service.
func (a *app) Close() {
	for _, c := range a.closers {
		c()
	}
	a.closers = nil
}

// NewRootCommand builds the entityctl command tree.
func NewRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "entityctl",
		Short: "Manage taxonomy terms, nodes and bundle fields",
		Long: `entityctl talks to the entity store directly.

The repository and configuration storage come from --database-url and
--storage-url, or ENTITY_DATABASE_URL and ENTITY_STORAGE_URL.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if a.v.GetBool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("database-url", "sqlite://entity.db", "repository: memory, postgres://..., sqlite://path")
	flags.String("storage-url", "file://./config", "configuration storage: memory://, file://path, s3://bucket")
	flags.String("db-schema", "", "Postgres schema")
	flags.Bool("auto-migrate", false, "apply the Postgres schema before running")
	flags.BoolP("verbose", "v", false, "verbose output")
	for _, name := range []string{"database-url", "storage-url", "db-schema", "auto-migrate", "verbose"} {
		if err := a.v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("Failed to bind %s flag: %v", name, err))
		}
	}

	rootCmd.AddCommand(newVocabularyCommand(a))
	rootCmd.AddCommand(newTermCommand(a))
	rootCmd.AddCommand(newNodeCommand(a))
	rootCmd.AddCommand(newFieldCommand(a))

	return rootCmd
}

// serviceFor builds the service from the bound settings on first use.
func (a *app) serviceFor(ctx context.Context) (simpleentity.Service, error) {
	if a.service != nil {
		return a.service, nil
	}

	cfg, err := config.Load(
		config.WithDatabaseURL(a.v.GetString("database-url")),
		config.WithStorageURL(a.v.GetString("storage-url")),
		config.WithDatabaseSchema(a.v.GetString("db-schema")),
		config.WithAutoMigrate(a.v.GetBool("auto-migrate")),
		config.WithEventLogging(a.v.GetBool("verbose")),
	)
	if err != nil {
		return nil, err
	}

	components, err := cfg.BuildComponents(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, components.Close)
	a.service = components.Service
	return a.service, nil
}

// run calls fn with a service and a context collecting messenger output,
// then prints the collected notices.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, svc simpleentity.Service, out io.Writer) error) error {
	svc, err := a.serviceFor(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	ctx, messages := simpleentity.WithMessages(cmd.Context())
	err = fn(ctx, svc, cmd.OutOrStdout())

	for _, msg := range messages.Status() {
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
	}
	for _, msg := range messages.Errors() {
		fmt.Fprintln(cmd.ErrOrStderr(), "error: "+msg)
	}
	return err
}
