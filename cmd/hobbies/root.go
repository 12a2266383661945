package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/asaidimu/go-hobbies/core/persistence"
	"github.com/asaidimu/go-hobbies/core/schema"
	"github.com/asaidimu/go-hobbies/internal/config"
	"github.com/asaidimu/go-hobbies/internal/logging"
	"github.com/asaidimu/go-hobbies/internal/metrics"
	"github.com/asaidimu/go-hobbies/sqlite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// app holds what the commands share. The database is opened on first use so
// commands that do not need it never touch it.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	flush   func() error
	metrics *metrics.Recorder
	store   *sqlite.SQLiteStore
	svc     *persistence.Persistence
}

// execute runs the command line in args. Metrics are written and the
// database is closed even when the command fails.
func execute(args []string, stdout, stderr io.Writer) (err error) {
	a := &app{cfg: config.Load()}
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	defer func() {
		if closeErr := a.close(); err == nil {
			err = closeErr
		}
	}()
	return rootCmd.Execute()
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hobbies",
		Short:         "Track hobbies with user defined fields",
		Long:          `hobbies stores entries of user defined hobby types and validates every entry against the fields of its type.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfg.DatabasePath, "db", a.cfg.DatabasePath, "Path of the SQLite database")
	flags.StringVar(&a.cfg.Owner, "owner", a.cfg.Owner, "Acting owner")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "Log level: debug, info, warn, error")
	flags.StringVar(&a.cfg.Policy, "policy", a.cfg.Policy, "Validation policy: reject or log")
	flags.StringVar(&a.cfg.IndexMode, "index-by", a.cfg.IndexMode, "Record keys: key or label")
	flags.StringVar(&a.cfg.MetricsFile, "metrics-file", a.cfg.MetricsFile, "Write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(
		newValidateCmd(a),
		newTypesCmd(a),
		newFieldsCmd(a),
		newEntriesCmd(a),
		newTagsCmd(a),
		newViewsCmd(a),
		newAuditCmd(a),
	)
	return rootCmd
}

func (a *app) setup() error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = a.cfg.LogLevel
	logCfg.FilePath = a.cfg.LogFile
	logCfg.MaxSizeMB = a.cfg.LogMaxSizeMB
	logCfg.MaxBackups = a.cfg.LogMaxBackups
	logCfg.MaxAgeDays = a.cfg.LogMaxAgeDays
	logCfg.Compress = a.cfg.LogCompress

	logger, flush, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	a.logger, a.flush = logger, flush
	a.metrics = metrics.NewRecorder()
	return nil
}

// validatorOptions turns the policy and index flags into validator options.
func (a *app) validatorOptions() ([]schema.Option, error) {
	policy, err := schema.ParsePolicy(a.cfg.Policy)
	if err != nil {
		return nil, err
	}
	mode, err := schema.ParseIndexMode(a.cfg.IndexMode)
	if err != nil {
		return nil, err
	}
	return []schema.Option{
		schema.WithLogger(a.logger),
		schema.WithPolicy(policy),
		schema.WithIndexMode(mode),
	}, nil
}

// service opens the database and builds the persistence service.
func (a *app) service(ctx context.Context) (*persistence.Persistence, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	opts, err := a.validatorOptions()
	if err != nil {
		return nil, err
	}
	store, err := sqlite.Open(ctx, a.cfg.DatabasePath, a.logger)
	if err != nil {
		return nil, err
	}
	svc, err := persistence.NewPersistence(store,
		persistence.WithLogger(a.logger),
		persistence.WithMetrics(a.metrics),
		persistence.WithValidatorOptions(opts...),
		persistence.WithSchemaCacheSize(a.cfg.SchemaCacheSize),
		persistence.WithAuditWorkers(a.cfg.AuditWorkers),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	a.store, a.svc = store, svc
	return svc, nil
}

func (a *app) close() error {
	var firstErr error
	if a.metrics != nil && a.cfg.MetricsFile != "" {
		if err := a.metrics.WriteToTextfile(a.cfg.MetricsFile); err != nil {
			firstErr = fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.store, a.svc = nil, nil
	}
	if a.flush != nil {
		_ = a.flush()
	}
	return firstErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readDocument parses inline JSON, or the JSON or YAML file named by an
// "@path" argument.
func readDocument(arg string) (map[string]any, error) {
	if arg == "" {
		return nil, nil
	}
	data := []byte(arg)
	format := schema.FormatJSON
	if strings.HasPrefix(arg, "@") {
		path := arg[1:]
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = raw
		format = schema.FormatFromPath(path)
	}

	out := map[string]any{}
	var err error
	if format == schema.FormatYAML {
		err = yaml.Unmarshal(data, &out)
	} else {
		err = json.Unmarshal(data, &out)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return out, nil
}
