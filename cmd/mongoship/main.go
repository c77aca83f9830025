package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/mongoship/internal/adapters/fs"
	logAdapter "github.com/bft-labs/mongoship/internal/adapters/log"
	"github.com/bft-labs/mongoship/internal/cliconfig"
	"github.com/bft-labs/mongoship/internal/ports"
	"github.com/bft-labs/mongoship/pkg/mongoship"
	"github.com/bft-labs/mongoship/plugins/metricsserver"
)

const longHelp = `Ship newline-delimited JSON records into MongoDB.

Each input line becomes one document. Records are buffered per tag into
chunks, routed to a collection derived from the tag and inserted in bulk.
Documents with keys MongoDB refuses ("$"-prefixed or dotted) or invalid
UTF-8 are sanitized and retried instead of being dropped.

Configure via file ($HOME/.mongoship/config.toml), MONGOSHIP_* environment
variables or flags; flags win over environment, environment over file.`

var exampleUsage = strings.TrimSpace(`
  tail -F app.log | mongoship --database logs --collection app
  mongoship --database logs --collection app --input app.jsonl --once
  mongoship --config /etc/mongoship.toml --input app.jsonl --follow --metrics-addr :9090
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log, _ := logAdapter.NewConsole(os.Stderr, cfg.LogLevel)

	root := &cobra.Command{
		Use:          "mongoship",
		Short:        "Ship newline-delimited JSON records into MongoDB",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment overrides the file; flags override both.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logAdapter.NewConsole(os.Stderr, cfg.LogLevel)
			if err != nil {
				return err
			}
			log = logger
			zl := log.Logger()
			zl.Info().Interface("config", cfg.Redacted()).Msg("configuration")

			source := fs.NewLineSource(fs.LineSourceConfig{
				Path:   cfg.Input,
				Tag:    cfg.SourceTag,
				Follow: cfg.Follow,
			}, log)

			opts := []mongoship.Option{mongoship.WithLogger(log)}
			if cfg.MetricsAddr != "" {
				opts = append(opts, metricsserver.WithMetricsServer(metricsserver.Config{Addr: cfg.MetricsAddr}))
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := mongoship.Run(ctx, cfg.SinkConfig(), source, opts...); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			return nil
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.mongoship/config.toml)")

	f.StringVar(&cfg.Database, "database", cfg.Database, "target database (required)")
	f.StringVar(&cfg.Collection, "collection", cfg.Collection, "collection for records whose tag yields no name (required)")
	f.StringVar(&cfg.Host, "host", cfg.Host, "MongoDB host")
	f.IntVar(&cfg.Port, "port", cfg.Port, "MongoDB port")
	f.StringVar(&cfg.URI, "uri", cfg.URI, "MongoDB connection string (overrides host and port)")
	f.StringVar(&cfg.User, "user", cfg.User, "user name")
	f.StringVar(&cfg.Password, "password", cfg.Password, "password (prefer MONGOSHIP_PASSWORD)")
	f.StringVar(&cfg.AuthSource, "auth-source", cfg.AuthSource, "authentication database")
	f.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "connect and server selection timeout")

	f.BoolVar(&cfg.Capped, "capped", cfg.Capped, "create missing collections as capped")
	f.StringVar(&cfg.CappedSize, "capped-size", cfg.CappedSize, "capped collection size, e.g. 100m (required with --capped)")
	f.Int64Var(&cfg.CappedMax, "capped-max", cfg.CappedMax, "maximum documents in a capped collection")

	f.BoolVar(&cfg.IncludeTagKey, "include-tag-key", cfg.IncludeTagKey, "store the tag in every document")
	f.StringVar(&cfg.TagKey, "tag-key", cfg.TagKey, "field name for the tag")
	f.BoolVar(&cfg.IncludeTimeKey, "include-time-key", cfg.IncludeTimeKey, "store the event time in every document")
	f.StringVar(&cfg.TimeKey, "time-key", cfg.TimeKey, "field name for the event time")
	f.StringVar(&cfg.RemoveTagPrefix, "remove-tag-prefix", cfg.RemoveTagPrefix, "prefix stripped from tags before naming collections")

	f.StringVar(&cfg.ChunkLimit, "chunk-limit", cfg.ChunkLimit, "maximum chunk size, capped by what the server supports")
	f.BoolVar(&cfg.DisableCollectionCheck, "disable-collection-check", cfg.DisableCollectionCheck, "skip the capped check on existing collections")

	f.DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "flush buffered chunks at least this often")
	f.IntVar(&cfg.FlushThreadCount, "flush-thread-count", cfg.FlushThreadCount, "chunks written concurrently")
	f.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "poll interval when the input is idle")

	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	f.StringVar(&cfg.Input, "input", cfg.Input, "input file, - for stdin")
	f.StringVar(&cfg.SourceTag, "source-tag", cfg.SourceTag, "tag given to input records")
	f.BoolVar(&cfg.Follow, "follow", cfg.Follow, "keep reading the input file as it grows")
	f.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for status.json (default: $HOME/.mongoship/state)")
	f.BoolVar(&cfg.Once, "once", cfg.Once, "ship the available input and exit")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve /metrics and /healthz on this address")

	if err := root.Execute(); err != nil {
		log.Error("mongoship", ports.Err(err))
		os.Exit(1)
	}
}
