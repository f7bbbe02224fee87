package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/imposter/internal/factory"
)

const releaseVersion = "0.1.0"

// Config holds the server's command-line and environment settings
type Config struct {
	bind         string
	port         int
	storage      string
	redisURL     string
	roomTTL      time.Duration
	reapInterval time.Duration
	publicURL    string
	catalogDir   string
	seed         uint64
	verbose      bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	switch c.storage {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.redisURL == "" {
			return errors.New("--redis-url is required when --storage=redis")
		}
	default:
		return fmt.Errorf("invalid storage backend (must be memory or redis): %q", c.storage)
	}
	if c.roomTTL <= 0 {
		return fmt.Errorf("invalid room ttl (must be positive): %s", c.roomTTL)
	}
	if c.reapInterval <= 0 {
		return fmt.Errorf("invalid reap interval (must be positive): %s", c.reapInterval)
	}
	return nil
}

// storageTTL is the backend expiry for untouched rooms. It outlasts the
// reaper cutoff by two sweeps so the reaper always closes an idle room
// first and backend expiry only catches rooms orphaned by a dead process.
func (c *Config) storageTTL() time.Duration {
	return c.roomTTL + 2*c.reapInterval
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("IMPOSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "imposter-server",
		Short:         "Room coordinator for the imposter party game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: IMPOSTER_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: IMPOSTER_PORT)")
	fs.StringVar(&cfg.storage, "storage", factory.StorageTypeMemory, "room storage backend, memory or redis (env: IMPOSTER_STORAGE)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis connection url (env: IMPOSTER_REDIS_URL)")
	fs.DurationVar(&cfg.roomTTL, "room-ttl", 2*time.Hour, "time before idle rooms are closed (env: IMPOSTER_ROOM_TTL)")
	fs.DurationVar(&cfg.reapInterval, "reap-interval", time.Minute, "how often to sweep for idle rooms (env: IMPOSTER_REAP_INTERVAL)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "externally visible base url used in join links (env: IMPOSTER_PUBLIC_URL)")
	fs.StringVar(&cfg.catalogDir, "catalog-dir", "", "directory of extra <category>.json topic files (env: IMPOSTER_CATALOG_DIR)")
	fs.Uint64Var(&cfg.seed, "seed", 0, "seed for reproducible room codes and deals, 0 for crypto randomness (env: IMPOSTER_SEED)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log at debug level (env: IMPOSTER_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("imposter-server v{{.Version}}\n")

	cmd.SilenceUsage = true

	return cmd
}
