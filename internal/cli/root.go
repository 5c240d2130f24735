package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/heritage/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
	noCache bool
	logger  = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "heritage",
	Short: "Heritage - browse historical monuments by period",
	Long: `Heritage serves a browsable catalogue of historical monuments.

Monuments are read from a PostgREST data store and grouped into ordered
historical periods (Ancient, Medieval, Mughal, Colonial, ...) on a timeline.

Run 'heritage serve' to start the site, or 'heritage timeline' to print the
timeline in the terminal.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "heritage %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.heritage/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable the response cache")
	rootCmd.PersistentFlags().String("store-url", "", "data store URL (overrides store.base_url)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("store.base_url", rootCmd.PersistentFlags().Lookup("store-url"))

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds a JSON logger on stderr, at debug level when verbose
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := setupViper(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		return
	}
	if verbose && viper.ConfigFileUsed() != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setupViper registers defaults, env binding and the config file on v. A
// missing default config file is not an error.
func setupViper(v *viper.Viper, file string) error {
	setDefaults(v, model.DefaultConfig())

	// Read in environment variables that match HERITAGE_*, e.g.
	// HERITAGE_STORE_API_KEY for store.api_key
	v.SetEnvPrefix("HERITAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(dir)
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// configDir returns ~/.heritage
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error finding home directory: %w", err)
	}
	return filepath.Join(home, ".heritage"), nil
}

// setDefaults registers every config key so env variables can override
// keys absent from the config file
func setDefaults(v *viper.Viper, cfg *model.Config) {
	v.SetDefault("store.base_url", cfg.Store.BaseURL)
	v.SetDefault("store.api_key", cfg.Store.APIKey)
	v.SetDefault("store.timeout", cfg.Store.Timeout)
	v.SetDefault("store.user_agent", cfg.Store.UserAgent)
	v.SetDefault("store.max_body_bytes", cfg.Store.MaxBodyBytes)
	v.SetDefault("store.requests_per_second", cfg.Store.RequestsPerSecond)
	v.SetDefault("store.burst", cfg.Store.Burst)
	v.SetDefault("store.http_proxy", cfg.Store.HTTPProxy)
	v.SetDefault("store.https_proxy", cfg.Store.HTTPSProxy)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.memory_ttl", cfg.Cache.MemoryTTL)
	v.SetDefault("cache.disk_ttl", cfg.Cache.DiskTTL)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.rate_limit", cfg.Server.RateLimit)
	v.SetDefault("server.rate_burst", cfg.Server.RateBurst)
	v.SetDefault("server.robots", cfg.Server.Robots)

	v.SetDefault("concurrency.workers", cfg.Concurrency.Workers)
	v.SetDefault("output.verbose", cfg.Output.Verbose)
}

// loadConfig decodes the effective configuration from v
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	return cfg, nil
}
