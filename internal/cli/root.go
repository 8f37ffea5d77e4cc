package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/telemetry"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "legislens",
	Short: "Legislens - hybrid on-device and cloud analysis of legislation",
	Long: `Legislens analyzes a bill's title, summary and text by combining a local
model runtime with optional cloud providers.

On-device adapters produce the core analysis: summary, policy categories,
urgency, key provisions and stakeholder perspectives. Cloud adapters add
historical precedent, economic/social/political impact and news coverage.

Any adapter may fail; the analysis is always returned with whatever
succeeded, and the providers block records which classes contributed.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command; SIGINT and SIGTERM cancel the command context
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("legislens %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.legislens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (structured logs on stderr)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".legislens"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := prepareViper(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing configuration: %v\n", err)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// credentialEnv maps secret config keys to the conventional variables that
// also populate them. LEGISLENS_* always wins.
var credentialEnv = map[string][]string{
	"cloud.api_key":          {"GEMINI_API_KEY"},
	"cloud.base_url":         nil,
	"news.guardian_api_key":  {"GUARDIAN_API_KEY"},
	"news.newsapi_key":       {"NEWSAPI_KEY", "NEWS_API_KEY"},
	"news.serpapi_key":       {"SERPAPI_KEY", "SERP_API_KEY"},
	"congress.api_key":       {"CONGRESS_API_KEY"},
	"cache.database_url":     {"DATABASE_URL"},
	"cache.mysql_dsn":        {"MYSQL_DSN"},
	"cache.minio.access_key": {"MINIO_ACCESS_KEY"},
	"cache.minio.secret_key": {"MINIO_SECRET_KEY"},
	"on_device.base_url":     {"OLLAMA_BASE_URL"},
	"http.http_proxy":        {"HTTP_PROXY"},
	"http.https_proxy":       {"HTTPS_PROXY"},
	"http.no_proxy":          {"NO_PROXY"},
}

// prepareViper registers every default key so LEGISLENS_* variables resolve
// through Unmarshal, and binds the credential variables.
func prepareViper(v *viper.Viper, defaults *model.Config) error {
	v.SetEnvPrefix("LEGISLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	flatten("", tree, v.SetDefault)

	for key, names := range credentialEnv {
		envPrefixed := "LEGISLENS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, envPrefixed}, names...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func flatten(prefix string, tree map[string]any, set func(string, any)) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		// Model maps stay whole so user files can add capabilities
		if sub, ok := val.(map[string]any); ok && key != "on_device.models" {
			flatten(key, sub, set)
			continue
		}
		set(key, val)
	}
}

// loadConfig resolves the effective configuration from viper
func loadConfig() (*model.Config, error) {
	return configFrom(viper.GetViper())
}

func configFrom(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Provider-specific key variables
	if cfg.Cloud.APIKey == "" {
		switch strings.ToLower(cfg.Cloud.Provider) {
		case "openai":
			cfg.Cloud.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.Cloud.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	if _, err := model.ParseLevel(cfg.Analysis.DefaultLevel); err != nil {
		return nil, fmt.Errorf("analysis.default_level: %w", err)
	}
	return cfg, nil
}

// newLogger writes JSON lines to stderr when verbose, otherwise nothing
func newLogger(cfg *model.Config) *telemetry.Logger {
	if verbose || cfg.Output.Verbose {
		return telemetry.New(os.Stderr)
	}
	return telemetry.Discard()
}
