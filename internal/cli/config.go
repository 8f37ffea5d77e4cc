package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/legislens/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Legislens configuration",
	Long: `Manage Legislens configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (LEGISLENS_*, then GEMINI_API_KEY, CONGRESS_API_KEY, ...)
3. Config file (~/.legislens/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Display the configuration after merging defaults, config file and environment. Secrets are reported only as set or unset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		out := cmd.OutOrStdout()
		printBanner(out, "Current Configuration")

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Fprintln(out, string(yamlData))

		fmt.Fprintln(out, banner)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Credentials:")
		for _, s := range secretStatus(cfg) {
			fmt.Fprintf(out, "  %-22s %s\n", s.name, setOrUnset(s.set))
		}
		fmt.Fprintln(out)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.legislens/config.yaml with every available option.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configDir := filepath.Join(home, ".legislens")
		configPath := filepath.Join(configDir, "config.yaml")

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'legislens config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close config file: %w", closeErr)
			}
		}()

		if err := writeDefaultConfig(f); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printSuccess(out, "Created default configuration: %s", configPath)
		fmt.Fprintf(out, "\nTo view the configuration:\n")
		fmt.Fprintf(out, "  legislens config show\n")
		fmt.Fprintf(out, "\nTo customize, edit the file with your preferred editor:\n")
		fmt.Fprintf(out, "  $EDITOR %s\n\n", configPath)
		return nil
	},
}

// writeDefaultConfig writes the defaults as commented YAML. Secrets are
// never written; they come from the environment.
func writeDefaultConfig(w io.Writer) (err error) {
	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, a...)
	}

	printf("# Legislens Configuration File\n")
	printf("# See https://github.com/ppiankov/legislens for full documentation\n")
	printf("#\n")
	printf("# Configuration hierarchy (highest to lowest priority):\n")
	printf("#   1. CLI flags\n")
	printf("#   2. Environment variables (LEGISLENS_SECTION_KEY, e.g. LEGISLENS_CACHE_BACKEND)\n")
	printf("#   3. This config file\n")
	printf("#   4. Built-in defaults\n\n")

	yamlData, mErr := yaml.Marshal(model.DefaultConfig())
	if mErr != nil {
		return fmt.Errorf("error marshaling config: %w", mErr)
	}
	printf("%s", yamlData)

	printf("\n# Credentials (environment only):\n")
	printf("#   export GEMINI_API_KEY=...      # cloud historical and impact analysis\n")
	printf("#   export GUARDIAN_API_KEY=...    # news: The Guardian\n")
	printf("#   export NEWSAPI_KEY=...         # news: NewsAPI\n")
	printf("#   export SERPAPI_KEY=...         # news: Google News via SerpAPI\n")
	printf("#   export CONGRESS_API_KEY=...    # bill lookup on api.congress.gov\n")
	printf("#   export DATABASE_URL=postgres://...   # cache.backend: postgres\n")
	printf("#   export MYSQL_DSN=user:pass@tcp(host)/db # cache.backend: mysql\n")
	printf("#   export MINIO_ACCESS_KEY=... MINIO_SECRET_KEY=... # cache.backend: minio\n")
	return err
}

type secret struct {
	name string
	set  bool
}

func secretStatus(cfg *model.Config) []secret {
	return []secret{
		{"cloud.api_key", cfg.Cloud.APIKey != ""},
		{"news.guardian_api_key", cfg.News.GuardianAPIKey != ""},
		{"news.newsapi_key", cfg.News.NewsAPIKey != ""},
		{"news.serpapi_key", cfg.News.SerpAPIKey != ""},
		{"congress.api_key", cfg.Congress.APIKey != ""},
		{"cache.database_url", cfg.Cache.DatabaseURL != ""},
		{"cache.mysql_dsn", cfg.Cache.MySQLDSN != ""},
		{"cache.minio.access_key", cfg.Cache.Minio.AccessKey != ""},
	}
}

func setOrUnset(ok bool) string {
	if ok {
		return successColor.Sprint("set")
	}
	return dimColor.Sprint("unset")
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
