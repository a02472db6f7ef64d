package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/honorscan/internal/logging"
	"github.com/ppiankov/honorscan/internal/model"
)

// Version is set at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool

	logger    *zap.Logger
	appConfig *model.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "honorscan",
	Short: "honorscan - honoree list merge and controversy enrichment",
	Long: `honorscan merges yearly honoree list exports into one normalized table
and walks that table asking a generative-AI service, optionally grounded on
web search, whether each honoree was later the target of a lawsuit, scandal
or fraud case.

Answers are written back into the table's fraud column. Progress counters
and a result log are kept next to the table so long runs can be interrupted
and resumed.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appConfig = cfg

		logger, err = logging.New(verbose || cfg.Output.Verbose, cfg.Output.LogFormat)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
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
		fmt.Fprintf(cmd.OutOrStdout(), "honorscan %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.honorscan/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("table", "", "honoree table CSV path")
	rootCmd.PersistentFlags().String("progress-file", "", "progress JSON path")
	rootCmd.PersistentFlags().String("results-file", "", "results JSON path")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("paths.table", rootCmd.PersistentFlags().Lookup("table"))
	_ = viper.BindPFlag("paths.progress_file", rootCmd.PersistentFlags().Lookup("progress-file"))
	_ = viper.BindPFlag("paths.results_file", rootCmd.PersistentFlags().Lookup("results-file"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := setDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting config defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".honorscan"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match HONORSCAN_*, e.g.
	// HONORSCAN_LLM_PROVIDER for llm.provider
	viper.SetEnvPrefix("HONORSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

// optionalKeys are omitted from the marshaled defaults but must still be
// known to viper so environment overrides reach them
var optionalKeys = []string{
	"llm.api_key",
	"llm.base_url",
	"http.http_proxy",
	"http.https_proxy",
	"metrics.textfile_path",
}

// setDefaults registers every field of cfg as a viper default
func setDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}

	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, val := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := val.(map[string]any); ok {
				walk(key, child)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)

	for _, key := range optionalKeys {
		if !v.IsSet(key) {
			v.SetDefault(key, "")
		}
	}
	return nil
}

// loadConfig unmarshals the layered configuration
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// configBytes renders cfg as YAML
func configBytes(cfg *model.Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
