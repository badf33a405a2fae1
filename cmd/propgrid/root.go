package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/lychee-technology/propgrid"
	"github.com/lychee-technology/propgrid/factory"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	verbose   bool
	configErr error
	cfg       = propgrid.DefaultConfig()
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "propgrid",
	Short: "Browse property documents as a collapsible property grid",
	Long: `propgrid builds a property tree from a YAML, TOML, JSON or JSON Schema
document and prints it as the rows of a property grid. Collapsed composites
are remembered per view key in the configured state backend.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		return setupLogging()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	defer func() { _ = zap.L().Sync() }()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.propgrid.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.String("backend", propgrid.BackendFile, "collapse-state backend: memory, file, postgres, sql, s3")
	pf.String("key", cfg.Storage.Key, "view key the collapse state is stored under")
	pf.String("format", cfg.Builder.Format, "document format: auto, yaml, toml, json, jsonschema")
	pf.String("state-file", cfg.Storage.FilePath, "state file used by the file backend")
	pf.Bool("value-composition", false, "compose composite values from their subproperties")

	bind := map[string]string{
		"storage.backend":          "backend",
		"storage.key":              "key",
		"builder.format":           "format",
		"storage.filePath":         "state-file",
		"builder.valueComposition": "value-composition",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

// initConfig registers defaults and reads the config file and environment.
// Every setting can be overridden with PROPGRID_<SECTION>_<FIELD>, for
// example PROPGRID_STORAGE_BACKEND=postgres.
func initConfig() {
	if err := setDefaults(propgrid.DefaultConfig()); err != nil {
		configErr = err
		return
	}
	// state must outlive a single invocation
	viper.SetDefault("storage.backend", propgrid.BackendFile)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".propgrid")
	}

	viper.SetEnvPrefix("PROPGRID")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = fmt.Errorf("read config: %w", err)
		}
	}
}

// setDefaults registers every field of c under its dotted json path so that
// AutomaticEnv can see it.
func setDefaults(c *propgrid.Config) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return err
	}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			key := prefix + k
			if nested, ok := v.(map[string]any); ok {
				walk(key+".", nested)
				continue
			}
			viper.SetDefault(key, v)
		}
	}
	walk("", tree)
	return nil
}

func loadConfig() error {
	if configErr != nil {
		return configErr
	}
	loaded := propgrid.DefaultConfig()
	err := viper.Unmarshal(loaded, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "json"
	})
	if err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func setupLogging() error {
	lc := cfg.Logging
	if verbose {
		lc.Level = "debug"
	}
	logger, err := factory.NewLogger(lc)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	if used := viper.ConfigFileUsed(); used != "" {
		zap.S().Debugw("using config file", "file", used)
	}
	return nil
}
