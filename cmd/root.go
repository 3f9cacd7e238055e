package cmd

import (
	"fmt"
	"strings"

	"github.com/jzelinskie/cobrautil/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kubev2v/pdf-extractor/internal/config"
)

const envPrefix = "PDF_EXTRACTOR"

func NewRootCommand() *cobra.Command {
	cfg := config.NewConfigurationWithOptionsAndDefaults()

	rootCmd := &cobra.Command{
		Use:          "pdf-extractor",
		Short:        "Extract text from PDF files on a pool of isolated workers",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to a configuration file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	rootCmd.AddCommand(
		NewRunCommand(cfg),
		NewWorkerCommand(cfg),
		NewExtractCommand(cfg),
	)

	return rootCmd
}

// preRun merges the config file and PDF_EXTRACTOR_* variables into unset
// flags, then installs the global logger.
func preRun(cfg *config.Configuration) cobrautil.CobraRunFunc {
	return cobrautil.CommandStack(
		readConfigFile,
		cobrautil.SyncViperPreRunE(envPrefix),
		func(cmd *cobra.Command, args []string) error {
			return setupLogging(cfg)
		},
	)
}

func readConfigFile(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var setErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if setErr != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		value := v.GetString(f.Name)
		if f.Value.Type() == "stringSlice" {
			value = strings.Join(v.GetStringSlice(f.Name), ",")
		}
		if err := cmd.Flags().Set(f.Name, value); err != nil {
			setErr = fmt.Errorf("invalid value for %s in %s: %w", f.Name, path, err)
		}
	})
	return setErr
}

func setupLogging(cfg *config.Configuration) error {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zcfg zap.Config
	switch cfg.LogFormat {
	case "json":
		zcfg = zap.NewProductionConfig()
	default:
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.Level = level

	logger, err := zcfg.Build()
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	return nil
}
