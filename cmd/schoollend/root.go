package main

import (
	"fmt"
	"io"
	"os"

	"schoollend/internal/config"
	"schoollend/internal/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "schoollend",
		Short:         "School equipment lending service",
		Long:          `SchoolLend serves the device catalog, the reservation wizard, the admin dashboard and the pickup scanner.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $CONFIG_PATH or "+defaultConfigPath+")")

	root.AddCommand(
		newServeCmd(&cfgFile),
		newExportCmd(&cfgFile),
		newLookupCmd(&cfgFile),
	)
	return root
}

func configPath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return defaultConfigPath
}

func loadConfigAndLogger(cfgFile, component string) (*config.Config, zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath(cfgFile))
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, *logging.Component(baseLogger, component), closer, nil
}
