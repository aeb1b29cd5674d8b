package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khaledhikmat/fit-coach/service/config"
	"github.com/khaledhikmat/fit-coach/service/lgr"
)

// Linker flags are set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfgSvc holds the validated configuration once sharedSetup has run.
var cfgSvc config.IService

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "fit-coach",
	Short:              "Coach an exercise by fitting a trainer skeleton onto your own.",
	Long:               `fit-coach calibrates your body proportions from the camera and overlays a trainer skeleton, scaled to you, while you exercise.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig loads the dev .env file and prepares viper.
func initConfig() {
	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			lgr.Logger.Warn("error loading .env file", slog.Any("error", lgr.Traced(err)))
		}
	}

	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".fitcoach")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	config.ConfigureEnv(viper.GetViper())
	config.SetDefaults(viper.GetViper())
}

// sharedSetup reads the config file and validates the merged settings.
func sharedSetup(_ *cobra.Command, _ []string) error {
	lgr.Configure(os.Stdout, os.Getenv("RUN_TIME_ENV"), viper.GetString("log-level"))

	// Merges defaults, file, env and flags
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}

	svc, err := config.NewViper(viper.GetViper())
	if err != nil {
		return err
	}
	cfgSvc = svc
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
