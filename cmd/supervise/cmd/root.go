package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/supervise/pkg/logging"
)

var (
	cfgFile  string
	logLevel string
	logJSON  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "supervise",
	Short: "Run a single command under process supervision",
	Long: `supervise launches one external command, observes its termination in the
background, optionally relaunches it on exit, and provides graceful (SIGTERM
to the process group) and forceful (SIGKILL) shutdown.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.supervise/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default from config or info)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		// Search config in home directory with name ".supervise/config" (without extension)
		configDir := filepath.Join(home, ".supervise")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// Bind specific environment variables
	viper.BindEnv("log_level", "SUPERVISE_LOG_LEVEL")
	viper.BindEnv("log_json", "SUPERVISE_LOG_JSON")

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetString("log_level") != "" && logLevel == "" {
			logLevel = viper.GetString("log_level")
		}
		if viper.GetBool("log_json") && !logJSON {
			logJSON = true
		}
	}

	// Check environment variables if not set from config
	if logLevel == "" && viper.GetString("log_level") != "" {
		logLevel = viper.GetString("log_level")
	}

	// Set default if still empty
	if logLevel == "" {
		logLevel = "info"
	}
}

// newLogger builds the CLI logger from resolved configuration.
func newLogger() *logging.Logger {
	return logging.NewLogger(logging.ParseLevel(logLevel), logJSON)
}
