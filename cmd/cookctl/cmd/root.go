package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cookctl",
	Short: "Cookctl is a command line tool for interacting with the cookplane service",
	Long: `cookctl is the command-line interface for the CookPlane cooking companion.

CookPlane coordinates cooking sessions broken into small steps, countdown
timers for the steps that need them, and body doubling rooms where people
cook alongside each other.

Common workflows:

  Start a session:
    cookctl session start --recipe "recipe-42" --name "Weeknight Curry" --granularity 4

  Advance to the next step:
    cookctl session step <session-id> --index 2

  Run a timer:
    cookctl timer start <session-id> --name "Simmer" --duration 600

  Cook together:
    cookctl room create --name "Sunday prep" --capacity 6 --public
    cookctl room join PASTA-2026

  Replay mutations queued while offline:
    cookctl sync drain

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    COOKPLANE_URL      API endpoint (default: http://localhost:6161)
    COOKPLANE_TOKEN    API token for authentication
    COOKPLANE_QUEUE    Path of the local sync queue database`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".cookctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".cookctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "COOKPLANE_VARNAME"
	viper.SetEnvPrefix("COOKPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// defaultQueuePath places the offline queue next to the config file.
func defaultQueuePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cookctl-queue.db"
	}
	return filepath.Join(home, ".cookctl-queue.db")
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cookctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "CookPlane API URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "API token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.PersistentFlags().String("queue", defaultQueuePath(), "Path of the local sync queue database")
	viper.BindPFlag("queue", rootCmd.PersistentFlags().Lookup("queue"))
}
