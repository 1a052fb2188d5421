package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yungbote/agentic-studio/internal/client"
)

var (
	serverURL    string
	outputFormat string
	cfgFile      string
)

var rootCmd = &cobra.Command{
	Use:           "studioctl",
	Short:         "Drive content-production jobs",
	Long:          `studioctl submits briefs to an agentic-studio server, follows their progress, and can run a job in-process with --local.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.studioctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "studio server URL (default from config or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".studioctl"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	_ = viper.BindEnv("server_url", "STUDIO_SERVER_URL")

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config %s: %v\n", cfgFile, err)
		os.Exit(1)
	}
	if serverURL == "" {
		serverURL = viper.GetString("server_url")
	}
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
}

func isJSONOutput() bool {
	return strings.EqualFold(outputFormat, "json")
}

func newClient() (*client.Client, error) {
	return client.New(client.Options{
		BaseURL:    strings.TrimRight(serverURL, "/"),
		MaxRetries: 2,
	})
}
