package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkweon/searchlayer/internal/client"
)

var (
	cfgFile   string
	cfg       *client.Config
	apiClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "searchlayer",
	Short: "SearchLayer - Searchable PDF Client",
	Long:  "SearchLayer client for submitting scanned documents and retrieving searchable PDFs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = client.LoadConfigFrom(cfgFile)
		} else {
			cfg, err = client.LoadConfig()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if server, _ := cmd.Flags().GetString("server"); server != "" {
			cfg.Server.URL = server
		}
		if key, _ := cmd.Flags().GetString("api-key"); key != "" {
			cfg.Server.APIKey = key
		}

		apiClient = client.New(cfg.Server.URL, cfg.Server.APIKey)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().String("server", "", "server URL (overrides config)")
	rootCmd.PersistentFlags().String("api-key", "", "API key (overrides config)")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getClient() *client.Client {
	return apiClient
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("searchlayer client v0.1.0")
	},
}
