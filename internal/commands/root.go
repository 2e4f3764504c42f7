package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"FinCast/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fincast",
	Short: "Per-symbol price forecasting service",
	Long: `FinCast fetches daily price history, trains a recurrent model per symbol
to forecast the next close and reports RMSE, MAE, R² and directional accuracy
on the held out 20% of the series.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (defaults only when empty)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}
