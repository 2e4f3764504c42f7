package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"FinCast/internal/di"
	"FinCast/internal/domain/models"
	"FinCast/internal/repository"
)

var predictCmd = &cobra.Command{
	Use:   "predict SYMBOL...",
	Short: "Train and evaluate a forecast for each symbol",
	Example: `  fincast predict AAPL MSFT
  fincast predict --config config/config.yaml NVDA`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, cleanup, err := di.InitializeServices(cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer cleanup()

	res, err := svc.Batch.Run(cmd.Context(), args)
	if res != nil {
		if werr := writeBatch(cmd.OutOrStdout(), res); werr != nil {
			return werr
		}
	}
	if errors.Is(err, models.ErrAllSymbolsFailed) {
		return fmt.Errorf("no valid predictions could be made")
	}
	return err
}

func writeBatch(w io.Writer, res *models.BatchResult) error {
	for _, sym := range res.Order {
		r, ok := res.Results[sym]
		if !ok {
			continue
		}
		if err := repository.RenderText(w, r.Report); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	if len(res.Errors) == 0 {
		return nil
	}
	failed := make([]string, 0, len(res.Errors))
	for sym := range res.Errors {
		failed = append(failed, sym)
	}
	sort.Strings(failed)
	fmt.Fprintln(w, "Errors:")
	for _, sym := range failed {
		fmt.Fprintf(w, "  %s: %s\n", sym, res.Errors[sym])
	}
	return nil
}
