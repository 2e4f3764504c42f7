package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"FinCast/internal/di"
	"FinCast/internal/domain/models"
)

var analyzeDays int

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL...",
	Short: "Print moving averages, trend, risk and return correlation",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().IntVarP(&analyzeDays, "days", "d", 0, "calendar days of history (provider.history_days when 0)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, cleanup, err := di.InitializeServices(cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer cleanup()

	res, err := svc.Analysis.Analyze(cmd.Context(), args, analyzeDays)
	if res != nil {
		writeAnalysis(cmd.OutOrStdout(), res)
	}
	if errors.Is(err, models.ErrAllSymbolsFailed) {
		return fmt.Errorf("no symbol could be analyzed")
	}
	return err
}

func writeAnalysis(w io.Writer, res *models.AnalysisResult) {
	symbols := make([]string, 0, len(res.Technical))
	for sym := range res.Technical {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		t := res.Technical[sym]
		fmt.Fprintf(w, "%s\n%s\n", sym, strings.Repeat("-", 20))
		fmt.Fprintf(w, "Last Close: $%.2f\n", t.LastClose)
		fmt.Fprintf(w, "MA10/MA20/MA50: %.2f / %.2f / %.2f (%s)\n", t.MA10, t.MA20, t.MA50, t.MovingAverages)
		fmt.Fprintf(w, "RSI(14): %.2f\n", t.RSI14)
		fmt.Fprintf(w, "Price Trend: %s, Volume Trend: %s\n", t.PriceTrend, t.VolumeTrend)
		fmt.Fprintf(w, "Mean Daily Return: %.4f%%, Std: %.4f%%, Annualized Volatility: %.2f%%\n\n",
			t.Risk.MeanReturn*100, t.Risk.StdReturn*100, t.Risk.AnnualizedVol*100)
	}

	if c := res.Correlation; c != nil && len(c.Symbols) > 1 {
		fmt.Fprintln(w, "Return Correlation:")
		fmt.Fprintf(w, "%-8s", "")
		for _, s := range c.Symbols {
			fmt.Fprintf(w, "%9s", s)
		}
		fmt.Fprintln(w)
		for i, s := range c.Symbols {
			fmt.Fprintf(w, "%-8s", s)
			for _, v := range c.Values[i] {
				fmt.Fprintf(w, "%9.3f", v)
			}
			fmt.Fprintln(w)
		}
	}

	if len(res.Errors) > 0 {
		failed := make([]string, 0, len(res.Errors))
		for sym := range res.Errors {
			failed = append(failed, sym)
		}
		sort.Strings(failed)
		fmt.Fprintln(w, "Errors:")
		for _, sym := range failed {
			fmt.Fprintf(w, "  %s: %s\n", sym, res.Errors[sym])
		}
	}
}
