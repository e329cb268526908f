package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateBoosted  float64
	simulateOriginal float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a synthetic super-odd alert to verify channel wiring",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateBoosted <= 0 {
			return errors.New("--boosted must be greater than 0")
		}

		boosted := decimal.NewFromFloat(simulateBoosted)
		original := decimal.Zero
		if simulateOriginal > 0 {
			original = decimal.NewFromFloat(simulateOriginal)
		}
		return getApp().SimulateAlert(cmd.Context(), boosted, original)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateBoosted, "boosted", 0, "Boosted odd for the synthetic alert")
	simulateCmd.Flags().Float64Var(&simulateOriginal, "original", 0, "Original odd for the synthetic alert (optional)")
}
