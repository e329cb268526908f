package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"super-odds-alerts/internal/app"
)

var (
	showLimit       int
	showHideExpired bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display stored super odds",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:       showLimit,
			HideExpired: showHideExpired,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of super odds to display")
	showCmd.Flags().BoolVar(&showHideExpired, "hide-expired", false, "Only display still-valid offers")
}
