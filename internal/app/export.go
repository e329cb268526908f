package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"super-odds-alerts/internal/service"
	"super-odds-alerts/internal/storage"
)

// Export writes stored super odds as CSV and/or a PNG chart of boosted
// versus original odds over game time.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store)

	odds, err := svc.ListSuperOdds(ctx, service.ListFilters{SortBy: string(storage.SortGameTimeAsc)})
	if err != nil {
		return err
	}
	if len(odds) == 0 {
		a.Logger.Info().Msg("no super odds stored, nothing to export")
		return nil
	}

	downsampled := downsampleOdds(odds, opts.MaxPoints)
	a.Logger.Info().Int("total", len(odds)).Int("exported", len(downsampled)).Msg("exporting super odds")

	if opts.CSVPath != "" {
		if err := writeOddsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeOddsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleOdds(odds []storage.SuperOdd, max int) []storage.SuperOdd {
	if max <= 0 || len(odds) <= max {
		return odds
	}

	result := make([]storage.SuperOdd, 0, max)
	step := float64(len(odds)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(odds) {
			idx = len(odds) - 1
		}
		result = append(result, odds[idx])
	}
	return result
}

func writeOddsCSV(path string, odds []storage.SuperOdd) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"id", "provider", "provider_id", "game_name", "market_name", "selection_name", "boosted_odd", "original_odd", "game_timestamp", "expire_at_timestamp"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, odd := range odds {
		original := ""
		if odd.OriginalOdd != nil {
			original = odd.OriginalOdd.String()
		}
		record := []string{
			odd.ID,
			odd.Provider,
			odd.ProviderID,
			odd.GameName,
			odd.MarketName,
			odd.SelectionName,
			odd.BoostedOdd.String(),
			original,
			odd.GameTimestamp.UTC().Format(time.RFC3339),
			odd.ExpireAtTimestamp.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeOddsPNG(path string, odds []storage.SuperOdd) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(odds))
	boosted := make([]float64, len(odds))
	original := make([]float64, len(odds))

	for i, odd := range odds {
		x[i] = odd.GameTimestamp
		boosted[i] = odd.BoostedOdd.InexactFloat64()
		if odd.OriginalOdd != nil {
			original[i] = odd.OriginalOdd.InexactFloat64()
		}
	}

	oddFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Odd",
			ValueFormatter: oddFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Boosted",
				XValues: x,
				YValues: boosted,
			},
			chart.TimeSeries{
				Name:    "Original",
				XValues: x,
				YValues: original,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
