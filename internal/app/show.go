package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"super-odds-alerts/internal/service"
)

// Show prints stored super odds in default listing order.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store)

	odds, err := svc.ListSuperOdds(ctx, service.ListFilters{
		HideExpired: opts.HideExpired,
		Limit:       opts.Limit,
	})
	if err != nil {
		return err
	}
	if len(odds) == 0 {
		fmt.Fprintln(os.Stdout, "no super odds found")
		return nil
	}

	now := time.Now().UTC()
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Key\tProvider\tGame\tBoosted\tOriginal\tExpires (UTC)\tActive")

	for _, odd := range odds {
		original := "-"
		if odd.OriginalOdd != nil {
			original = odd.OriginalOdd.StringFixed(2)
		}
		active := "no"
		if odd.IsActive(now) {
			active = "yes"
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			odd.ID,
			odd.Provider,
			sanitizeInline(odd.GameName),
			odd.BoostedOdd.StringFixed(2),
			original,
			odd.ExpireAtTimestamp.UTC().Format(time.RFC3339),
			active,
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
