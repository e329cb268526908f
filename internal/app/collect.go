package app

import (
	"context"
	"fmt"
	"os"
)

// Collect triggers a single reconciliation pass and prints the number of
// records that reached a terminal create/update outcome.
func (a *App) Collect(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store)

	processed, err := svc.CollectLocked(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%d super odds processed\n", processed)
	return nil
}
