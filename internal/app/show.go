package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// Show prints recent observations per target as a table.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	targets, err := a.loadTargets()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = a.Config.Monitoring.Lookback
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Target\tTime (UTC)\tValue")

	printed := 0
	for _, target := range targets {
		history, err := store.RecentHistory(ctx, target.ID, lookback)
		if err != nil {
			return err
		}
		if opts.Limit > 0 && len(history) > opts.Limit {
			history = history[len(history)-opts.Limit:]
		}
		for _, obs := range history {
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\n",
				obs.TargetID,
				obs.Timestamp.UTC().Format(time.RFC3339),
				decimal.NewFromFloat(obs.Value).String(),
			)
			printed++
		}
	}

	if printed == 0 {
		fmt.Fprintln(os.Stdout, "no observations found")
		return nil
	}
	return writer.Flush()
}
