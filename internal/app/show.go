package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"mps-price-alerts/internal/storage"
)

// Show prints recent samples or alerts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show samples")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Alerts {
		return a.showAlerts(ctx, store, opts.Limit)
	}
	return a.showSamples(ctx, store, opts.Limit)
}

func (a *App) showSamples(ctx context.Context, store storage.SampleStore, limit int) error {
	samples, err := store.ListRecentSamples(ctx, limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no samples found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tPrice\tBlock\tState")

	for _, sample := range samples {
		block := ""
		if sample.BlockNumber != nil {
			block = strconv.FormatInt(*sample.BlockNumber, 10)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			sample.ObservedAt.UTC().Format(time.RFC3339),
			formatDecimal(sample.Price, 4),
			block,
			sample.State,
		)
	}

	writer.Flush()
	return nil
}

func (a *App) showAlerts(ctx context.Context, store storage.AlertStore, limit int) error {
	alerts, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tPrice\tLower\tUpper")

	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			alert.ObservedAt.UTC().Format(time.RFC3339),
			formatDecimal(alert.Price, 4),
			formatDecimal(alert.LowerLimit, 4),
			formatDecimal(alert.UpperLimit, 4),
		)
	}

	writer.Flush()
	return nil
}
