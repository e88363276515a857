package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"photo-filters/internal/processing/chain"
)

var errUsage = errors.New("usage error")

// Run dispatches one CLI command.
func (a *Application) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "filters":
		return a.runFilters()
	case "apply":
		return a.runApply(ctx, rest)
	case "list":
		return a.runList(ctx)
	case "export":
		return a.runExport(ctx, rest)
	case "delete":
		return a.runDelete(ctx, rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		return errUsage
	}
}

func (a *Application) runFilters() error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tRANGE\tDEFAULT")
	for _, d := range a.catalog.Descriptors() {
		if d.IsParametric() {
			fmt.Fprintf(w, "%s\t%s\t%g..%g\t%g\n", d.Name, d.Kind, d.Bounds.Min, d.Bounds.Max, d.Bounds.Default)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t-\t-\n", d.Name, d.Kind)
	}
	return w.Flush()
}

func (a *Application) runApply(ctx context.Context, args []string) error {
	fs := newFlagSet("apply")
	in := fs.String("in", "", "input image file")
	out := fs.String("out", "", "write the result to this file")
	cumulative := fs.Bool("cumulative", false, "apply each step to the previous result")
	save := fs.Bool("save", false, "store the result in the gallery")
	stats := fs.Bool("stats", false, "print operation timings")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *in == "" {
		fmt.Fprintln(fs.Output(), "apply: -in is required")
		return errUsage
	}

	steps, err := chain.ParseSteps(fs.Args())
	if err != nil {
		return err
	}

	if _, err := a.images.LoadFromFile(ctx, *in); err != nil {
		return err
	}
	a.session.SetCumulative(*cumulative)

	if _, err := chain.New(steps).Execute(ctx, a.session); err != nil {
		return err
	}

	result := a.session.Current()
	if info, err := result.Config(); err == nil {
		fmt.Fprintf(a.out, "result: %s, %d bytes\n", info, result.Len())
	}

	if *out != "" {
		if err := os.WriteFile(*out, result.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", *out, err)
		}
		fmt.Fprintf(a.out, "wrote %s\n", *out)
	}

	if *save {
		id, err := a.gallery.SaveCurrent(ctx, a.session)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "saved as %d\n", id)
	}

	a.logTimings()
	if *stats {
		return a.printStats()
	}
	return nil
}

func (a *Application) runList(ctx context.Context) error {
	entries, err := a.gallery.Entries(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSIZE\tIMAGE")
	for _, e := range entries {
		desc := "unreadable"
		if e.Err == nil {
			desc = e.Info.String()
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", e.Record.ID, e.Record.CreatedAt.Local().Format(time.DateTime), len(e.Record.Data), desc)
	}
	return w.Flush()
}

func (a *Application) runExport(ctx context.Context, args []string) error {
	fs := newFlagSet("export")
	id := fs.Int64("id", 0, "saved image id")
	out := fs.String("out", "", "destination file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *id == 0 || *out == "" {
		fmt.Fprintln(fs.Output(), "export: -id and -out are required")
		return errUsage
	}

	img, err := a.gallery.Get(ctx, *id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, img.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *out, err)
	}

	fmt.Fprintf(a.out, "exported %d to %s\n", *id, *out)
	return nil
}

func (a *Application) runDelete(ctx context.Context, args []string) error {
	fs := newFlagSet("delete")
	id := fs.Int64("id", 0, "saved image id")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *id == 0 {
		fmt.Fprintln(fs.Output(), "delete: -id is required")
		return errUsage
	}

	if err := a.gallery.Delete(ctx, *id); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "deleted %d\n", *id)
	return nil
}

func (a *Application) printStats() error {
	stats, err := a.metrics.Operations()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OPERATION\tCOUNT\tTOTAL")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%.2fms\n", s.Operation, s.Count, s.SumMillis)
	}
	return w.Flush()
}

func (a *Application) logTimings() {
	for op, stats := range a.tracker.Summary() {
		a.logger.Debug(appComponent, "timing", map[string]interface{}{
			"operation": op,
			"count":     stats.Count,
			"mean":      stats.Mean.String(),
			"max":       stats.Max.String(),
		})
	}
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}
