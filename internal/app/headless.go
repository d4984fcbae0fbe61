package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/primebench/primebench/internal/export"
	"github.com/primebench/primebench/internal/stream"
)

// HeadlessOptions configures a single non-interactive run.
type HeadlessOptions struct {
	Controller *stream.Controller
	Params     stream.Params
	Out        io.Writer
	Log        *zap.SugaredLogger
	Renderer   *export.ImageRenderer
	ExportDir  string
	CSV        bool
	PNG        bool
	Archive    bool
	// Progress prints one line per accepted item.
	Progress bool
}

// RunHeadless streams one request to completion, prints a summary and
// writes the requested exports. It returns the session error when the run
// did not complete; exports are still written for the items received.
func RunHeadless(ctx context.Context, opts HeadlessOptions) error {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = export.NewImageRenderer(0, 0)
	}

	sess, err := opts.Controller.Start(ctx, opts.Params)
	if err != nil {
		return err
	}

	runErr := pump(ctx, sess, opts)

	snap := sess.Snapshot()
	printSummary(opts.Out, sess, snap.Len())

	src := exportSource{
		SessionID: sess.ID().String(),
		Params:    sess.Params(),
		Status:    sess.Status(),
		Snapshot:  snap,
		Now:       time.Now(),
	}
	type job struct {
		kind  string
		on    bool
		write func() (string, error)
	}
	jobs := []job{
		{"CSV", opts.CSV, func() (string, error) { return writeCSV(opts.ExportDir, src) }},
		{"PNG", opts.PNG, func() (string, error) { return writePNG(ctx, renderer, opts.ExportDir, src) }},
		{"archive", opts.Archive, func() (string, error) { return writeArchive(opts.ExportDir, src) }},
	}
	for _, j := range jobs {
		if !j.on {
			continue
		}
		path, err := j.write()
		if err != nil {
			log.Warnw("export failed", "kind", j.kind, "error", err)
			fmt.Fprintf(opts.Out, "%s export failed: %v\n", j.kind, err)
			continue
		}
		log.Infow("export written", "kind", j.kind, "path", path)
		fmt.Fprintf(opts.Out, "%s written to %s\n", j.kind, path)
	}

	return runErr
}

func pump(ctx context.Context, sess *stream.Session, opts HeadlessOptions) error {
	if !opts.Progress {
		return sess.Run(ctx)
	}
	for !sess.Status().IsTerminal() {
		ev, ok := sess.Next(ctx)
		if !ok {
			if ctx.Err() != nil {
				sess.Cancel()
				break
			}
			ev = stream.Event{Kind: stream.EventError, Err: stream.ErrUnexpectedEOF}
		}
		if sess.Handle(ev) && ev.Kind == stream.EventData {
			snap := sess.Snapshot()
			last := snap.Items[snap.Len()-1]
			fmt.Fprintf(opts.Out, "%4d  %8.6fs  %d digits\n", snap.Len(), last.Elapsed, last.Digits())
		}
	}
	return sess.Err()
}

func printSummary(out io.Writer, sess *stream.Session, n int) {
	agg := sess.Snapshot().Aggregate
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "status\t%s\n", sess.Status())
	if err := sess.Err(); err != nil {
		fmt.Fprintf(w, "error\t%v\n", err)
	}
	fmt.Fprintf(w, "items\t%d/%d\n", n, sess.Params().IterationCount)
	fmt.Fprintf(w, "rejected\t%d\n", sess.Rejected())
	if agg.Count > 0 {
		fmt.Fprintf(w, "mean\t%.6fs\n", agg.Mean)
		fmt.Fprintf(w, "min\t%.6fs\n", agg.Min)
		fmt.Fprintf(w, "max\t%.6fs\n", agg.Max)
		fmt.Fprintf(w, "stddev\t%.6fs\n", agg.StdDev())
	}
	fmt.Fprintf(w, "elapsed\t%s\n", sess.Elapsed().Round(time.Millisecond))
	w.Flush()
}
