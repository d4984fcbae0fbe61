package app

import (
	"bytes"
	"context"
	"time"

	"github.com/primebench/primebench/internal/export"
	"github.com/primebench/primebench/internal/results"
	"github.com/primebench/primebench/internal/stream"
)

const exportPrefix = "primes"

// exportSource is everything an export needs to know about the run on
// screen.
type exportSource struct {
	SessionID string
	Params    stream.Params
	Status    stream.Status
	Snapshot  results.Snapshot
	Now       time.Time
}

func writeCSV(dir string, src exportSource) (string, error) {
	data, err := export.ToTable(src.Snapshot)
	if err != nil {
		return "", err
	}
	return export.WriteFile(dir, export.FileName(exportPrefix, src.SessionID, "csv", src.Now), data)
}

func writePNG(ctx context.Context, r *export.ImageRenderer, dir string, src exportSource) (string, error) {
	res := <-r.RenderAsync(ctx, src.Snapshot)
	if res.Err != nil {
		return "", res.Err
	}
	return export.WriteFile(dir, export.FileName(exportPrefix, src.SessionID, "png", src.Now), res.PNG)
}

func writeArchive(dir string, src exportSource) (string, error) {
	var buf bytes.Buffer
	a := export.NewArchive(src.SessionID, src.Params, src.Status, src.Snapshot, src.Now)
	if err := export.WriteArchive(&buf, a); err != nil {
		return "", err
	}
	return export.WriteFile(dir, export.FileName(exportPrefix, src.SessionID, "pbarc", src.Now), buf.Bytes())
}
