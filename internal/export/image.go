package export

import (
	"bytes"
	"context"
	"fmt"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/primebench/primebench/internal/results"
)

// CaptureError is returned when a chart cannot be produced from the
// current view.
type CaptureError struct {
	Reason string
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture chart: %s: %v", e.Reason, e.Err)
	}
	return "capture chart: " + e.Reason
}

func (e *CaptureError) Unwrap() error { return e.Err }

const (
	DefaultImageWidth  = 1200
	DefaultImageHeight = 480
)

var (
	seriesColor = drawing.Color{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	meanColor   = drawing.Color{R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff}
)

// ImageRenderer draws elapsed time per item as a line chart with the mean
// as a horizontal reference line.
type ImageRenderer struct {
	Width  int
	Height int
}

// ImageResult is delivered by RenderAsync.
type ImageResult struct {
	PNG []byte
	Err error
}

func NewImageRenderer(width, height int) *ImageRenderer {
	if width <= 0 {
		width = DefaultImageWidth
	}
	if height <= 0 {
		height = DefaultImageHeight
	}
	return &ImageRenderer{Width: width, Height: height}
}

// Render returns snap's chart encoded as PNG.
func (r *ImageRenderer) Render(ctx context.Context, snap results.Snapshot) ([]byte, error) {
	if snap.Len() == 0 {
		return nil, &CaptureError{Reason: "no items to plot"}
	}
	if err := ctx.Err(); err != nil {
		return nil, &CaptureError{Reason: "cancelled", Err: err}
	}

	n := snap.Len()
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, it := range snap.Items {
		xs[i] = float64(i + 1)
		ys[i] = it.Elapsed
	}

	// go-chart refuses zero-width ranges, which a single item or a run of
	// identical times would otherwise produce.
	xMax := math.Max(float64(n), 2)
	yMax := snap.Aggregate.Max * 1.1
	if yMax <= 0 {
		yMax = 1
	}

	mean := snap.Aggregate.Mean
	graph := chart.Chart{
		Width:  r.Width,
		Height: r.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "item",
			Range: &chart.ContinuousRange{Min: 1, Max: xMax},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Name:  "seconds",
			Range: &chart.ContinuousRange{Min: 0, Max: yMax},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "elapsed",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: seriesColor,
					StrokeWidth: 2,
					DotColor:    seriesColor,
					DotWidth:    3,
				},
			},
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("mean %.4fs", mean),
				XValues: []float64{1, xMax},
				YValues: []float64{mean, mean},
				Style: chart.Style{
					StrokeColor:     meanColor,
					StrokeWidth:     2,
					StrokeDashArray: []float64{6, 4},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, &CaptureError{Reason: "render failed", Err: err}
	}
	return buf.Bytes(), nil
}

// RenderAsync runs Render on its own goroutine. The channel receives
// exactly one result and is then closed.
func (r *ImageRenderer) RenderAsync(ctx context.Context, snap results.Snapshot) <-chan ImageResult {
	out := make(chan ImageResult, 1)
	go func() {
		defer close(out)
		png, err := r.Render(ctx, snap)
		out <- ImageResult{PNG: png, Err: err}
	}()
	return out
}
