package plot

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"tsevolve/internal/series"
)

const (
	imageWidth  = 6 * vg.Inch
	imageHeight = 4 * vg.Inch
)

var (
	targetColor    = color.RGBA{R: 200, A: 255}
	candidateColor = color.RGBA{G: 140, A: 255}
)

// SaveFrameImage draws the target and one frame to path. The image format
// follows the file extension (png, svg, pdf, ...).
func SaveFrameImage(path string, target []series.Point, frame Frame) error {
	if len(target) == 0 {
		return series.ErrEmptySeries
	}
	p := gonumplot.New()
	p.Title.Text = frame.Label
	p.X.Label.Text = "time"
	p.Y.Label.Text = "value"
	p.X.Tick.Marker = gonumplot.TimeTicks{Format: "15:04"}

	goal, err := plotter.NewLine(timeXYs(target))
	if err != nil {
		return fmt.Errorf("target line: %w", err)
	}
	goal.Color = targetColor
	p.Add(goal)
	p.Legend.Add("target", goal)

	if len(frame.Points) > 0 {
		best, err := plotter.NewLine(timeXYs(frame.Points))
		if err != nil {
			return fmt.Errorf("candidate line: %w", err)
		}
		best.Color = candidateColor
		best.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(best)
		p.Legend.Add("best", best)
	}
	return p.Save(imageWidth, imageHeight, path)
}

// SaveFitnessImage draws a fitness curve to path. Non-finite values are
// skipped since they cannot be placed on an axis.
func SaveFitnessImage(path, title string, points []FitnessPoint) error {
	xys := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		if math.IsInf(pt.Value, 0) || math.IsNaN(pt.Value) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(pt.Generation), Y: pt.Value})
	}
	if len(xys) == 0 {
		return errors.New("no finite fitness values to plot")
	}

	p := gonumplot.New()
	p.Title.Text = title
	p.X.Label.Text = "generation"
	p.Y.Label.Text = "fitness"
	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	line.Color = candidateColor
	p.Add(line)
	return p.Save(imageWidth, imageHeight, path)
}

func timeXYs(points []series.Point) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = float64(pt.Time.UnixNano()) / 1e9
		xys[i].Y = pt.Value
	}
	return xys
}
