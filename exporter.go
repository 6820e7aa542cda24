package dpfae

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Exporter defines an export interface.
type Exporter interface {
	Write(StepMetrics) error
	Close() error
}

// CSVHeaders are the columns written by CSVExporter.
var CSVHeaders = []string{"step", "sigma", "chaos", "error_dpfae", "error_ekf", "energy_dpfae", "energy_ekf", "alpha_dpfae", "nis_ekf"}

// CSVExporter writes one line per step to a CSV file.
type CSVExporter struct {
	delimiter string
	hdlr      *os.File
}

// Close writes the closing date and closes the file.
func (e CSVExporter) Close() error {
	return multierr.Append(
		e.WriteRawLn(fmt.Sprintf("# Closing date (UTC): %s", time.Now().UTC())),
		e.hdlr.Close())
}

// Write writes the step metrics to the CSV file.
func (e CSVExporter) Write(m StepMetrics) error {
	vals := []string{
		strconv.Itoa(m.Step),
		fmt.Sprintf("%f", m.Sigma),
		strconv.FormatBool(m.Chaos),
		fmt.Sprintf("%f", m.AngularErrorDP),
		fmt.Sprintf("%f", m.AngularErrorEKF),
		fmt.Sprintf("%f", m.EnergyDP),
		fmt.Sprintf("%f", m.EnergyEKF),
		strconv.FormatInt(m.AlphaDP, 10),
		fmt.Sprintf("%f", m.NISEKF),
	}
	_, err := e.hdlr.WriteString(strings.Join(vals, e.delimiter) + "\n")
	return err
}

// WriteRawLn writes a raw line to the CSV file.
func (e CSVExporter) WriteRawLn(s string) error {
	_, err := e.hdlr.WriteString(s + "\n")
	return err
}

// Name returns the path of the underlying file.
func (e CSVExporter) Name() string {
	return e.hdlr.Name()
}

// NewCSVExporter initializes a new CSV export.
func NewCSVExporter(dir, filename string) (e *CSVExporter, err error) {
	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return
	}
	delimiter := ","
	if _, err = f.WriteString(fmt.Sprintf("# Creation date (UTC): %s\n%s\n", time.Now().UTC(), strings.Join(CSVHeaders, delimiter))); err != nil {
		return nil, multierr.Append(err, f.Close())
	}
	e = &CSVExporter{delimiter, f}
	return
}

// PlotAngularErrors saves a plot of both angular error traces, with the chaos window drawn
// as a step function. The image format follows the file extension (png, svg, pdf, ...).
func PlotAngularErrors(steps []StepMetrics, path string) error {
	dp := make(plotter.XYs, len(steps))
	ekf := make(plotter.XYs, len(steps))
	errs := make([]float64, 0, 2*len(steps))
	for i, m := range steps {
		dp[i] = plotter.XY{X: float64(m.Step), Y: m.AngularErrorDP}
		ekf[i] = plotter.XY{X: float64(m.Step), Y: m.AngularErrorEKF}
		errs = append(errs, m.AngularErrorDP, m.AngularErrorEKF)
	}
	top := 0.0
	if len(errs) > 0 {
		top = floats.Max(errs)
	}
	chaos := make(plotter.XYs, len(steps))
	for i, m := range steps {
		chaos[i].X = float64(m.Step)
		if m.Chaos {
			chaos[i].Y = top
		}
	}

	p := plot.New()
	p.Title.Text = "DPFAE vs EKF angular error"
	p.X.Label.Text = "step"
	p.Y.Label.Text = "error (rad)"
	p.Add(plotter.NewGrid())
	if err := plotutil.AddLines(p, "DPFAE", dp, "EKF", ekf, "chaos pulse", chaos); err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}
