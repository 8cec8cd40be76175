package charts

import (
	"errors"
	"fmt"
	"math"
	"strings"

	charts "github.com/vicanso/go-charts/v2"
	m "mc.forecast/models"
)

var bandNames = []string{"5th", "50th", "95th"}

// RenderForecastChart draws the three percentile bands as a PNG line chart, x labels are t+0 ... t+S-1
func RenderForecastChart(coin string, result *m.SimulationResult) ([]byte, error) {
	if result == nil {
		return nil, errors.New("no simulation result to chart")
	}

	steps := result.Steps()
	if steps < 2 {
		return nil, fmt.Errorf("need at least 2 steps to chart, got %d", steps)
	}
	if len(result.Fifth) != steps || len(result.NinetyFifth) != steps {
		return nil, fmt.Errorf("band lengths differ: %d, %d, %d", len(result.Fifth), steps, len(result.NinetyFifth))
	}

	xLabels := make([]string, steps)
	for i := range xLabels {
		xLabels[i] = fmt.Sprintf("t+%d", i)
	}

	yMin, yMax, err := yRange(result.Fifth, result.Fiftieth, result.NinetyFifth)
	if err != nil {
		return nil, err
	}

	split := steps - 1
	if split > 10 {
		split = 10
	}

	p, err := charts.LineRender(
		[][]float64{result.Fifth, result.Fiftieth, result.NinetyFifth},
		charts.TitleTextOptionFunc(strings.ToUpper(coin)+" • forecast", fmt.Sprintf("%d steps", steps)),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: bandNames}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// yRange pads the bands' extent by 5%, never less than 0.2% of the top value. Bands may go negative.
func yRange(bands ...m.PercentileBand) (float64, float64, error) {
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, band := range bands {
		for _, v := range band {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, 0, fmt.Errorf("band value %v cannot be charted", v)
			}
			yMin = math.Min(yMin, v)
			yMax = math.Max(yMax, v)
		}
	}

	pad := (yMax - yMin) * 0.05
	if pad < math.Abs(yMax)*0.002 {
		pad = math.Abs(yMax) * 0.002
	}
	if pad == 0 {
		pad = 1
	}
	return yMin - pad, yMax + pad, nil
}
