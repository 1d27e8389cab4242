package quotes

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Supported history timeframes
const (
	Timeframe5Min  = "5m"
	Timeframe1Week = "1w"
	Timeframe1Mon  = "1m"
)

// smaPeriod is the moving-average window applied to every series
const smaPeriod = 5

type timeframeShape struct {
	points int
	step   float64
}

var timeframeShapes = map[string]timeframeShape{
	Timeframe5Min:  {points: 10, step: 0.5},
	Timeframe1Week: {points: 14, step: 2},
	Timeframe1Mon:  {points: 30, step: 5},
}

// SeriesStats summarises a price series
type SeriesStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// History is a simulated price series for one symbol
type History struct {
	Symbol    string      `json:"symbol"`
	Timeframe string      `json:"timeframe"`
	Data      []float64   `json:"data"`
	SMA       []*float64  `json:"sma"`
	Stats     SeriesStats `json:"stats"`
}

// NormalizeTimeframe maps unknown timeframes to one month
func NormalizeTimeframe(tf string) string {
	if _, ok := timeframeShapes[tf]; ok {
		return tf
	}
	return Timeframe1Mon
}

// SimulatedSeries generates a linear series centred on price:
// point i is price + (i - n/2) * step.
func SimulatedSeries(price float64, timeframe string) []float64 {
	shape := timeframeShapes[NormalizeTimeframe(timeframe)]
	offset := shape.points / 2

	data := make([]float64, shape.points)
	for i := range data {
		data[i] = roundCents(price + float64(i-offset)*shape.step)
	}
	return data
}

// BuildHistory generates the series for symbol and attaches its indicators
func BuildHistory(symbol string, price float64, timeframe string) History {
	tf := NormalizeTimeframe(timeframe)
	data := SimulatedSeries(price, tf)

	return History{
		Symbol:    symbol,
		Timeframe: tf,
		Data:      data,
		SMA:       movingAverage(data, smaPeriod),
		Stats:     seriesStats(data),
	}
}

// movingAverage returns the SMA aligned with data; the warm-up points are nil
func movingAverage(data []float64, period int) []*float64 {
	out := make([]*float64, len(data))
	if len(data) < period {
		return out
	}

	sma := talib.Sma(data, period)
	for i := period - 1; i < len(sma); i++ {
		if math.IsNaN(sma[i]) {
			continue
		}
		v := roundCents(sma[i])
		out[i] = &v
	}
	return out
}

func seriesStats(data []float64) SeriesStats {
	if len(data) == 0 {
		return SeriesStats{}
	}
	return SeriesStats{
		Mean:   roundCents(stat.Mean(data, nil)),
		StdDev: roundCents(stat.StdDev(data, nil)),
		Min:    floats.Min(data),
		Max:    floats.Max(data),
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
