package repository

// Timeframe is the lookback window requested from a market-data provider.
type Timeframe string

const (
	TF1M Timeframe = "1m"
	TF3M Timeframe = "3m"
	TF6M Timeframe = "6m"
	TF1Y Timeframe = "1y"
)

// Interval is the bar size requested from a market-data provider.
type Interval string

const (
	Interval1D  Interval = "1d"
	Interval1WK Interval = "1wk"
)

// IsValidTimeframe returns true if tf is a supported lookback.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1M, TF3M, TF6M, TF1Y:
		return true
	default:
		return false
	}
}

// DefaultTimeframe covers the default 180-day analysis window.
func DefaultTimeframe() Timeframe { return TF6M }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// NormalizeInterval converts raw string to a valid interval, defaulting to daily.
func NormalizeInterval(s string) Interval {
	switch iv := Interval(s); iv {
	case Interval1D, Interval1WK:
		return iv
	default:
		return Interval1D
	}
}
