package models

// SnapshotInput is one instrument's entry as it arrives on the wire, keyed by
// symbol in the request mapping. Only Price and ChangePercent feed the
// analysis; a missing ChangePercent means flat.
type SnapshotInput struct {
	Price         *float64 `json:"price" validate:"required,gt=0"`
	ChangePercent *float64 `json:"changePercent"`
	Change        float64  `json:"change,omitempty"`
	Volume        float64  `json:"volume,omitempty"`
	MarketCap     float64  `json:"marketCap,omitempty"`
}

// Snapshot resolves defaults. Call only after validation.
func (in SnapshotInput) Snapshot(symbol string) Snapshot {
	s := Snapshot{
		Symbol:    symbol,
		Price:     *in.Price,
		Change:    in.Change,
		Volume:    in.Volume,
		MarketCap: in.MarketCap,
	}
	if in.ChangePercent != nil {
		s.ChangePercent = *in.ChangePercent
	}
	return s
}

// Snapshot is the validated, immutable view of one instrument at request time.
type Snapshot struct {
	Symbol        string
	Price         float64
	ChangePercent float64
	Change        float64
	Volume        float64
	MarketCap     float64
}

// SnapshotSet is the request's snapshots sorted by symbol.
type SnapshotSet []Snapshot

func (s SnapshotSet) Symbols() []string {
	out := make([]string, len(s))
	for i, snap := range s {
		out[i] = snap.Symbol
	}
	return out
}
