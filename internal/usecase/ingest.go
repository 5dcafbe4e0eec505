package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"

	"FinInfluence/internal/domain/models"
	xhttp "FinInfluence/pkg/http"
)

const (
	MsgNoPrices = "No stock prices provided"
	MsgTooFew   = "Need at least 2 stocks for correlation analysis"
)

// ParseSnapshots decodes a request body holding either
// {"stock_prices": {SYM: {...}}} or the bare {SYM: {...}} mapping and
// returns the validated snapshots sorted by symbol.
func ParseSnapshots(ctx context.Context, body []byte) (models.SnapshotSet, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, models.NewInputError("invalid JSON body: %v", err)
	}

	entries := top
	if raw, ok := top["stock_prices"]; ok {
		entries = nil
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, models.NewInputError("stock_prices must be an object")
		}
	}
	return BuildSnapshots(ctx, entries)
}

// BuildSnapshots validates one raw entry per symbol. Keys are used verbatim
// as symbols; a blank key is rejected.
func BuildSnapshots(ctx context.Context, entries map[string]json.RawMessage) (models.SnapshotSet, error) {
	if len(entries) == 0 {
		return nil, models.NewInputError(MsgNoPrices)
	}
	if len(entries) < 2 {
		return nil, models.NewInputError(MsgTooFew)
	}

	set := make(models.SnapshotSet, 0, len(entries))
	for sym, raw := range entries {
		if strings.TrimSpace(sym) == "" {
			return nil, models.NewInputError("empty symbol")
		}

		var in models.SnapshotInput
		dec := json.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(&in); err != nil {
			return nil, models.NewInputError("invalid snapshot for %s: %v", sym, err)
		}
		if errs := xhttp.ValidateStruct(ctx, &in); len(errs) > 0 {
			return nil, models.NewInputError("invalid snapshot for %s: %s", sym, errs[0].Message)
		}
		set = append(set, in.Snapshot(sym))
	}

	sort.Slice(set, func(i, j int) bool { return set[i].Symbol < set[j].Symbol })
	return set, nil
}
