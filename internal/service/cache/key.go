package cache

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"FinInfluence/internal/domain/models"
)

// Key identifies a snapshot by content: symbols ascending, each as
// SYMBOL:price:changePercent with price at 2 decimals and change at 1,
// joined by "_". Rounding is half away from zero.
func Key(snaps models.SnapshotSet) string {
	sorted := make(models.SnapshotSet, len(snaps))
	copy(sorted, snaps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	parts := make([]string, len(sorted))
	for i, s := range sorted {
		parts[i] = s.Symbol + ":" +
			decimal.NewFromFloat(s.Price).StringFixed(2) + ":" +
			decimal.NewFromFloat(s.ChangePercent).StringFixed(1)
	}
	return strings.Join(parts, "_")
}
