package synth

import "github.com/cespare/xxhash/v2"

// DeriveSeed combines the global seed with a stable hash of the symbol. The
// result only depends on its inputs, so it is identical across processes.
func DeriveSeed(global uint64, symbol string) uint64 {
	return global*0x9E3779B97F4A7C15 ^ xxhash.Sum64String(symbol)
}
