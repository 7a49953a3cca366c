package loader

import "pricemirror/internal/domain"

// Partition splits symbols into at most w contiguous shards of
// ceil(len/w) symbols each; the last shard takes the remainder. No shard is
// empty, and every input position lands in exactly one shard.
func Partition(symbols []domain.Symbol, w int) [][]domain.Symbol {
	if len(symbols) == 0 {
		return nil
	}
	w = max(w, 1)
	size := (len(symbols) + w - 1) / w

	shards := make([][]domain.Symbol, 0, (len(symbols)+size-1)/size)
	for i := 0; i < len(symbols); i += size {
		end := min(i+size, len(symbols))
		shards = append(shards, symbols[i:end:end])
	}
	return shards
}

// Batches splits one shard into sequential sub-batches of at most size
// symbols. A non-positive size yields a single batch.
func Batches(shard []domain.Symbol, size int) [][]domain.Symbol {
	if len(shard) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(shard)
	}
	var out [][]domain.Symbol
	for i := 0; i < len(shard); i += size {
		end := min(i+size, len(shard))
		out = append(out, shard[i:end:end])
	}
	return out
}

// Unique canonicalises symbols and drops repeats, keeping first occurrences
// in order. Symbols compare case-insensitively and each owns one cache file,
// so a symbol must never reach two shards.
func Unique(symbols []domain.Symbol) []domain.Symbol {
	seen := make(map[domain.Symbol]struct{}, len(symbols))
	out := make([]domain.Symbol, 0, len(symbols))
	for _, s := range symbols {
		s = domain.NewSymbol(string(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
