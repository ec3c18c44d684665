package fetcher

import (
	"github.com/langowen/cryptoconvert/internal/entities"
	"sort"
)

// merge folds per-source tickers into one pair-key table. Sources are given
// in precedence order and the first rate seen for a key wins. Listed pairs of
// every source go before alias pairs of any source. Pairs between two fiat
// currencies and pairs outside allowed (when set) are dropped. wins counts
// the kept rates per ticker source.
func merge(results [][]entities.Ticker, fiat map[string]bool, allowed map[string]bool) (merged map[string]float64, wins map[string]int) {
	merged = make(map[string]float64)
	wins = make(map[string]int)

	for _, alias := range [2]bool{false, true} {
		for _, tickers := range results {
			for _, t := range tickers {
				if t.Alias != alias {
					continue
				}
				if t.Base == "" || t.Quote == "" || t.Base == t.Quote || t.Price <= 0 {
					continue
				}
				if fiat[t.Base] && fiat[t.Quote] {
					continue
				}
				if allowed != nil && (!allowed[t.Base] || !allowed[t.Quote]) {
					continue
				}

				key := t.Key()
				if _, ok := merged[key]; ok {
					continue
				}
				merged[key] = t.Price
				wins[t.Source]++
			}
		}
	}

	return merged, wins
}

// deriveCrypto lists the non-fiat symbols referenced by tickers, sorted.
func deriveCrypto(results [][]entities.Ticker, fiat map[string]bool) []string {
	seen := make(map[string]bool)
	for _, tickers := range results {
		for _, t := range tickers {
			for _, s := range [2]string{t.Base, t.Quote} {
				if s != "" && !fiat[s] {
					seen[s] = true
				}
			}
		}
	}

	return sortedKeys(seen)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func set(values ...[]string) map[string]bool {
	out := make(map[string]bool)
	for _, vs := range values {
		for _, v := range vs {
			out[v] = true
		}
	}
	return out
}
