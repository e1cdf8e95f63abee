package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rustyeddy/pead/analysis"
)

const ComparisonFile = "sharpe_comparison.csv"

// WriteComparison writes base/comparison/sharpe_comparison.csv ranking the
// symbols by Sharpe ratio, best first. Undefined ratios sort last.
func WriteComparison(base string, stats []analysis.Stats) (string, error) {
	dir := filepath.Join(base, "comparison")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create comparison dir: %w", err)
	}

	ranked := make([]analysis.Stats, len(stats))
	copy(ranked, stats)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Sharpe, ranked[j].Sharpe
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})

	rows := make([][]string, len(ranked))
	for i, s := range ranked {
		rows[i] = []string{s.Symbol, fp(s.Sharpe)}
	}
	path := filepath.Join(dir, ComparisonFile)
	if err := writeTable(path, []string{"Stock", "Sharpe Ratio"}, rows); err != nil {
		return "", err
	}
	return path, nil
}
