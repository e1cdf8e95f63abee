package risk

import "math"

// SharesForNotional returns the whole-share size whose notional does not
// exceed maxValue at price. Non-positive or non-finite inputs size to zero.
func SharesForNotional(maxValue, price float64) int64 {
	if price <= 0 || maxValue <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	return int64(math.Floor(maxValue / price))
}
