package risk

// FavorableChange returns the fractional price move in the position's
// favor: (close-entry)/entry for a long, (entry-close)/entry for a short.
// sign is +1 for long and -1 for short.
func FavorableChange(sign, entry, close float64) float64 {
	if entry == 0 {
		return 0
	}
	return sign * (close - entry) / entry
}
