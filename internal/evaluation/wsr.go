package evaluation

// WeightedSuccessRate combines per-session success rates, most recent first,
// with the matching weights. Only the weights of sessions actually present
// are summed, so fewer sessions than weights still yield a proper average.
// Sessions beyond the last weight are ignored. With no sessions the neutral
// rate is returned.
func WeightedSuccessRate(rates, weights []float64, neutral float64) float64 {
	var sum, total float64
	for i, rate := range rates {
		if i >= len(weights) {
			break
		}
		sum += rate * weights[i]
		total += weights[i]
	}
	if total == 0 {
		return neutral
	}
	return sum / total
}
