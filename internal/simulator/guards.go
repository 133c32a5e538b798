package simulator

// Centralised numeric guards. Every division in the engine that could see a
// zero or near-zero denominator goes through one of these instead of an
// inline max() so the guard conventions stay in one place.

const epsilon = 1e-6

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// atLeast floors v at lo.
func atLeast(v, lo float64) float64 {
	if v < lo {
		return lo
	}
	return v
}

// safeDiv divides with the denominator floored at epsilon.
func safeDiv(num, den float64) float64 {
	return num / atLeast(den, epsilon)
}

// ema moves old toward target by factor alpha.
func ema(old, target, alpha float64) float64 {
	return old + (target-old)*alpha
}
