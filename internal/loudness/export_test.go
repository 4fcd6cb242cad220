package loudness

// Coefficients returns the pre-filter and RLB coefficients for rate as
// [b0 b1 b2 a1 a2] pairs.
func Coefficients(rate float64) (pre, rlb [5]float64) {
	s, h := shelf(rate), highpass(rate)
	return [5]float64{s.b0, s.b1, s.b2, s.a1, s.a2}, [5]float64{h.b0, h.b1, h.b2, h.a1, h.a2}
}
