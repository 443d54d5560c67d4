package bitdepth

// Range is an inclusive interval of sample values.
type Range struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Report contains the final statistics of one analyzed stream.
type Report struct {
	Channels   uint     `json:"channels"`
	StoredBits BitDepth `json:"stored_bits"`

	// SignificantBits is the width needed for the observed values, counting
	// the sign bit only when negative values occur.
	SignificantBits uint `json:"significant_bits"`
	// ActualBits is SignificantBits minus the constant low-order padding.
	ActualBits    uint `json:"actual_bits"`
	TrailingZeros uint `json:"trailing_zeros"`
	TrailingOnes  uint `json:"trailing_ones"`

	ExpectedSamples uint64 `json:"expected_samples,omitempty"`
	ExpectedKnown   bool   `json:"expected_known"`
	ObservedSamples uint64 `json:"observed_samples"`

	// Distinct is only set by deep analysis.
	Distinct *uint64 `json:"distinct,omitempty"`

	PossibleRange Range `json:"possible_range"`
	ObservedRange Range `json:"observed_range"`
}

// SampleCountMismatch reports whether the decoder's nominal frame count
// disagrees with the number of samples actually streamed.
func (r Report) SampleCountMismatch() bool {
	return r.ExpectedKnown && r.ExpectedSamples != r.ObservedSamples
}
