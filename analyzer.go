/*
   Copyright Mycophonic.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package bitdepth

import "math/bits"

// Analyzer accumulates bit-pattern statistics over a sample stream.
//
// Observe is called once per sample in arrival order, Finalize once after the
// last one. An Analyzer is not safe for concurrent use.
type Analyzer struct {
	info TrackInfo

	minRedundant     uint
	minTrailingZeros uint
	minTrailingOnes  uint
	maxValue         Sample
	minValue         Sample
	samples          uint64

	// nil unless deep analysis was requested.
	distinct map[Sample]struct{}

	report    Report
	finalized bool
}

// NewAnalyzer returns an Analyzer for a stream described by info.
// When deep is set, distinct values are tracked as well; memory then grows
// with the number of different sample values.
func NewAnalyzer(info TrackInfo, deep bool) (*Analyzer, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}

	analyzer := &Analyzer{
		info:             info,
		minRedundant:     SampleBits,
		minTrailingZeros: SampleBits,
		minTrailingOnes:  SampleBits,
	}

	if deep {
		analyzer.distinct = make(map[Sample]struct{})
	}

	return analyzer, nil
}

// Observe folds one sample into the running statistics. It only fails after Finalize.
func (a *Analyzer) Observe(sample Sample) error {
	if a.finalized {
		return ErrFinalized
	}

	u := uint32(sample) //nolint:gosec // Bit pattern reinterpretation.

	a.minRedundant = min(a.minRedundant, redundantLeadingBits(sample))
	a.minTrailingZeros = min(a.minTrailingZeros, uint(bits.TrailingZeros32(u)))
	a.minTrailingOnes = min(a.minTrailingOnes, uint(bits.TrailingZeros32(^u)))
	a.maxValue = max(a.maxValue, sample)
	a.minValue = min(a.minValue, sample)

	if a.distinct != nil {
		a.distinct[sample] = struct{}{}
	}

	a.samples++

	return nil
}

// Finalize derives the report. It must be called exactly once.
func (a *Analyzer) Finalize() error {
	if a.finalized {
		return ErrFinalized
	}

	a.finalized = true

	expected, known := a.info.ExpectedSamples()

	a.report = Report{
		Channels:        a.info.Channels,
		StoredBits:      a.info.BitsPerSample,
		SignificantBits: a.significantBits(),
		TrailingZeros:   a.minTrailingZeros,
		TrailingOnes:    a.minTrailingOnes,
		ExpectedSamples: expected,
		ExpectedKnown:   known,
		ObservedSamples: a.samples,
		PossibleRange:   a.info.PossibleRange(),
		ObservedRange:   Range{Min: int64(a.minValue), Max: int64(a.maxValue)},
	}

	padding := max(a.minTrailingZeros, a.minTrailingOnes)
	if a.report.SignificantBits > padding {
		a.report.ActualBits = a.report.SignificantBits - padding
	}

	if a.distinct != nil {
		distinct := uint64(len(a.distinct))
		a.report.Distinct = &distinct
		a.distinct = nil
	}

	return nil
}

// Report returns the final report, and false if Finalize has not run yet.
func (a *Analyzer) Report() (Report, bool) {
	return a.report, a.finalized
}

func (a *Analyzer) significantBits() uint {
	if a.samples == 0 {
		return 0
	}

	signed := SampleBits - a.minRedundant
	if a.minValue < 0 {
		return signed
	}

	// Never negative: the sign bit carries nothing.
	return signed - 1
}

// redundantLeadingBits counts the leading bits after the sign bit that merely repeat it.
func redundantLeadingBits(sample Sample) uint {
	u := uint32(sample) //nolint:gosec // Bit pattern reinterpretation.
	if sample < 0 {
		u = ^u
	}

	return uint(bits.LeadingZeros32(u)) - 1
}
