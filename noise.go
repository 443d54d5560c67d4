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

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// DefaultSeed makes generated noise files reproducible across runs.
const DefaultSeed uint64 = 0x5A9B0BE

// Randomizer draws integers uniformly from the half-open interval [lo, hi).
type Randomizer interface {
	Draw(lo, hi int64) int64
}

type pcgRandomizer struct {
	rng *rand.Rand
}

// NewRandomizer returns a deterministic Randomizer seeded with seed.
// It is not safe for concurrent use.
func NewRandomizer(seed uint64) Randomizer {
	return &pcgRandomizer{rng: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))} //nolint:gosec // Reproducible, not secret.
}

func (r *pcgRandomizer) Draw(lo, hi int64) int64 {
	return lo + r.rng.Int64N(hi-lo)
}

// Noisy replaces the noiseBits least significant bits of sample with random bits.
// noiseBits must be below SampleBits; zero leaves the sample unchanged.
func Noisy(sample Sample, noiseBits uint, rng Randomizer) Sample {
	noise := rng.Draw(0, int64(1)<<noiseBits)

	return (sample>>noiseBits)<<noiseBits | Sample(noise) //nolint:gosec // noise < 2^31.
}

// Sink receives the samples of one noise width, interleaved in input order.
type Sink interface {
	WriteSample(sample Sample) error
	Close() error
}

// SinkFactory opens the output for one noise width.
type SinkFactory interface {
	NewSink(info TrackInfo, noiseBits uint) (Sink, error)
}

// NoiseInjector writes one dithered copy of a stream per noise width,
// from 0 (identity) to BitsPerSample-1.
type NoiseInjector struct {
	sinks  []Sink
	rng    Randomizer
	failed error
	closed bool
}

// NewNoiseInjector opens BitsPerSample sinks through factory.
// The injector takes exclusive ownership of rng.
func NewNoiseInjector(info TrackInfo, factory SinkFactory, rng Randomizer) (*NoiseInjector, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}

	sinks := make([]Sink, 0, info.BitsPerSample)

	for noiseBits := range uint(info.BitsPerSample) {
		sink, err := factory.NewSink(info, noiseBits)
		if err != nil {
			for _, opened := range sinks {
				_ = opened.Close()
			}

			return nil, fmt.Errorf("%w: opening %d-bit noise output: %w", ErrSink, noiseBits, err)
		}

		sinks = append(sinks, sink)
	}

	return &NoiseInjector{sinks: sinks, rng: rng}, nil
}

// Observe feeds sample, with each noise width applied, to every sink.
// After a write failure every further call returns that failure.
func (n *NoiseInjector) Observe(sample Sample) error {
	if n.closed {
		return ErrFinalized
	}

	if n.failed != nil {
		return n.failed
	}

	for noiseBits, sink := range n.sinks {
		if err := sink.WriteSample(Noisy(sample, uint(noiseBits), n.rng)); err != nil { //nolint:gosec // < 32.
			n.failed = fmt.Errorf("%w: writing %d-bit noise output: %w", ErrSink, noiseBits, err)

			return n.failed
		}
	}

	return nil
}

// Finalize closes every sink once and returns the combined close errors.
func (n *NoiseInjector) Finalize() error {
	if n.closed {
		return ErrFinalized
	}

	n.closed = true

	var errs []error

	for noiseBits, sink := range n.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%w: closing %d-bit noise output: %w", ErrSink, noiseBits, err))
		}
	}

	return errors.Join(errs...)
}

// Abort releases the sinks after a failed pass. Close errors are dropped in
// favour of the failure that caused the abort.
func (n *NoiseInjector) Abort() {
	if n.closed {
		return
	}

	n.closed = true

	for _, sink := range n.sinks {
		_ = sink.Close()
	}
}

// Widths returns the number of noise outputs.
func (n *NoiseInjector) Widths() int { return len(n.sinks) }
