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
	"io"
)

var errUnknownMode = errors.New("unknown mode")

// Consumer is fed a decoded stream one sample at a time.
// *Analyzer and *NoiseInjector implement it.
type Consumer interface {
	Observe(sample Sample) error
	Finalize() error
}

// Source yields a decoded stream as per-channel batches.
type Source interface {
	Info() TrackInfo
	// NextBatch returns one slice per channel, all of equal length.
	// It returns io.EOF once the stream is exhausted.
	NextBatch() ([][]Sample, error)
	Close() error
}

// Pump drains src into consumer, interleaving each batch frame by frame in
// channel order, and finalizes consumer at end of stream.
func Pump(src Source, consumer Consumer) error {
	nChannels := int(src.Info().Channels) //nolint:gosec // Channel counts are small.

	for {
		batch, err := src.NextBatch()
		if errors.Is(err, io.EOF) {
			return consumer.Finalize()
		}

		if err != nil {
			abort(consumer)

			return fmt.Errorf("%w: %w", ErrStream, err)
		}

		if err = pumpBatch(batch, nChannels, consumer); err != nil {
			abort(consumer)

			return err
		}
	}
}

func pumpBatch(batch [][]Sample, nChannels int, consumer Consumer) error {
	if len(batch) != nChannels {
		return fmt.Errorf("%w: batch has %d channels, stream has %d", ErrStream, len(batch), nChannels)
	}

	if nChannels == 0 {
		return nil
	}

	blockSize := len(batch[0])

	for ch, samples := range batch {
		if len(samples) != blockSize {
			return fmt.Errorf("%w: channel %d has %d samples, channel 0 has %d", ErrStream, ch, len(samples), blockSize)
		}
	}

	for i := range blockSize {
		for _, samples := range batch {
			if err := consumer.Observe(samples[i]); err != nil {
				return err
			}
		}
	}

	return nil
}

func abort(consumer Consumer) {
	if aborter, ok := consumer.(interface{ Abort() }); ok {
		aborter.Abort()
	}
}

// Mode selects which consumer a pass runs.
type Mode int

// Supported modes.
const (
	// ModeInfo runs the Analyzer without distinct-value tracking.
	ModeInfo Mode = iota
	// ModeDeep runs the Analyzer and counts distinct values.
	ModeDeep
	// ModeNoise runs the NoiseInjector.
	ModeNoise
)

func (m Mode) String() string {
	switch m {
	case ModeInfo:
		return "info"
	case ModeDeep:
		return "deep"
	case ModeNoise:
		return "noise"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a command name to a Mode.
func ParseMode(name string) (Mode, error) {
	for _, mode := range []Mode{ModeInfo, ModeDeep, ModeNoise} {
		if mode.String() == name {
			return mode, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", errUnknownMode, name)
}
