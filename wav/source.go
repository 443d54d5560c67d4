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

package wav

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	bitdepth "github.com/mycophonic/saprobe-bitdepth"
)

const (
	batchFrames      = 4096
	formatPCM        = 1
	formatExtensible = 0xFFFE
	offset8Bit       = 128
)

var (
	// ErrNotWavFile is returned when the input has no RIFF/WAVE header.
	ErrNotWavFile = errors.New("not a WAV file")

	// ErrNotAiffFile is returned when the input has no FORM/AIFF header.
	ErrNotAiffFile = errors.New("not an AIFF file")

	// ErrNotPCM is returned for WAV files that do not carry integer PCM.
	ErrNotPCM = errors.New("only integer PCM is supported")

	// ErrReadFailure is returned when reading PCM data fails.
	ErrReadFailure = errors.New("read failure")
)

// pcmReader is the part of the go-audio decoders a Source reads from.
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Source yields go-audio PCM buffers as per-channel sample batches.
type Source struct {
	dec  pcmReader
	info bitdepth.TrackInfo

	// convert right-aligns and re-signs one raw decoder value.
	convert func(int) bitdepth.Sample

	buf     *goaudio.IntBuffer
	batch   [][]bitdepth.Sample
	pending []int
}

// NewSource opens a PCM WAV stream.
func NewSource(rs io.ReadSeeker) (*Source, error) {
	dec := gowav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}

	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return nil, fmt.Errorf("%w: %w (format tag %d)", bitdepth.ErrConfiguration, ErrNotPCM, dec.WavAudioFormat)
	}

	info := bitdepth.TrackInfo{
		Channels:      uint(dec.NumChans),
		BitsPerSample: bitdepth.BitDepth(dec.BitDepth),
		SampleRate:    int(dec.SampleRate),
	}

	if err := info.Validate(); err != nil {
		return nil, err
	}

	frameBytes := int64(info.BitsPerSample.BytesPerSample()) * int64(info.Channels) //nolint:gosec // Small.
	info.TotalFrames = uint64(dec.PCMLen() / frameBytes)                           //nolint:gosec // Non-negative.

	convert := func(v int) bitdepth.Sample { return bitdepth.Sample(v) } //nolint:gosec // Decoder yields <= 32 bits.
	if info.BitsPerSample == bitdepth.Depth8 {
		// 8-bit WAV is unsigned.
		convert = func(v int) bitdepth.Sample { return bitdepth.Sample(v - offset8Bit) } //nolint:gosec // 0-255.
	}

	return newSource(dec, info, convert), nil
}

// NewAIFFSource opens a PCM AIFF stream. AIFF left-justifies depths that are
// not a multiple of 8; they are shifted back to the declared width.
func NewAIFFSource(rs io.ReadSeeker) (*Source, error) {
	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}

	dec.ReadInfo()

	info := bitdepth.TrackInfo{
		Channels:      uint(dec.NumChans),
		BitsPerSample: bitdepth.BitDepth(dec.BitDepth),
		SampleRate:    dec.SampleRate,
		TotalFrames:   uint64(dec.NumSampleFrames),
	}

	if err := info.Validate(); err != nil {
		return nil, err
	}

	container := uint(info.BitsPerSample.ContainerDepth())
	depth := uint(info.BitsPerSample)

	convert := func(v int) bitdepth.Sample {
		return bitdepth.Align(bitdepth.Sample(v), container, depth) //nolint:gosec // Decoder yields <= 32 bits.
	}

	return newSource(dec, info, convert), nil
}

func newSource(dec pcmReader, info bitdepth.TrackInfo, convert func(int) bitdepth.Sample) *Source {
	nChannels := int(info.Channels) //nolint:gosec // Small.

	batch := make([][]bitdepth.Sample, nChannels)
	for ch := range batch {
		batch[ch] = make([]bitdepth.Sample, 0, batchFrames)
	}

	return &Source{
		dec:     dec,
		info:    info,
		convert: convert,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: nChannels, SampleRate: info.SampleRate},
			Data:           make([]int, batchFrames*nChannels),
			SourceBitDepth: int(info.BitsPerSample),
		},
		batch: batch,
	}
}

// Info returns the stream metadata read from the header.
func (s *Source) Info() bitdepth.TrackInfo { return s.info }

// NextBatch reads up to batchFrames frames. A trailing partial frame is
// carried over to the next call; one left at end of stream is a read failure.
// The returned slices are only valid until the next call.
func (s *Source) NextBatch() ([][]bitdepth.Sample, error) {
	nChannels := len(s.batch)

	s.buf.Data = s.buf.Data[:cap(s.buf.Data)]

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}

	data := append(s.pending, s.buf.Data[:n]...) //nolint:gocritic // pending is owned scratch.
	if len(data) == 0 {
		return nil, io.EOF
	}

	frames := len(data) / nChannels
	if frames == 0 {
		if n == 0 {
			return nil, fmt.Errorf("%w: stream ends inside a frame", ErrReadFailure)
		}

		s.pending = data

		return s.NextBatch()
	}

	for ch := range s.batch {
		s.batch[ch] = s.batch[ch][:0]
	}

	for i, v := range data[:frames*nChannels] {
		ch := i % nChannels
		s.batch[ch] = append(s.batch[ch], s.convert(v))
	}

	s.pending = append(s.pending[:0], data[frames*nChannels:]...)

	return s.batch, nil
}

// Close is a no-op; the caller owns the reader.
func (s *Source) Close() error { return nil }
