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

// Package flac connects FLAC streams to the bit-depth consumers: a Source
// that yields decoded subframes and a noise Sink that writes verbatim frames.
package flac

import (
	"errors"
	"fmt"
	"io"
	"slices"

	goflac "github.com/mewkiz/flac"

	bitdepth "github.com/mycophonic/saprobe-bitdepth"
)

//nolint:gochecknoglobals
var flacBitDepths = []bitdepth.BitDepth{
	bitdepth.Depth4,
	bitdepth.Depth8,
	bitdepth.Depth12,
	bitdepth.Depth16,
	bitdepth.Depth20,
	bitdepth.Depth24,
	bitdepth.Depth32,
}

var (
	// ErrBitDepth is returned when a FLAC stream has an unsupported bit depth.
	ErrBitDepth = errors.New("unsupported bit depth")

	// ErrReadFailure is returned when reading from the FLAC stream fails.
	ErrReadFailure = errors.New("read failure")
)

// Source streams decoded FLAC frames as per-channel sample batches.
type Source struct {
	stream *goflac.Stream
	info   bitdepth.TrackInfo
	batch  [][]bitdepth.Sample
}

// NewSource opens a FLAC stream. The caller should call Close when done.
func NewSource(rs io.ReadSeeker) (*Source, error) {
	stream, err := goflac.New(rs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}

	streamInfo := stream.Info

	depth := bitdepth.BitDepth(streamInfo.BitsPerSample)
	if !slices.Contains(flacBitDepths, depth) {
		_ = stream.Close()

		return nil, fmt.Errorf("%w: %w %d", bitdepth.ErrConfiguration, ErrBitDepth, depth)
	}

	info := bitdepth.TrackInfo{
		Channels:      uint(streamInfo.NChannels),
		BitsPerSample: depth,
		SampleRate:    int(streamInfo.SampleRate),
		TotalFrames:   streamInfo.NSamples,
	}

	if err = info.Validate(); err != nil {
		_ = stream.Close()

		return nil, err
	}

	return &Source{
		stream: stream,
		info:   info,
		batch:  make([][]bitdepth.Sample, info.Channels),
	}, nil
}

// Info returns the stream metadata taken from STREAMINFO.
func (s *Source) Info() bitdepth.TrackInfo { return s.info }

// NextBatch decodes the next frame. The returned slices are only valid until the next call.
func (s *Source) NextBatch() ([][]bitdepth.Sample, error) {
	audioFrame, err := s.stream.ParseNext()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}

	if len(audioFrame.Subframes) != len(s.batch) {
		return nil, fmt.Errorf("%w: frame has %d subframes, stream has %d channels",
			ErrReadFailure, len(audioFrame.Subframes), len(s.batch))
	}

	blockSize := int(audioFrame.BlockSize)

	for ch, subframe := range audioFrame.Subframes {
		s.batch[ch] = subframe.Samples[:blockSize:blockSize]
	}

	return s.batch, nil
}

// Close releases resources held by the FLAC stream.
func (s *Source) Close() error {
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("closing flac stream: %w", err)
	}

	return nil
}

// Decode reads a FLAC stream and decodes it to interleaved little-endian signed PCM bytes.
// Native container width is preserved (16-bit FLAC produces s16le, 20-bit produces s24le, etc.).
func Decode(rs io.ReadSeeker) ([]byte, bitdepth.TrackInfo, error) {
	src, err := NewSource(rs)
	if err != nil {
		return nil, bitdepth.TrackInfo{}, err
	}
	defer src.Close()

	info := src.Info()
	bytesPerSample := info.BitsPerSample.BytesPerSample()

	var pcm []byte

	for {
		batch, batchErr := src.NextBatch()
		if errors.Is(batchErr, io.EOF) {
			return pcm, info, nil
		}

		if batchErr != nil {
			return nil, bitdepth.TrackInfo{}, fmt.Errorf("decoding flac: %w", batchErr)
		}

		pcm = interleave(pcm, batch, bytesPerSample)
	}
}

// interleave appends decoded subframe samples to dst as interleaved little-endian signed PCM.
func interleave(dst []byte, subframes [][]bitdepth.Sample, bytesPerSample int) []byte {
	if len(subframes) == 0 {
		return dst
	}

	for i := range subframes[0] {
		for _, samples := range subframes {
			s := samples[i]
			for b := range bytesPerSample {
				dst = append(dst, byte(s>>(8*b)))
			}
		}
	}

	return dst
}
