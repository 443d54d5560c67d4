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

package flac

import (
	"errors"
	"fmt"
	"io"
	"slices"

	goflac "github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	bitdepth "github.com/mycophonic/saprobe-bitdepth"
)

var errPCMLengthMismatch = errors.New("pcm length is not a multiple of frame size")

const defaultBlockSize = 4096

// Encodable bit depths (4-bit excluded: no frame header bit pattern in FLAC spec).
//
//nolint:gochecknoglobals
var encodableBitDepths = []bitdepth.BitDepth{
	bitdepth.Depth8,
	bitdepth.Depth12,
	bitdepth.Depth16,
	bitdepth.Depth20,
	bitdepth.Depth24,
	bitdepth.Depth32,
}

// Encoder writes a sample stream as verbatim FLAC frames, one block at a time.
// It implements bitdepth.Sink.
type Encoder struct {
	enc    *goflac.Encoder
	closer io.Closer
	info   bitdepth.TrackInfo

	// Per-channel block buffers, reused across frames.
	channels [][]int32
	channel  int
	frames   int
}

// NewEncoder starts a FLAC stream on writer. When writer is an io.WriteSeeker
// STREAMINFO is rewritten on Close with the final sample count and checksum.
func NewEncoder(writer io.Writer, info bitdepth.TrackInfo) (*Encoder, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}

	if !slices.Contains(encodableBitDepths, info.BitsPerSample) {
		return nil, fmt.Errorf("%w: %w %d", bitdepth.ErrConfiguration, ErrBitDepth, info.BitsPerSample)
	}

	streamInfo := &meta.StreamInfo{
		BlockSizeMin:  defaultBlockSize,
		BlockSizeMax:  defaultBlockSize,
		SampleRate:    uint32(info.SampleRate),    //nolint:gosec // SampleRate is always positive and fits uint32.
		NChannels:     uint8(info.Channels),       //nolint:gosec // Channels is 1-8, fits uint8.
		BitsPerSample: uint8(info.BitsPerSample),  //nolint:gosec // BitDepth is 8-32, fits uint8.
		NSamples:      info.TotalFrames,
	}

	// The encoder closes writers that implement io.Closer; ownership stays with the caller.
	enc, err := goflac.NewEncoder(hideCloser(writer), streamInfo)
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}

	channels := make([][]int32, info.Channels)
	for ch := range channels {
		channels[ch] = make([]int32, defaultBlockSize)
	}

	return &Encoder{enc: enc, info: info, channels: channels}, nil
}

// WriteSample appends one interleaved sample; a frame is written every full block.
func (e *Encoder) WriteSample(sample bitdepth.Sample) error {
	e.channels[e.channel][e.frames] = sample
	e.channel++

	if e.channel < len(e.channels) {
		return nil
	}

	e.channel = 0
	e.frames++

	if e.frames == defaultBlockSize {
		return e.flush()
	}

	return nil
}

// Close writes the partial block, finalizes the stream, and closes the
// underlying writer if the Encoder was created by a SinkFactory.
func (e *Encoder) Close() error {
	var errs []error

	if e.channel != 0 {
		errs = append(errs, fmt.Errorf("%w: stream ends inside a frame", errPCMLengthMismatch))
	}

	if e.frames > 0 {
		if err := e.flush(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := e.enc.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing encoder: %w", err))
	}

	if e.closer != nil {
		if err := e.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing output: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (e *Encoder) flush() error {
	blockSize := e.frames
	e.frames = 0

	for ch := range e.channels {
		e.channels[ch] = e.channels[ch][:blockSize]
	}

	err := e.enc.WriteFrame(buildFrame(e.channels, blockSize, e.info))

	for ch := range e.channels {
		e.channels[ch] = e.channels[ch][:defaultBlockSize]
	}

	if err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}

	return nil
}

// Encode writes interleaved little-endian signed PCM bytes as a FLAC stream to writer.
// It is the inverse of Decode.
func Encode(writer io.Writer, pcm []byte, info bitdepth.TrackInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	bytesPerSample := info.BitsPerSample.BytesPerSample()
	frameSize := int(info.Channels) * bytesPerSample //nolint:gosec // Channels is 1-8, fits int.

	if len(pcm)%frameSize != 0 {
		return fmt.Errorf("%w: pcm=%d, frame=%d", errPCMLengthMismatch, len(pcm), frameSize)
	}

	info.TotalFrames = uint64(len(pcm) / frameSize) //nolint:gosec // Always positive.

	enc, err := NewEncoder(writer, info)
	if err != nil {
		return err
	}

	for pos := 0; pos < len(pcm); pos += bytesPerSample {
		if err = enc.WriteSample(readSample(pcm[pos:pos+bytesPerSample])); err != nil {
			_ = enc.Close()

			return err
		}
	}

	return enc.Close()
}

// readSample decodes one little-endian sample, sign-extending from the container's top bit.
func readSample(b []byte) bitdepth.Sample {
	var u uint32
	for i, v := range b {
		u |= uint32(v) << (8 * i)
	}

	shift := 32 - 8*len(b)

	return bitdepth.Sample(u<<shift) >> shift //nolint:gosec // Bit pattern reinterpretation.
}

// buildFrame constructs a FLAC frame from per-channel int32 samples.
func buildFrame(channels [][]int32, blockSize int, info bitdepth.TrackInfo) *frame.Frame {
	nChannels := len(channels)
	chanAssignment := frame.Channels(nChannels - 1) //nolint:gosec // nChannels is 1-8, always >= 1.

	subframes := make([]*frame.Subframe, nChannels)
	for ch := range nChannels {
		subframes[ch] = &frame.Subframe{
			SubHeader: frame.SubHeader{
				Pred: frame.PredVerbatim,
			},
			Samples:  channels[ch],
			NSamples: blockSize,
		}
	}

	return &frame.Frame{
		Header: frame.Header{
			HasFixedBlockSize: true,
			BlockSize:         uint16(blockSize),       //nolint:gosec // blockSize <= 4096, fits uint16.
			SampleRate:        uint32(info.SampleRate), //nolint:gosec // SampleRate is always positive.
			Channels:          chanAssignment,
			BitsPerSample:     uint8(info.BitsPerSample), //nolint:gosec // BitDepth is 8-32, fits uint8.
		},
		Subframes: subframes,
	}
}

// hideCloser strips Close from writer so the FLAC encoder leaves it open,
// while keeping Seek visible when writer supports it.
func hideCloser(writer io.Writer) io.Writer {
	if ws, ok := writer.(io.WriteSeeker); ok {
		return struct{ io.WriteSeeker }{ws}
	}

	return struct{ io.Writer }{writer}
}
