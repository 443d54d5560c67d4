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
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	bitdepth "github.com/mycophonic/saprobe-bitdepth"
)

var errPartialFrame = errors.New("stream ends inside a frame")

// Encoder writes a sample stream as integer PCM WAV. It implements bitdepth.Sink.
// Depths that are not a multiple of 8 are stored right-justified in the next
// byte-aligned container.
type Encoder struct {
	enc    *gowav.Encoder
	closer io.Closer
	depth  bitdepth.BitDepth

	buf       *goaudio.IntBuffer
	nChannels int
}

// NewEncoder starts a WAV stream on writer. The header sizes are patched on Close.
func NewEncoder(writer io.WriteSeeker, info bitdepth.TrackInfo) (*Encoder, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}

	nChannels := int(info.Channels) //nolint:gosec // Small.
	container := int(info.BitsPerSample.ContainerDepth())

	return &Encoder{
		enc:   gowav.NewEncoder(writer, info.SampleRate, container, nChannels, formatPCM),
		depth: info.BitsPerSample,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: nChannels, SampleRate: info.SampleRate},
			Data:           make([]int, 0, batchFrames*nChannels),
			SourceBitDepth: container,
		},
		nChannels: nChannels,
	}, nil
}

// WriteSample buffers one interleaved sample and flushes every batchFrames frames.
func (e *Encoder) WriteSample(sample bitdepth.Sample) error {
	value := int(sample)
	if e.depth == bitdepth.Depth8 {
		value += offset8Bit
	}

	e.buf.Data = append(e.buf.Data, value)

	if len(e.buf.Data) == cap(e.buf.Data) {
		return e.flush()
	}

	return nil
}

// Close flushes buffered samples, patches the header, and closes the
// underlying file if the Encoder was created by a SinkFactory.
func (e *Encoder) Close() error {
	var errs []error

	if len(e.buf.Data)%e.nChannels != 0 {
		errs = append(errs, errPartialFrame)
	}

	if len(e.buf.Data) > 0 {
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
	err := e.enc.Write(e.buf)
	e.buf.Data = e.buf.Data[:0]

	if err != nil {
		return fmt.Errorf("writing samples: %w", err)
	}

	return nil
}

// SinkFactory writes each noise width to Dir/Base.noise<k>.wav.
type SinkFactory struct {
	Dir  string
	Base string
}

// Path returns the file a given noise width is written to.
func (f SinkFactory) Path(noiseBits uint) string {
	return filepath.Join(f.Dir, fmt.Sprintf("%s.noise%02d.wav", f.Base, noiseBits))
}

// NewSink creates the output file for noiseBits.
func (f SinkFactory) NewSink(info bitdepth.TrackInfo, noiseBits uint) (bitdepth.Sink, error) {
	path := f.Path(noiseBits)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	enc, err := NewEncoder(file, info)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(path)

		return nil, err
	}

	enc.closer = file

	return enc, nil
}
