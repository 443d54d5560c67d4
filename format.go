package bitdepth

import "fmt"

// Sample is one right-aligned PCM value for one channel.
type Sample = int32

// SampleBits is the storage width of a Sample.
const SampleBits = 32

// BitDepth represents the declared bit depth of PCM audio samples.
type BitDepth uint

// Standard PCM bit depths.
const (
	Depth4  BitDepth = 4
	Depth8  BitDepth = 8
	Depth12 BitDepth = 12
	Depth16 BitDepth = 16
	Depth20 BitDepth = 20
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// BytesPerSample returns the number of bytes a container needs to store one sample.
// Depths that are not a multiple of 8 round up to the next byte.
func (d BitDepth) BytesPerSample() int {
	if d == 0 || d > Depth32 {
		panic(fmt.Sprintf("bitdepth: BytesPerSample called with unsupported bit depth %d", d))
	}

	return int(d+7) / 8 //nolint:gosec // d is 1-32.
}

// ContainerDepth returns the byte-aligned depth used to store d (20 → 24, 12 → 16, 4 → 8).
func (d BitDepth) ContainerDepth() BitDepth {
	return BitDepth(d.BytesPerSample() * 8) //nolint:gosec // 8-32.
}

// TrackInfo is the immutable per-stream metadata handed over by a decoder.
type TrackInfo struct {
	Channels      uint
	BitsPerSample BitDepth
	SampleRate    int
	// TotalFrames is the nominal number of inter-channel frames. Zero means unknown.
	TotalFrames uint64
}

// Validate reports whether info describes a stream the consumers can process.
func (info TrackInfo) Validate() error {
	switch {
	case info.Channels == 0:
		return fmt.Errorf("%w: channel count is zero", ErrConfiguration)
	case info.BitsPerSample == 0 || info.BitsPerSample > Depth32:
		return fmt.Errorf("%w: unsupported bit depth %d", ErrConfiguration, info.BitsPerSample)
	case info.SampleRate <= 0:
		return fmt.Errorf("%w: invalid sample rate %d", ErrConfiguration, info.SampleRate)
	default:
		return nil
	}
}

// ExpectedSamples returns TotalFrames × Channels, and false when the frame count is unknown.
func (info TrackInfo) ExpectedSamples() (uint64, bool) {
	if info.TotalFrames == 0 {
		return 0, false
	}

	return info.TotalFrames * uint64(info.Channels), true
}

// PossibleRange returns the smallest and largest values representable at BitsPerSample.
func (info TrackInfo) PossibleRange() Range {
	half := int64(1) << (info.BitsPerSample - 1)

	return Range{Min: -half, Max: half - 1}
}

// Align converts a left-justified sample stored in containerBits into a
// right-justified value of bits significant bits, using an arithmetic shift.
func Align(raw Sample, containerBits, bits uint) Sample {
	if containerBits <= bits {
		return raw
	}

	return raw >> (containerBits - bits)
}
