package bitdepth_test

import (
	"errors"
	"reflect"
	"testing"

	bitdepth "github.com/mycophonic/saprobe-bitdepth"
)

func info16() bitdepth.TrackInfo {
	return bitdepth.TrackInfo{Channels: 1, BitsPerSample: bitdepth.Depth16, SampleRate: 44100}
}

func analyze(t *testing.T, info bitdepth.TrackInfo, deep bool, samples ...bitdepth.Sample) bitdepth.Report {
	t.Helper()

	analyzer, err := bitdepth.NewAnalyzer(info, deep)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	for _, s := range samples {
		if err = analyzer.Observe(s); err != nil {
			t.Fatalf("Observe(%d): %v", s, err)
		}
	}

	if err = analyzer.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	report, ok := analyzer.Report()
	if !ok {
		t.Fatal("Report not available after Finalize")
	}

	return report
}

func TestSignificantBits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		samples []bitdepth.Sample
		want    uint
	}{
		{"no samples", nil, 0},
		{"all zero", []bitdepth.Sample{0, 0, 0}, 0},
		{"all ones", []bitdepth.Sample{-1, -1}, 1},
		{"zero and minus one", []bitdepth.Sample{0, -1, 0}, 1},
		{"zero and one", []bitdepth.Sample{0x0000, 0x0001}, 1},
		{"0x4000 and zero", []bitdepth.Sample{0x4000, 0x0000}, 15},
		{"16-bit extremes", []bitdepth.Sample{-32768, 32767}, 16},
		{"0x7FFF and -0x7FFF", []bitdepth.Sample{0x7FFF, -0x7FFF}, 16},
		{"positive full range", []bitdepth.Sample{0, 32767}, 15},
		{"small negative", []bitdepth.Sample{-2, 1}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			report := analyze(t, info16(), false, tt.samples...)
			if report.SignificantBits != tt.want {
				t.Errorf("SignificantBits = %d, want %d", report.SignificantBits, tt.want)
			}
		})
	}
}

func TestSignificantBits32BitExtremes(t *testing.T) {
	t.Parallel()

	info := bitdepth.TrackInfo{Channels: 2, BitsPerSample: bitdepth.Depth32, SampleRate: 192000}

	report := analyze(t, info, false, -1<<31, 1<<31-1)
	if report.SignificantBits != 32 {
		t.Errorf("SignificantBits = %d, want 32", report.SignificantBits)
	}

	if report.PossibleRange != (bitdepth.Range{Min: -1 << 31, Max: 1<<31 - 1}) {
		t.Errorf("PossibleRange = %+v", report.PossibleRange)
	}
}

func TestZeroAndOneScenario(t *testing.T) {
	t.Parallel()

	report := analyze(t, info16(), false, 0x0000, 0x0001)

	if report.SignificantBits != 1 {
		t.Errorf("SignificantBits = %d, want 1", report.SignificantBits)
	}

	if report.TrailingZeros != 0 {
		t.Errorf("TrailingZeros = %d, want 0", report.TrailingZeros)
	}

	if report.ObservedRange != (bitdepth.Range{Min: 0, Max: 1}) {
		t.Errorf("ObservedRange = %+v, want [0,1]", report.ObservedRange)
	}
}

func TestSilence(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 7, 4096} {
		report := analyze(t, info16(), false, make([]bitdepth.Sample, n)...)

		if report.SignificantBits > 1 {
			t.Errorf("n=%d: SignificantBits = %d, want 0 or 1", n, report.SignificantBits)
		}

		if report.ObservedRange != (bitdepth.Range{}) {
			t.Errorf("n=%d: ObservedRange = %+v, want [0,0]", n, report.ObservedRange)
		}

		if report.ActualBits != 0 {
			t.Errorf("n=%d: ActualBits = %d, want 0", n, report.ActualBits)
		}
	}
}

func TestEmptyStream(t *testing.T) {
	t.Parallel()

	report := analyze(t, info16(), true)

	if report.SignificantBits != 0 || report.ActualBits != 0 {
		t.Errorf("SignificantBits = %d, ActualBits = %d, want 0, 0", report.SignificantBits, report.ActualBits)
	}

	if report.ObservedSamples != 0 {
		t.Errorf("ObservedSamples = %d, want 0", report.ObservedSamples)
	}

	if report.Distinct == nil || *report.Distinct != 0 {
		t.Errorf("Distinct = %v, want 0", report.Distinct)
	}

	if report.TrailingZeros != bitdepth.SampleBits || report.TrailingOnes != bitdepth.SampleBits {
		t.Errorf("trailing runs = %d/%d, want %d", report.TrailingZeros, report.TrailingOnes, bitdepth.SampleBits)
	}
}

func TestTrailingRuns(t *testing.T) {
	t.Parallel()

	// 8-bit material zero-padded into 16 bits.
	padded := analyze(t, info16(), false, 0x0100, -0x0200, 0x7F00, 0)

	if padded.TrailingZeros != 8 {
		t.Errorf("TrailingZeros = %d, want 8", padded.TrailingZeros)
	}

	if padded.TrailingOnes != 0 {
		t.Errorf("TrailingOnes = %d, want 0", padded.TrailingOnes)
	}

	if padded.SignificantBits != 16 {
		t.Errorf("SignificantBits = %d, want 16", padded.SignificantBits)
	}

	if padded.ActualBits != 8 {
		t.Errorf("ActualBits = %d, want 8", padded.ActualBits)
	}

	// One-padded: every sample ends in 0b1111.
	onePadded := analyze(t, info16(), false, 0x002F, 0x00FF, -1)

	if onePadded.TrailingOnes != 4 {
		t.Errorf("TrailingOnes = %d, want 4", onePadded.TrailingOnes)
	}

	if onePadded.ActualBits != onePadded.SignificantBits-4 {
		t.Errorf("ActualBits = %d, want %d", onePadded.ActualBits, onePadded.SignificantBits-4)
	}
}

func TestDistinct(t *testing.T) {
	t.Parallel()

	samples := []bitdepth.Sample{3, 3, -3, 0, 3, 0}

	deep := analyze(t, info16(), true, samples...)
	if deep.Distinct == nil {
		t.Fatal("deep analysis did not report distinct values")
	}

	if *deep.Distinct != 3 {
		t.Errorf("Distinct = %d, want 3", *deep.Distinct)
	}

	shallow := analyze(t, info16(), false, samples...)
	if shallow.Distinct != nil {
		t.Errorf("shallow analysis reported Distinct = %d", *shallow.Distinct)
	}
}

func TestObservedSampleCount(t *testing.T) {
	t.Parallel()

	info := bitdepth.TrackInfo{Channels: 2, BitsPerSample: bitdepth.Depth24, SampleRate: 96000, TotalFrames: 3}

	report := analyze(t, info, false, 1, 2, 3, 4, 5, 6)
	if report.ObservedSamples != 6 {
		t.Errorf("ObservedSamples = %d, want 6", report.ObservedSamples)
	}

	if !report.ExpectedKnown || report.ExpectedSamples != 6 {
		t.Errorf("ExpectedSamples = %d (known %v), want 6", report.ExpectedSamples, report.ExpectedKnown)
	}

	if report.SampleCountMismatch() {
		t.Error("SampleCountMismatch() = true, want false")
	}

	short := analyze(t, info, false, 1, 2, 3, 4)
	if !short.SampleCountMismatch() {
		t.Error("SampleCountMismatch() = false for 4 of 6 samples")
	}
}

func TestUnknownFrameCount(t *testing.T) {
	t.Parallel()

	report := analyze(t, info16(), false, 1, 2)

	if report.ExpectedKnown {
		t.Error("ExpectedKnown = true for TotalFrames = 0")
	}

	if report.SampleCountMismatch() {
		t.Error("SampleCountMismatch() = true with unknown frame count")
	}
}

func TestAnalyzerIdempotent(t *testing.T) {
	t.Parallel()

	samples := []bitdepth.Sample{-12345, 0x4000, 7, 7, -1, 0, 32767}

	first := analyze(t, info16(), true, samples...)
	second := analyze(t, info16(), true, samples...)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("reports differ:\n%+v\n%+v", first, second)
	}
}

func TestAnalyzerFinalizeOnce(t *testing.T) {
	t.Parallel()

	analyzer, err := bitdepth.NewAnalyzer(info16(), false)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	if _, ok := analyzer.Report(); ok {
		t.Error("Report available before Finalize")
	}

	if err = analyzer.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if err = analyzer.Finalize(); !errors.Is(err, bitdepth.ErrFinalized) {
		t.Errorf("second Finalize error = %v, want ErrFinalized", err)
	}

	if err = analyzer.Observe(1); !errors.Is(err, bitdepth.ErrFinalized) {
		t.Errorf("Observe after Finalize error = %v, want ErrFinalized", err)
	}
}

func TestNewAnalyzerRejectsInvalidInfo(t *testing.T) {
	t.Parallel()

	for _, info := range []bitdepth.TrackInfo{
		{Channels: 0, BitsPerSample: 16, SampleRate: 44100},
		{Channels: 2, BitsPerSample: 0, SampleRate: 44100},
		{Channels: 2, BitsPerSample: 33, SampleRate: 44100},
		{Channels: 2, BitsPerSample: 16, SampleRate: 0},
	} {
		if _, err := bitdepth.NewAnalyzer(info, false); !errors.Is(err, bitdepth.ErrConfiguration) {
			t.Errorf("NewAnalyzer(%+v) error = %v, want ErrConfiguration", info, err)
		}
	}
}
