package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	bitdepth "github.com/mycophonic/saprobe-bitdepth"
	"github.com/mycophonic/saprobe-bitdepth/flac"
	"github.com/mycophonic/saprobe-bitdepth/wav"
)

const testFrames = 10000

// fixture writes a stereo 16-bit file of 12-bit material padded with four zero bits.
func fixture(t *testing.T, dir, name string) string {
	t.Helper()

	info := bitdepth.TrackInfo{Channels: 2, BitsPerSample: bitdepth.Depth16, SampleRate: 44100, TotalFrames: testFrames}
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	var sink bitdepth.Sink

	if strings.HasSuffix(name, ".wav") {
		sink, err = wav.NewEncoder(f, info)
	} else {
		sink, err = flac.NewEncoder(f, info)
	}

	if err != nil {
		t.Fatalf("encoder: %v", err)
	}

	for i := range testFrames * 2 {
		sample := bitdepth.Sample(i%4096-2048) << 4 //nolint:gosec // Small.
		if err = sink.WriteSample(sample); err != nil {
			t.Fatalf("WriteSample: %v", err)
		}
	}

	if err = sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	return path
}

func TestRunInfo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{fixture(t, dir, "a.flac"), fixture(t, dir, "b.wav")}

	var stdout, stderr bytes.Buffer

	status := run(options{mode: bitdepth.ModeInfo}, 2, paths, &stdout, &stderr)
	if status != 0 {
		t.Fatalf("status = %d, stderr:\n%s", status, stderr.String())
	}

	out := stdout.String()

	for _, want := range []string{
		"significant: 16\n",
		"actual: 12\n",
		"trailing 0s: 4\n",
		"expected samples: 20,000\n",
		"streamed samples: 20,000\n",
		"possible sample range: -32,768 … 32,767\n",
		"streamed sample range: -32,768 … 32,752\n",
	} {
		if strings.Count(out, want) != 2 {
			t.Errorf("output does not contain %q for both files:\n%s", want, out)
		}
	}

	if strings.Contains(out, "distinct samples") {
		t.Error("info mode reported distinct samples")
	}

	// Results keep input order.
	if strings.Index(out, paths[0]) > strings.Index(out, paths[1]) {
		t.Errorf("output out of order:\n%s", out)
	}
}

func TestRunDeepJSON(t *testing.T) {
	t.Parallel()

	path := fixture(t, t.TempDir(), "deep.flac")

	var stdout, stderr bytes.Buffer

	if status := run(options{mode: bitdepth.ModeDeep, json: true}, 1, []string{path}, &stdout, &stderr); status != 0 {
		t.Fatalf("status = %d, stderr:\n%s", status, stderr.String())
	}

	var doc struct {
		File string `json:"file"`
		bitdepth.Report
	}

	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, stdout.String())
	}

	if doc.File != path {
		t.Errorf("file = %q, want %q", doc.File, path)
	}

	if doc.SignificantBits != 16 || doc.ActualBits != 12 {
		t.Errorf("significant/actual = %d/%d, want 16/12", doc.SignificantBits, doc.ActualBits)
	}

	if doc.Distinct == nil || *doc.Distinct != 4096 {
		t.Errorf("distinct = %v, want 4096", doc.Distinct)
	}
}

func TestRunNoise(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outDir := t.TempDir()
	path := fixture(t, dir, "noisy.wav")

	var stdout, stderr bytes.Buffer

	opts := options{mode: bitdepth.ModeNoise, format: formatWAV, outDir: outDir, seed: 7}
	if status := run(opts, 1, []string{path}, &stdout, &stderr); status != 0 {
		t.Fatalf("status = %d, stderr:\n%s", status, stderr.String())
	}

	if got := strings.Count(stdout.String(), ": wrote "); got != 16 {
		t.Errorf("reported %d outputs, want 16:\n%s", got, stdout.String())
	}

	factory := wav.SinkFactory{Dir: outDir, Base: "noisy"}
	for noiseBits := range uint(16) {
		if _, err := os.Stat(factory.Path(noiseBits)); err != nil {
			t.Errorf("missing output for width %d: %v", noiseBits, err)
		}
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := fixture(t, dir, "good.flac")
	paths := []string{
		filepath.Join(dir, "notes.txt"),
		filepath.Join(dir, "missing.flac"),
		good,
	}

	var stdout, stderr bytes.Buffer

	if status := run(options{mode: bitdepth.ModeInfo}, 4, paths, &stdout, &stderr); status != 1 {
		t.Errorf("status = %d, want 1", status)
	}

	if !strings.Contains(stdout.String(), good) {
		t.Errorf("valid file not reported:\n%s", stdout.String())
	}

	diag := stderr.String()
	if !strings.Contains(diag, "notes.txt: error: unsupported file type") {
		t.Errorf("missing unsupported-type error:\n%s", diag)
	}

	if !strings.Contains(diag, "missing.flac: error:") {
		t.Errorf("missing open error:\n%s", diag)
	}
}
