package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	bitdepth "github.com/mycophonic/saprobe-bitdepth"
	"github.com/mycophonic/saprobe-bitdepth/flac"
	"github.com/mycophonic/saprobe-bitdepth/wav"
)

var errUnsupportedFile = errors.New("unsupported file type")

func newRegistry() *bitdepth.Registry {
	registry := bitdepth.NewRegistry()

	registry.Register("flac", func(rs io.ReadSeeker) (bitdepth.Source, error) { return flac.NewSource(rs) })
	registry.Register("wav", func(rs io.ReadSeeker) (bitdepth.Source, error) { return wav.NewSource(rs) })

	openAIFF := func(rs io.ReadSeeker) (bitdepth.Source, error) { return wav.NewAIFFSource(rs) }
	registry.Register("aif", openAIFF)
	registry.Register("aiff", openAIFF)

	return registry
}

func processFile(registry *bitdepth.Registry, opts options, path string, out, diag io.Writer) error {
	opener, ok := registry.ForPath(path)
	if !ok {
		return fmt.Errorf("%w: %q", errUnsupportedFile, filepath.Ext(path))
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	src, err := opener(file)
	if err != nil {
		return err
	}
	defer src.Close()

	if opts.mode == bitdepth.ModeNoise {
		return writeNoise(src, opts, path, out)
	}

	return analyze(src, opts, path, out, diag)
}

func analyze(src bitdepth.Source, opts options, path string, out, diag io.Writer) error {
	analyzer, err := bitdepth.NewAnalyzer(src.Info(), opts.mode == bitdepth.ModeDeep)
	if err != nil {
		return err
	}

	if err = bitdepth.Pump(src, analyzer); err != nil {
		return err
	}

	report, _ := analyzer.Report()

	printer := message.NewPrinter(language.English)

	if report.SampleCountMismatch() {
		printer.Fprintf(diag, "%s: warning: expected %d samples, streamed %d\n",
			path, report.ExpectedSamples, report.ObservedSamples)
	}

	if opts.json {
		return writeJSON(out, path, report)
	}

	printReport(printer, out, path, report)

	return nil
}

func writeNoise(src bitdepth.Source, opts options, path string, out io.Writer) error {
	dir := opts.outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var factory interface {
		bitdepth.SinkFactory
		Path(noiseBits uint) string
	}

	if opts.format == formatWAV {
		factory = wav.SinkFactory{Dir: dir, Base: base}
	} else {
		factory = flac.SinkFactory{Dir: dir, Base: base}
	}

	injector, err := bitdepth.NewNoiseInjector(src.Info(), factory, bitdepth.NewRandomizer(opts.seed))
	if err != nil {
		return err
	}

	if err = bitdepth.Pump(src, injector); err != nil {
		return err
	}

	for noiseBits := range uint(injector.Widths()) { //nolint:gosec // <= 32.
		fmt.Fprintf(out, "%s: wrote %s\n", path, factory.Path(noiseBits))
	}

	return nil
}

func writeJSON(out io.Writer, path string, report bitdepth.Report) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")

	doc := struct {
		File string `json:"file"`
		bitdepth.Report
	}{File: path, Report: report}

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	return nil
}

func printReport(printer *message.Printer, out io.Writer, path string, report bitdepth.Report) {
	printer.Fprintf(out, "%s\n", path)
	printer.Fprintf(out, "channels: %d\n", report.Channels)
	printer.Fprintf(out, "stored bits: %d\n", report.StoredBits)
	printer.Fprintf(out, "significant: %d\n", report.SignificantBits)
	printer.Fprintf(out, "actual: %d\n", report.ActualBits)
	printer.Fprintf(out, "trailing 0s: %d\n", report.TrailingZeros)
	printer.Fprintf(out, "trailing 1s: %d\n", report.TrailingOnes)

	if report.ExpectedKnown {
		printer.Fprintf(out, "expected samples: %d\n", report.ExpectedSamples)
	} else {
		printer.Fprintf(out, "expected samples: unknown\n")
	}

	printer.Fprintf(out, "streamed samples: %d\n", report.ObservedSamples)

	if report.Distinct != nil {
		printer.Fprintf(out, "distinct samples: %d\n", *report.Distinct)
	}

	printer.Fprintf(out, "possible sample range: %d … %d\n", report.PossibleRange.Min, report.PossibleRange.Max)
	printer.Fprintf(out, "streamed sample range: %d … %d\n", report.ObservedRange.Min, report.ObservedRange.Max)
}
