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

// saprobe-bitdepth reports how many bits a PCM recording actually uses, or
// writes dithered copies of it truncated to every smaller depth.
//
// Usage:
//
//	saprobe-bitdepth [flags] info|deep|noise <file>...
//
//nolint:gosec // File paths come from CLI args.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	bitdepth "github.com/mycophonic/saprobe-bitdepth"
	"github.com/mycophonic/saprobe-bitdepth/version"
)

const (
	formatFLAC  = "flac"
	formatWAV   = "wav"
	defaultJobs = 4
)

type options struct {
	mode   bitdepth.Mode
	json   bool
	format string
	outDir string
	seed   uint64
}

// fileResult collects the output of one file so that parallel passes print in input order.
type fileResult struct {
	out  bytes.Buffer
	diag bytes.Buffer
	err  error
}

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	jsonOutput := flag.Bool("json", false, "print reports as JSON")
	jobs := flag.Int("jobs", defaultJobs, "number of files processed in parallel")
	outputFormat := flag.String("format", formatFLAC, "noise output format: flac or wav")
	outDir := flag.String("out", "", "noise output directory (default: next to each input)")
	seed := flag.Uint64("seed", bitdepth.DefaultSeed, "noise generator seed")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] info|deep|noise <file>...\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Fprintln(os.Stdout, version.String())
		os.Exit(0)
	}

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}

	mode, err := bitdepth.ParseMode(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *outputFormat != formatFLAC && *outputFormat != formatWAV {
		fmt.Fprintf(os.Stderr, "unknown format %q (use flac or wav)\n", *outputFormat)
		os.Exit(1)
	}

	opts := options{
		mode:   mode,
		json:   *jsonOutput,
		format: *outputFormat,
		outDir: *outDir,
		seed:   *seed,
	}

	os.Exit(run(opts, max(*jobs, 1), flag.Args()[1:], os.Stdout, os.Stderr))
}

// run processes every path independently; a failing file does not stop the others.
func run(opts options, jobs int, paths []string, stdout, stderr io.Writer) int {
	registry := newRegistry()
	results := make([]fileResult, len(paths))

	var group errgroup.Group

	group.SetLimit(jobs)

	for idx, path := range paths {
		group.Go(func() error {
			res := &results[idx]
			res.err = processFile(registry, opts, path, &res.out, &res.diag)

			return nil
		})
	}

	_ = group.Wait()

	status := 0

	for idx, path := range paths {
		res := &results[idx]

		_, _ = res.out.WriteTo(stdout)
		_, _ = res.diag.WriteTo(stderr)

		if res.err != nil {
			fmt.Fprintf(stderr, "%s: error: %v\n", path, res.err)

			status = 1
		}
	}

	return status
}
