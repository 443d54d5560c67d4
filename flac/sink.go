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
	"fmt"
	"os"
	"path/filepath"

	bitdepth "github.com/mycophonic/saprobe-bitdepth"
)

// SinkFactory writes each noise width to Dir/Base.noise<k>.flac.
type SinkFactory struct {
	Dir  string
	Base string
}

// Path returns the file a given noise width is written to.
func (f SinkFactory) Path(noiseBits uint) string {
	return filepath.Join(f.Dir, fmt.Sprintf("%s.noise%02d.flac", f.Base, noiseBits))
}

// NewSink creates the output file for noiseBits and starts a FLAC stream in it.
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
