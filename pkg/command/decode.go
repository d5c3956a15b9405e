/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-usbhla/pkg/analyzer"
	"jinr.ru/greenlab/go-usbhla/pkg/config"
	"jinr.ru/greenlab/go-usbhla/pkg/filter"
	"jinr.ru/greenlab/go-usbhla/pkg/log"
	"jinr.ru/greenlab/go-usbhla/pkg/store"
	"jinr.ru/greenlab/go-usbhla/pkg/token"
)

const (
	FormatCSV  = "csv"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

type DecodeOptions struct {
	// Path of the token file
	Path   string
	Format string
	Filter string
	// Trace receives the element by element decode trace, nil means the logger
	Trace io.Writer
	// Store writes records to the record database when set
	Store bool
	// Capture names the stored capture, the file name without extension by default
	Capture string
}

// Decode runs a token file through the analyzer and writes matching records to out
func Decode(ctx context.Context, cfg *config.Config, o DecodeOptions, out io.Writer) error {
	tokens, err := token.Load(o.Path)
	if err != nil {
		return err
	}
	f, err := filter.Compile(o.Filter)
	if err != nil {
		return err
	}
	opts := []analyzer.Option{analyzer.WithDecoderConfig(cfg.Decoder)}
	if o.Trace != nil {
		opts = append(opts, analyzer.WithTrace(o.Trace))
	}
	a := analyzer.New(opts...)

	var printer analyzer.Sink
	switch strings.ToLower(o.Format) {
	case "", FormatCSV:
		printer = &analyzer.CSVSink{W: out, Analyzer: a}
	case FormatYAML:
		printer = analyzer.SinkFunc(func(r *analyzer.Record) error {
			data, err := yaml.Marshal([]*analyzer.Record{r})
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		})
	case FormatJSON:
		enc := json.NewEncoder(out)
		printer = analyzer.SinkFunc(func(r *analyzer.Record) error {
			return enc.Encode(r)
		})
	default:
		return ErrFormat{Format: o.Format}
	}
	sink := analyzer.Sink(&filter.Sink{Filter: f, Next: printer})

	var w *store.Writer
	if o.Store {
		state, err := store.NewState(ctx, cfg.Store.DBPath)
		if err != nil {
			return err
		}
		defer state.Close()
		name := o.Capture
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(o.Path), filepath.Ext(o.Path))
		}
		if err := state.CreateCapture(&store.Capture{Name: name, Base: a.Base()}); err != nil {
			return err
		}
		w = store.NewWriter(state, name)
		printed := sink
		// every record is stored, the filter only applies to the printed output
		sink = analyzer.SinkFunc(func(r *analyzer.Record) error {
			if err := w.Put(r); err != nil {
				return err
			}
			return printed.Put(r)
		})
	}

	if err := a.Process(ctx, tokens, sink); err != nil {
		return fmt.Errorf("decoding %s: %w", o.Path, err)
	}
	log.Debug("Decoded %s: tokens: %d channels: %d", o.Path, len(tokens), a.Table().Len())
	if w != nil {
		return w.Close(a)
	}
	return nil
}
