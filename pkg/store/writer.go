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

package store

import (
	"jinr.ru/greenlab/go-usbhla/pkg/analyzer"
	"jinr.ru/greenlab/go-usbhla/pkg/log"
	"jinr.ru/greenlab/go-usbhla/pkg/token"
)

const DefaultBatchSize = 256

// Writer is an analyzer sink storing records in batches
type Writer struct {
	State     *State
	Capture   string
	BatchSize int
	batch     []*analyzer.Record
}

func NewWriter(s *State, capture string) *Writer {
	return &Writer{State: s, Capture: capture, BatchSize: DefaultBatchSize}
}

func (w *Writer) Put(r *analyzer.Record) error {
	w.batch = append(w.batch, r)
	if len(w.batch) >= w.BatchSize {
		return w.Flush()
	}
	return nil
}

func (w *Writer) Flush() error {
	if len(w.batch) == 0 {
		return nil
	}
	err := w.State.PutRecords(w.Capture, w.batch)
	w.batch = w.batch[:0]
	return err
}

// Close flushes the remaining records and stores the channel table and the
// time origin of the analyzer
func (w *Writer) Close(a *analyzer.Analyzer) error {
	if err := w.Flush(); err != nil {
		return err
	}
	if a == nil {
		return nil
	}
	if err := w.State.SetChannels(w.Capture, a.Table().Entries()); err != nil {
		return err
	}
	c, err := w.State.GetCapture(w.Capture)
	if err != nil {
		return err
	}
	c.Origin = a.Origin()
	return w.State.updateCapture(c)
}

// Ingest decodes tokens into a new capture, replacing a capture of the same name
func (s *State) Ingest(name string, tokens []token.Token, opts ...analyzer.Option) (*Capture, error) {
	a := analyzer.New(opts...)
	if err := s.CreateCapture(&Capture{Name: name, Base: a.Base()}); err != nil {
		return nil, err
	}
	w := NewWriter(s, name)
	if err := a.Process(s.Context, tokens, w); err != nil {
		return nil, err
	}
	if err := w.Close(a); err != nil {
		return nil, err
	}
	c, err := s.GetCapture(name)
	if err != nil {
		return nil, err
	}
	log.Info("Stored capture %s: records: %d channels: %d", name, c.Records, a.Table().Len())
	return c, nil
}
