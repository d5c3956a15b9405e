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

package analyzer

import (
	"context"
	"fmt"
	"io"

	"jinr.ru/greenlab/go-usbhla/pkg/token"
)

// Sink receives finished records in order
type Sink interface {
	Put(*Record) error
}

type SinkFunc func(*Record) error

func (f SinkFunc) Put(r *Record) error {
	return f(r)
}

// Collector keeps all records in memory
type Collector struct {
	Records []*Record
}

func (c *Collector) Put(r *Record) error {
	c.Records = append(c.Records, r)
	return nil
}

// CSVSink writes the one line trace of each record
type CSVSink struct {
	W        io.Writer
	Analyzer *Analyzer
}

func (s *CSVSink) Put(r *Record) error {
	_, err := fmt.Fprintln(s.W, r.CSV(s.Analyzer.Origin()))
	return err
}

// Process drives tokens through the analyzer into sink and flushes it at the end.
// Cancellation is checked between tokens.
func (a *Analyzer) Process(ctx context.Context, tokens []token.Token, sink Sink) error {
	for i := range tokens {
		if err := ctx.Err(); err != nil {
			return err
		}
		for r := a.Decode(tokens[i]); r != nil; r = a.Next() {
			if err := sink.Put(r); err != nil {
				return fmt.Errorf("token %d: %w", i, err)
			}
		}
	}
	for _, r := range a.Flush() {
		if err := sink.Put(r); err != nil {
			return err
		}
	}
	return nil
}
