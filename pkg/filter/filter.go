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

package filter

import (
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"jinr.ru/greenlab/go-usbhla/pkg/analyzer"
)

// Env is what a filter expression sees of a record
type Env struct {
	Seq      uint64  `expr:"seq"`
	Kind     string  `expr:"kind"`
	Addr     int     `expr:"addr"`
	Endpoint int     `expr:"endpoint"`
	Ack      string  `expr:"ack"`
	Text     string  `expr:"text"`
	Data     []int   `expr:"data"`
	Size     int     `expr:"size"`
	Payload  string  `expr:"payload"`
	Start    float64 `expr:"start"`
	End      float64 `expr:"end"`
	Display  string  `expr:"display"`
	Channel  string  `expr:"channel"`
	CID      int     `expr:"cid"`
}

func NewEnv(r *analyzer.Record) Env {
	data := make([]int, len(r.Data))
	for i, b := range r.Data {
		data[i] = int(b)
	}
	return Env{
		Seq:      r.Seq,
		Kind:     r.Kind,
		Addr:     int(r.Addr),
		Endpoint: int(r.Endpoint),
		Ack:      r.Ack,
		Text:     r.Text,
		Data:     data,
		Size:     len(r.Data),
		Payload:  r.Payload,
		Start:    float64(r.Start),
		End:      float64(r.End),
		Display:  string(r.Display),
		Channel:  string(r.Channel),
		CID:      int(r.CID),
	}
}

// Filter is a compiled boolean expression over records, e.g.
//   kind == "IN" && channel == "hidp" && text startsWith "DATA"
// A nil Filter matches every record.
type Filter struct {
	source  string
	program *vm.Program
}

// Compile returns nil for an empty expression
func Compile(source string) (*Filter, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, nil
	}
	program, err := expr.Compile(source, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, ErrFilterCompile{Source: source, Err: err}
	}
	return &Filter{source: source, program: program}, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

func (f *Filter) Match(r *analyzer.Record) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, NewEnv(r))
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}

// Sink passes matching records on to Next
type Sink struct {
	Filter *Filter
	Next   analyzer.Sink
}

func (s *Sink) Put(r *analyzer.Record) error {
	ok, err := s.Filter.Match(r)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return s.Next.Put(r)
}
