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
	"fmt"
	"strings"

	"jinr.ru/greenlab/go-usbhla/pkg/hci"
	"jinr.ru/greenlab/go-usbhla/pkg/l2cap"
	"jinr.ru/greenlab/go-usbhla/pkg/log"
	"jinr.ru/greenlab/go-usbhla/pkg/sdp"
	"jinr.ru/greenlab/go-usbhla/pkg/token"
	"jinr.ru/greenlab/go-usbhla/pkg/usb"
)

type State int

const (
	StateIdle State = iota
	StateAddressed
	StateAccumulating
)

func (s State) String() string {
	switch s {
	case StateAddressed:
		return "addressed"
	case StateAccumulating:
		return "accumulating"
	}
	return "idle"
}

// Analyzer assembles tokens of one capture channel into transaction records.
// It is not safe for concurrent use, run one Analyzer per channel.
type Analyzer struct {
	opts       options
	table      *l2cap.Table
	parser     *sdp.Parser
	classifier *hci.Classifier

	// survive the end of a transaction
	addr     uint8
	endpoint uint8
	// kind survives an empty transaction only
	kind      string
	origin    token.Timestamp
	originSet bool
	seq       uint64

	state State
	// a token of the current transaction was seen
	begun         bool
	start         token.Timestamp
	end           token.Timestamp
	payload       []byte
	hasPayload    bool
	text          strings.Builder
	reportStarted bool
	ack           string

	// record withheld until its handshake arrives
	pending  *Record
	parkedAt token.Timestamp
	ready    []*Record
}

func New(opts ...Option) *Analyzer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.base != 16 {
		o.base = 10
	}
	table := o.table
	if table == nil {
		table = l2cap.NewTable()
	}
	parser := sdp.NewParser(o.flushDepth)
	return &Analyzer{
		opts:       o,
		table:      table,
		parser:     parser,
		classifier: hci.NewClassifier(table, parser, o.serviceRange),
	}
}

// Table returns the channel table owned by the analyzer
func (a *Analyzer) Table() *l2cap.Table {
	return a.table
}

func (a *Analyzer) State() State {
	return a.state
}

// Origin is the start time of the first token seen
func (a *Analyzer) Origin() token.Timestamp {
	return a.origin
}

func (a *Analyzer) Base() int {
	return a.opts.base
}

func (a *Analyzer) tracef(format string, args ...interface{}) {
	if a.opts.trace != nil {
		fmt.Fprintf(a.opts.trace, format+"\n", args...)
		return
	}
	log.Trace(format, args...)
}

// Decode consumes one token. It returns a finished record or nil.
// With handshake gating one token may finish two records, the second
// one is returned by Next.
func (a *Analyzer) Decode(tok token.Token) *Record {
	if !a.originSet {
		a.origin = tok.Start
		a.originSet = true
	}
	handshake := tok.Kind == token.KindHandshake || (tok.Kind == token.KindPID && token.IsHandshake(tok.Value))
	direction := tok.Kind == token.KindPID && token.IsDirection(tok.Value)

	if a.pending != nil {
		switch {
		case handshake:
			a.pending.Ack = tok.Value
			a.release()
			return a.Next()
		case direction:
			a.release()
		case a.opts.handshakeTimeout > 0 && tok.Start.Sub(a.parkedAt) > a.opts.handshakeTimeout:
			a.tracef("handshake timeout for record %d", a.pending.Seq)
			a.release()
		}
	}

	switch {
	case direction:
		a.kind = tok.Value
		a.begin(tok)
		a.state = StateAddressed
	case handshake:
		if a.hasPayload {
			a.ack = tok.Value
		}
	case tok.Kind == token.KindAddrEndp:
		a.begin(tok)
		a.addr = tok.Addr
		a.endpoint = tok.Endpoint
	case tok.HasPayload():
		a.begin(tok)
		a.collect(tok)
	case tok.Kind == token.KindEOP:
		a.finalize(tok)
	}
	return a.Next()
}

// begin takes the transaction start from its first token, a direction PID
// always restarts it
func (a *Analyzer) begin(tok token.Token) {
	if a.begun && tok.Kind != token.KindPID {
		return
	}
	a.begun = true
	a.start = tok.Start
}

func (a *Analyzer) collect(tok token.Token) {
	switch tok.Kind {
	case token.KindSetup:
		a.payload = a.payload[:0]
		a.accumulate(setupBytes(tok), tok.End)
	case token.KindReport, token.KindString, token.KindService:
		if !a.reportStarted {
			a.reportStarted = true
			a.tracef("report start %s addr:%d ep:%d", tok.Kind, a.addr, a.endpoint)
		}
		a.accumulate(tok.Data, tok.End)
		a.text.WriteString(tok.Text)
	default:
		a.accumulate(tok.Data, tok.End)
	}
}

// Next returns a further record finished by the last token, or nil
func (a *Analyzer) Next() *Record {
	if len(a.ready) == 0 {
		return nil
	}
	r := a.ready[0]
	a.ready = a.ready[1:]
	return r
}

// Flush returns the records still held, including one waiting for its handshake
func (a *Analyzer) Flush() []*Record {
	if a.pending != nil {
		a.release()
	}
	out := a.ready
	a.ready = nil
	return out
}

func (a *Analyzer) release() {
	a.ready = append(a.ready, a.pending)
	a.pending = nil
}

func (a *Analyzer) accumulate(data []byte, end token.Timestamp) {
	a.payload = append(a.payload, data...)
	a.hasPayload = true
	a.end = end
	a.state = StateAccumulating
}

func (a *Analyzer) finalize(eop token.Token) {
	defer a.reset()
	if !a.hasPayload {
		return
	}
	rec := &Record{
		Kind:     a.kind,
		Addr:     a.addr,
		Endpoint: a.endpoint,
		Ack:      a.ack,
		Data:     append(token.Bytes{}, a.payload...),
		Start:    a.start,
		End:      a.end,
		Display:  DisplayRaw,
		Base:     a.opts.base,
	}
	switch {
	case a.kind == token.PIDSetup:
		rec.Text = usb.DecodeSetup(a.payload)
	case a.opts.designatedEndpoint >= 0 && int(a.endpoint) == a.opts.designatedEndpoint && len(a.payload) > hci.HeaderSize:
		c := a.classifier.Classify(a.payload)
		rec.Text = c.Text
		rec.Channel = c.Kind
		rec.CID = c.CID
		a.traceElements(c)
	case a.text.Len() > 0:
		rec.Text = a.text.String()
	}
	if rec.Text != "" {
		rec.Display = DisplayText
	}
	rec.Payload = RenderPayload(rec.Data, a.opts.base)
	a.kind = ""

	if a.pending != nil {
		a.release()
	}
	a.seq++
	rec.Seq = a.seq
	if a.gated(rec) {
		a.pending = rec
		a.parkedAt = eop.End
		return
	}
	a.ready = append(a.ready, rec)
}

func (a *Analyzer) gated(rec *Record) bool {
	if !a.opts.requireHandshake || rec.Ack != "" {
		return false
	}
	return rec.Kind == token.PIDIn || rec.Kind == token.PIDOut
}

func (a *Analyzer) traceElements(c hci.Classification) {
	for _, item := range c.Items {
		a.tracef("%s%s", strings.Repeat("  ", item.Depth), item.Element)
	}
	if c.ParseErr != nil {
		a.tracef("element decode stopped: %s", c.ParseErr)
		if c.Failed != nil && c.Failed.Text != "" {
			a.tracef("cut element %s", c.Failed.Text)
		}
	}
	if c.Pending > 0 {
		a.tracef("carry-over %d bytes", c.Pending)
	}
}

// reset drops the per transaction state, the address, the channel table
// and the element carry-over are kept
func (a *Analyzer) reset() {
	a.payload = a.payload[:0]
	a.hasPayload = false
	a.text.Reset()
	a.reportStarted = false
	a.ack = ""
	a.begun = false
	a.end = 0
	a.state = StateIdle
}

// setupBytes builds the 8 byte control request header from the decoded
// fields. Multibyte fields arrive as [high, low].
func setupBytes(tok token.Token) []byte {
	out := make([]byte, usb.SetupSize)
	s := tok.Setup
	if s == nil {
		copy(out, tok.Data)
		return out
	}
	out[0] = byteAt(s.RequestType, 0)
	out[1] = byteAt(s.Request, 0)
	out[2], out[3] = lowHigh(s.Value)
	out[4], out[5] = lowHigh(s.Index)
	out[6], out[7] = lowHigh(s.Length)
	return out
}

func byteAt(b token.Bytes, i int) byte {
	if i < len(b) {
		return b[i]
	}
	return 0
}

// lowHigh reorders a [high, low] pair, a single byte is taken as the low one
func lowHigh(b token.Bytes) (byte, byte) {
	if len(b) == 1 {
		return b[0], 0
	}
	return byteAt(b, 1), byteAt(b, 0)
}
