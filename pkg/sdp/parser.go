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

package sdp

import (
	"errors"
	"fmt"
	"strings"

	"jinr.ru/greenlab/go-usbhla/pkg/log"
)

const (
	DefaultFlushDepth = 1
	// DefaultAttributeDepth is the nesting depth of attribute id/value pairs
	// in a service search attribute response: list of records, record, pair
	DefaultAttributeDepth = 2
	// MaxPending limits the carry-over kept behind an undecodable element
	MaxPending = 64 * 1024
)

type level struct {
	remaining int
	children  int
	typ       ElementType
}

// Item is a decoded element together with the nesting depth it was found at
type Item struct {
	Element
	Depth int
}

// Result describes one Append call
type Result struct {
	Items []Item
	// Lines are the renderings flushed by completed containers
	Lines []string
	// Pending is the carry-over length kept for the next call
	Pending int
	// Err tells why decoding stopped before the end of the data
	Err error
	// Failed is the element decoding stopped at, a cut string carries its fallback text
	Failed *Element
}

// Parser decodes a stream of data elements delivered in arbitrary chunks.
// It keeps the undecoded suffix of the previous chunk and a stack of byte
// counters, one per open container.
type Parser struct {
	// FlushDepth is the deepest container level whose completion flushes the rendering line
	FlushDepth int
	// AttributeDepth is the depth at which 16 bit unsigned values at even
	// positions are rendered as attribute ids
	AttributeDepth int

	pending []byte
	stack   []level
	line    strings.Builder
}

func NewParser(flushDepth int) *Parser {
	return &Parser{
		FlushDepth:     flushDepth,
		AttributeDepth: DefaultAttributeDepth,
	}
}

// Reset drops all state including the carry-over and the open containers
func (p *Parser) Reset() {
	p.pending = nil
	p.stack = nil
	p.line.Reset()
}

// Pending returns the carry-over bytes
func (p *Parser) Pending() []byte {
	return p.pending
}

// Depth returns the number of open containers
func (p *Parser) Depth() int {
	return len(p.stack)
}

// Idle reports whether the parser holds no partial state
func (p *Parser) Idle() bool {
	return len(p.pending) == 0 && len(p.stack) == 0
}

// Append decodes data after the carry-over of the previous call. Consuming
// every byte clears the carry-over but not the open containers, so a
// container split across calls decodes the same as in one call.
func (p *Parser) Append(data []byte) Result {
	var res Result
	buf := make([]byte, 0, len(p.pending)+len(data))
	buf = append(buf, p.pending...)
	buf = append(buf, data...)

	offset := 0
	for offset < len(buf) {
		e, err := Decode(buf, offset, len(buf)-offset)
		if err != nil {
			if errors.Is(err, ErrUnknownHeader) {
				log.Debug("Unknown data element header 0x%02x at offset %d", e.Header, offset)
			}
			res.Err = err
			failed := e
			res.Failed = &failed
			break
		}
		depth := len(p.stack)
		p.render(e, depth)
		for i := range p.stack {
			p.stack[i].remaining -= e.Size
		}
		if depth > 0 {
			p.stack[depth-1].children++
		}
		if e.IsContainer() {
			p.stack = append(p.stack, level{remaining: e.Count, typ: e.Type})
		}
		res.Items = append(res.Items, Item{Element: e, Depth: depth})

		for len(p.stack) > 0 && p.stack[len(p.stack)-1].remaining <= 0 {
			p.stack = p.stack[:len(p.stack)-1]
			p.write(")")
			if len(p.stack) <= p.FlushDepth {
				p.flush(&res)
			}
		}
		if len(p.stack) == 0 {
			p.flush(&res)
		}
		offset += e.Size
	}

	if offset >= len(buf) {
		p.pending = nil
	} else {
		p.pending = buf[offset:]
	}
	if len(p.pending) > MaxPending {
		log.Warning("Dropping %d bytes of data element carry-over", len(p.pending))
		res.Err = ErrCarryOverLimit{Size: len(p.pending)}
		p.Reset()
	}
	res.Pending = len(p.pending)
	return res
}

func (p *Parser) write(s string) {
	if p.line.Len() > 0 {
		p.line.WriteString(" ")
	}
	p.line.WriteString(s)
}

func (p *Parser) flush(res *Result) {
	line := strings.TrimSpace(p.line.String())
	p.line.Reset()
	if line != "" {
		res.Lines = append(res.Lines, line)
	}
}

func (p *Parser) render(e Element, depth int) {
	if e.IsContainer() {
		p.write("(")
		return
	}
	text := e.String()
	switch {
	case e.Type == TypeUint && e.Width == 2 && p.isAttributeID(depth):
		if name, ok := AttributeName(uint16(e.Uint)); ok {
			text = fmt.Sprintf("%s %s", text, name)
		}
	case e.Type == TypeUUID && e.Raw == nil:
		if name, ok := UUIDName(uint32(e.Uint)); ok {
			text = fmt.Sprintf("%s %s", text, name)
		}
	}
	p.write(text)
}

// isAttributeID reports whether the next element at depth sits at an
// attribute id position of an attribute list
func (p *Parser) isAttributeID(depth int) bool {
	if depth == 0 || depth != p.AttributeDepth {
		return false
	}
	parent := p.stack[depth-1]
	return parent.typ == TypeSequence && parent.children%2 == 0
}
