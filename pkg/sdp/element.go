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
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// FallbackByteCap is the number of raw bytes listed when a string element is not valid text
const FallbackByteCap = 16

type ElementType uint8

const (
	TypeNil         ElementType = 0
	TypeUint        ElementType = 1
	TypeInt         ElementType = 2
	TypeUUID        ElementType = 3
	TypeText        ElementType = 4
	TypeBool        ElementType = 5
	TypeSequence    ElementType = 6
	TypeAlternative ElementType = 7
	TypeURL         ElementType = 8
)

var elementTypeNames = map[ElementType]string{
	TypeNil:         "nil",
	TypeUint:        "uint",
	TypeInt:         "int",
	TypeUUID:        "uuid",
	TypeText:        "text",
	TypeBool:        "bool",
	TypeSequence:    "seq",
	TypeAlternative: "alt",
	TypeURL:         "url",
}

func (t ElementType) String() string {
	if name, ok := elementTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type:%d", uint8(t))
}

// Element is one decoded data element
type Element struct {
	Header byte
	Type   ElementType
	// Offset of the header byte in the decoded buffer
	Offset int
	// Size is the number of bytes consumed including the header.
	// For containers only the header is counted.
	Size int
	// Width of a fixed size value in bytes
	Width int
	Uint  uint64
	Int   int64
	// Raw keeps 16 byte integers and 128 bit UUIDs
	Raw  []byte
	Text string
	// Valid is false when a string element is not valid UTF-8 and Text holds the fallback
	Valid bool
	// Count is the declared child byte count of a container
	Count int
}

func (e Element) IsContainer() bool {
	return e.Type == TypeSequence || e.Type == TypeAlternative
}

func (e Element) String() string {
	switch e.Type {
	case TypeNil:
		return "nil"
	case TypeUint, TypeUUID:
		if e.Raw != nil {
			if e.Type == TypeUUID {
				if u, err := uuid.FromBytes(e.Raw); err == nil {
					return u.String()
				}
			}
			return "0x" + hex.EncodeToString(e.Raw)
		}
		return fmt.Sprintf("0x%0*x", e.Width*2, e.Uint)
	case TypeInt:
		if e.Raw != nil {
			return "0x" + hex.EncodeToString(e.Raw)
		}
		return fmt.Sprintf("%d", e.Int)
	case TypeText:
		if !e.Valid {
			return e.Text
		}
		return fmt.Sprintf("%q", e.Text)
	case TypeURL:
		if !e.Valid {
			return e.Text
		}
		return "<" + e.Text + ">"
	case TypeBool:
		if e.Uint == 0 {
			return "false"
		}
		return "true"
	case TypeSequence, TypeAlternative:
		return fmt.Sprintf("%s[%d]", e.Type, e.Count)
	}
	return fmt.Sprintf("0x%02x", e.Header)
}

// fixedWidths maps the size class of integer and UUID elements to the value width
var fixedWidths = [5]int{1, 2, 4, 8, 16}

// lengthWidths maps the size class of strings and containers to the length prefix width
var lengthWidths = map[uint8]int{5: 1, 6: 2, 7: 4}

// headerLayout returns the width of the fixed value, or of the length prefix
// for variable sized elements. ok is false for headers with no known encoding.
func headerLayout(t ElementType, class uint8) (width int, variable bool, ok bool) {
	switch t {
	case TypeNil:
		return 0, false, class == 0
	case TypeUint, TypeInt:
		if class <= 4 {
			return fixedWidths[class], false, true
		}
	case TypeUUID:
		if class <= 2 || class == 4 {
			return fixedWidths[class], false, true
		}
	case TypeBool:
		return 1, false, class == 0
	case TypeText, TypeURL, TypeSequence, TypeAlternative:
		if w, found := lengthWidths[class]; found {
			return w, true, true
		}
	}
	return 0, false, false
}

func readUnsigned(s *kaitai.Stream, width int) (uint64, error) {
	switch width {
	case 1:
		v, err := s.ReadU1()
		return uint64(v), err
	case 2:
		v, err := s.ReadU2be()
		return uint64(v), err
	case 4:
		v, err := s.ReadU4be()
		return uint64(v), err
	}
	return s.ReadU8be()
}

func readSigned(s *kaitai.Stream, width int) (int64, error) {
	switch width {
	case 1:
		v, err := s.ReadS1()
		return int64(v), err
	case 2:
		v, err := s.ReadS2be()
		return int64(v), err
	case 4:
		v, err := s.ReadS4be()
		return int64(v), err
	}
	return s.ReadS8be()
}

// Decode decodes exactly one data element at offset. cbLeft is the number of
// bytes the caller can spend on this element. Decode never panics: an element
// that does not fit returns ErrShortElement, an unknown header ErrUnknownHeader.
func Decode(buf []byte, offset int, cbLeft int) (Element, error) {
	e := Element{Offset: offset}
	if offset < 0 || offset >= len(buf) || cbLeft < 1 {
		return e, ErrShortElement
	}
	avail := len(buf) - offset
	if cbLeft < avail {
		avail = cbLeft
	}
	e.Header = buf[offset]
	e.Type = ElementType(e.Header >> 3)
	class := e.Header & 0x07

	width, variable, ok := headerLayout(e.Type, class)
	if !ok {
		return e, ErrUnknownHeader
	}
	stream := kaitai.NewStream(bytes.NewReader(buf[offset+1 : offset+avail]))

	if !variable {
		e.Size = 1 + width
		e.Width = width
		if e.Size > avail {
			return e, ErrShortElement
		}
		switch {
		case e.Type == TypeNil:
		case width == 16:
			raw, err := stream.ReadBytes(16)
			if err != nil {
				return e, ErrShortElement
			}
			e.Raw = raw
		case e.Type == TypeInt:
			v, err := readSigned(stream, width)
			if err != nil {
				return e, ErrShortElement
			}
			e.Int = v
		default:
			v, err := readUnsigned(stream, width)
			if err != nil {
				return e, ErrShortElement
			}
			e.Uint = v
		}
		return e, nil
	}

	if 1+width > avail {
		e.Size = 1 + width
		return e, ErrShortElement
	}
	declared, err := readUnsigned(stream, width)
	if err != nil {
		return e, ErrShortElement
	}
	e.Width = width
	if e.IsContainer() {
		e.Size = 1 + width
		e.Count = int(declared)
		return e, nil
	}

	e.Size = 1 + width + int(declared)
	if declared > uint64(len(buf)) || e.Size > avail {
		// keep what is there for the diagnostic trace
		e.Text = fallbackText(buf[offset+1+width : offset+avail])
		return e, ErrShortElement
	}
	raw, err := stream.ReadBytes(int(declared))
	if err != nil {
		return e, ErrShortElement
	}
	e.Text, e.Valid = decodeText(raw)
	return e, nil
}

// decodeText validates raw as UTF-8 and trims trailing NULs
func decodeText(raw []byte) (string, bool) {
	if _, _, err := transform.Bytes(encoding.UTF8Validator, raw); err != nil {
		return fallbackText(raw), false
	}
	return strings.TrimRight(string(raw), "\x00"), true
}

// fallbackText lists raw bytes in hex, e.g. "[0xc3 0x28]"
func fallbackText(raw []byte) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, b := range raw {
		if i == FallbackByteCap {
			sb.WriteString(" ...")
			break
		}
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "0x%02x", b)
	}
	sb.WriteString("]")
	return sb.String()
}
