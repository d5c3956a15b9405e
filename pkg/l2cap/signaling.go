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

package l2cap

import (
	"encoding/binary"
	"fmt"
	"strings"
)

type Code uint8

const (
	CodeCommandReject         Code = 0x01
	CodeConnectionRequest     Code = 0x02
	CodeConnectionResponse    Code = 0x03
	CodeConfigureRequest      Code = 0x04
	CodeConfigureResponse     Code = 0x05
	CodeDisconnectionRequest  Code = 0x06
	CodeDisconnectionResponse Code = 0x07
	CodeEchoRequest           Code = 0x08
	CodeEchoResponse          Code = 0x09
	CodeInformationRequest    Code = 0x0A
	CodeInformationResponse   Code = 0x0B
)

var codeNames = map[Code]string{
	CodeCommandReject:         "CMD_REJECT",
	CodeConnectionRequest:     "CONN_REQ",
	CodeConnectionResponse:    "CONN_RSP",
	CodeConfigureRequest:      "CONF_REQ",
	CodeConfigureResponse:     "CONF_RSP",
	CodeDisconnectionRequest:  "DISC_REQ",
	CodeDisconnectionResponse: "DISC_RSP",
	CodeEchoRequest:           "ECHO_REQ",
	CodeEchoResponse:          "ECHO_RSP",
	CodeInformationRequest:    "INFO_REQ",
	CodeInformationResponse:   "INFO_RSP",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CMD:0x%02x", uint8(c))
}

var connResults = map[uint16]string{
	0x0000: "success",
	0x0001: "pending",
	0x0002: "PSM not supported",
	0x0003: "security block",
	0x0004: "no resources",
}

var connStatuses = map[uint16]string{
	0x0000: "none",
	0x0001: "authentication pending",
	0x0002: "authorization pending",
}

var confResults = map[uint16]string{
	0x0000: "success",
	0x0001: "unacceptable parameters",
	0x0002: "rejected",
	0x0003: "unknown options",
	0x0004: "pending",
	0x0005: "flow spec rejected",
}

var infoTypes = map[uint16]string{
	0x0001: "connectionless MTU",
	0x0002: "extended features",
	0x0003: "fixed channels",
}

var infoResults = map[uint16]string{
	0x0000: "success",
	0x0001: "not supported",
}

var rejectReasons = map[uint16]string{
	0x0000: "not understood",
	0x0001: "MTU exceeded",
	0x0002: "invalid CID",
}

const optionMTU = 0x01

func lookupName(names map[uint16]string, v uint16) string {
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("0x%04x", v)
}

// field8 reads one byte, ok is false when off is out of range
func field8(payload []byte, off int) (uint8, bool) {
	if off < 0 || off >= len(payload) {
		return 0, false
	}
	return payload[off], true
}

// field16 reads a little endian word, ok is false when off+2 passes the end
func field16(payload []byte, off int) (uint16, bool) {
	if off < 0 || off+2 > len(payload) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(payload[off : off+2]), true
}

// line accumulates the rendering of one command. The first failed field
// read appends " (except)" and the rest of the command is skipped.
type line struct {
	payload []byte
	off     int
	sb      strings.Builder
	failed  bool
}

func (l *line) u16() (uint16, bool) {
	v, ok := field16(l.payload, l.off)
	if !ok {
		l.except()
		return 0, false
	}
	l.off += 2
	return v, true
}

func (l *line) except() {
	if !l.failed {
		l.failed = true
		l.sb.WriteString(" (except)")
	}
}

func (l *line) add(format string, args ...interface{}) {
	l.sb.WriteString(" ")
	fmt.Fprintf(&l.sb, format, args...)
}

// Decoder renders signaling commands and keeps the channel table up to date
type Decoder struct {
	Table *Table
}

func NewDecoder(table *Table) *Decoder {
	return &Decoder{Table: table}
}

// Decode renders the signaling command starting at offset. It never fails,
// a command cut short is rendered up to the missing field.
func (d *Decoder) Decode(payload []byte, offset int) string {
	c, ok := field8(payload, offset)
	if !ok {
		return "CMD (except)"
	}
	code := Code(c)

	// fields are read within the declared length only
	data := payload[min(offset+4, len(payload)):]
	if length, ok := field16(payload, offset+2); ok && int(length) < len(data) {
		data = data[:length]
	}
	l := &line{payload: data}
	l.sb.WriteString(code.String())

	switch code {
	case CodeCommandReject:
		reason, ok := l.u16()
		if !ok {
			break
		}
		l.add("reason:%s", lookupName(rejectReasons, reason))

	case CodeConnectionRequest:
		psm, ok := l.u16()
		if !ok {
			break
		}
		l.add("PSM:%s", PSM(psm))
		scid, ok := l.u16()
		if !ok {
			break
		}
		d.Table.Register(scid, PSM(psm), RoleRequester)
		l.add("SCID:%s", d.Table.Label(scid))

	case CodeConnectionResponse:
		dcid, ok := l.u16()
		if !ok {
			break
		}
		scid, ok := l.u16()
		if !ok {
			break
		}
		if src, found := d.Table.Lookup(scid); found && dcid != 0 {
			d.Table.Register(dcid, src.PSM, RoleResponder)
		}
		l.add("DCID:%s SCID:%s", d.Table.Label(dcid), d.Table.Label(scid))
		result, ok := l.u16()
		if !ok {
			break
		}
		l.add("result:%s", lookupName(connResults, result))
		status, ok := l.u16()
		if !ok {
			break
		}
		l.add("status:%s", lookupName(connStatuses, status))

	case CodeConfigureRequest:
		dcid, ok := l.u16()
		if !ok {
			break
		}
		l.add("DCID:%s", d.Table.Label(dcid))
		flags, ok := l.u16()
		if !ok {
			break
		}
		l.add("flags:0x%04x", flags)
		d.options(l, data, 4)

	case CodeConfigureResponse:
		scid, ok := l.u16()
		if !ok {
			break
		}
		l.add("SCID:%s", d.Table.Label(scid))
		flags, ok := l.u16()
		if !ok {
			break
		}
		l.add("flags:0x%04x", flags)
		result, ok := l.u16()
		if !ok {
			break
		}
		l.add("result:%s", lookupName(confResults, result))
		d.options(l, data, 6)

	case CodeDisconnectionRequest, CodeDisconnectionResponse:
		dcid, ok := l.u16()
		if !ok {
			break
		}
		scid, ok := l.u16()
		if !ok {
			break
		}
		l.add("DCID:%s SCID:%s", d.Table.Label(dcid), d.Table.Label(scid))

	case CodeEchoRequest, CodeEchoResponse:
		l.add("len:%d", len(data))

	case CodeInformationRequest:
		infoType, ok := l.u16()
		if !ok {
			break
		}
		l.add("type:%s", lookupName(infoTypes, infoType))

	case CodeInformationResponse:
		infoType, ok := l.u16()
		if !ok {
			break
		}
		l.add("type:%s", lookupName(infoTypes, infoType))
		result, ok := l.u16()
		if !ok {
			break
		}
		l.add("result:%s", lookupName(infoResults, result))
		if len(data) > 4 {
			l.add("data:%s", hexList(data[4:]))
		}
	}
	return l.sb.String()
}

// options renders configuration options found in data after the fixed fields
func (d *Decoder) options(l *line, data []byte, start int) {
	off := start
	for off < len(data) {
		typ, _ := field8(data, off)
		length, ok := field8(data, off+1)
		if !ok || off+2+int(length) > len(data) {
			l.except()
			return
		}
		// the top bit marks a hint
		switch typ & 0x7f {
		case optionMTU:
			if mtu, ok := field16(data, off+2); ok && length == 2 {
				l.add("MTU:%d", mtu)
			} else {
				l.add("opt:0x%02x", typ)
			}
		default:
			l.add("opt:0x%02x", typ)
		}
		off += 2 + int(length)
	}
}

func hexList(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("0x%02x", b)
	}
	return strings.Join(parts, " ")
}
