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
	"strconv"
	"strings"

	"jinr.ru/greenlab/go-usbhla/pkg/hci"
	"jinr.ru/greenlab/go-usbhla/pkg/token"
)

// DisplayKind tells a renderer which template suits a record
type DisplayKind string

const (
	DisplayRaw  DisplayKind = "raw"
	DisplayText DisplayKind = "text"
)

// Record is one finished bus transaction
type Record struct {
	Seq      uint64      `json:"seq"`
	Kind     string      `json:"kind"`
	Addr     uint8       `json:"addr"`
	Endpoint uint8       `json:"endpoint"`
	Ack      string      `json:"ack,omitempty"`
	Text     string      `json:"text,omitempty"`
	Data     token.Bytes `json:"data"`
	// Payload is Data rendered in the configured base
	Payload string          `json:"payload"`
	Start   token.Timestamp `json:"start"`
	End     token.Timestamp `json:"end"`
	Display DisplayKind     `json:"display"`
	Channel hci.Kind        `json:"channel,omitempty"`
	CID     uint16          `json:"cid,omitempty"`
	Base    int             `json:"base"`
}

// RenderPayload renders bytes as a space prefixed list, " 0 255" or " 0x0 0xff"
func RenderPayload(data []byte, base int) string {
	var sb strings.Builder
	for _, b := range data {
		if base == 16 {
			fmt.Fprintf(&sb, " 0x%x", b)
		} else {
			fmt.Fprintf(&sb, " %d", b)
		}
	}
	return sb.String()
}

func formatBias(seconds float64) string {
	s := strconv.FormatFloat(seconds, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// CSV renders the one line trace: bias , pid , ep , addr , text , data
// where bias is the start time relative to origin in seconds
func (r *Record) CSV(origin token.Timestamp) string {
	ep := strconv.Itoa(int(r.Endpoint))
	addr := strconv.Itoa(int(r.Addr))
	if r.Base == 16 {
		ep = fmt.Sprintf("0x%x", r.Endpoint)
		addr = fmt.Sprintf("0x%x", r.Addr)
	}
	return fmt.Sprintf("%s , %s , %s , %s , %s , %s",
		formatBias(float64(r.Start-origin)), r.Kind, ep, addr, r.Text, r.Payload)
}
