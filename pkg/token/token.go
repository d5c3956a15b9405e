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

package token

import (
	"time"
)

// Kind is the tag of a token produced by the low level USB decoder
type Kind string

const (
	KindPID       Kind = "pid"
	KindAddrEndp  Kind = "addrendp"
	KindData      Kind = "data"
	KindSetup     Kind = "protocol"
	KindReport    Kind = "report"
	KindString    Kind = "string"
	KindService   Kind = "service"
	KindHandshake Kind = "handshake"
	KindEOP       Kind = "eop"
)

var knownKinds = map[Kind]bool{
	KindPID:       true,
	KindAddrEndp:  true,
	KindData:      true,
	KindSetup:     true,
	KindReport:    true,
	KindString:    true,
	KindService:   true,
	KindHandshake: true,
	KindEOP:       true,
}

// Known reports whether k is one of the token kinds the analyzer understands
func (k Kind) Known() bool {
	return knownKinds[k]
}

// PID names carried by KindPID and KindHandshake tokens
const (
	PIDIn    = "IN"
	PIDOut   = "OUT"
	PIDSetup = "SETUP"
	PIDSOF   = "SOF"
	PIDData0 = "DATA0"
	PIDData1 = "DATA1"
	PIDAck   = "ACK"
	PIDNak   = "NAK"
	PIDStall = "STALL"
)

// IsDirection reports whether the PID starts a new transaction
func IsDirection(pid string) bool {
	return pid == PIDIn || pid == PIDOut || pid == PIDSetup
}

// IsHandshake reports whether the PID is an acknowledgment outcome
func IsHandshake(pid string) bool {
	return pid == PIDAck || pid == PIDNak || pid == PIDStall
}

// Timestamp is the capture time in seconds since the start of the capture
type Timestamp float64

// Sub returns the duration t-u
func (t Timestamp) Sub(u Timestamp) time.Duration {
	return time.Duration((float64(t) - float64(u)) * float64(time.Second))
}

// Setup keeps control request fields as delivered by the decoder.
// Multibyte fields arrive as [high, low] byte pairs.
type Setup struct {
	RequestType Bytes `json:"bmRequestType"`
	Request     Bytes `json:"bRequest"`
	Value       Bytes `json:"wValue"`
	Index       Bytes `json:"wIndex"`
	Length      Bytes `json:"wLength"`
}

// Token is one observation of bus activity delivered by the upstream decoder
type Token struct {
	Kind     Kind      `json:"kind"`
	Start    Timestamp `json:"start"`
	End      Timestamp `json:"end"`
	Value    string    `json:"value,omitempty"`
	Addr     uint8     `json:"addr,omitempty"`
	Endpoint uint8     `json:"endpoint,omitempty"`
	Data     Bytes     `json:"data,omitempty"`
	Text     string    `json:"text,omitempty"`
	Setup    *Setup    `json:"setup,omitempty"`
}

// HasPayload reports whether the token contributes bytes to a transaction
func (t *Token) HasPayload() bool {
	switch t.Kind {
	case KindData, KindSetup, KindReport, KindString, KindService:
		return true
	}
	return false
}
