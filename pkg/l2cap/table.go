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
	"fmt"
	"sort"
)

// PSM is the protocol/service multiplexer negotiated for a channel
type PSM uint16

const (
	PSMSDP           PSM = 0x0001
	PSMRFCOMM        PSM = 0x0003
	PSMBNEP          PSM = 0x000F
	PSMHIDControl    PSM = 0x0011
	PSMHIDInterrupt  PSM = 0x0013
	PSMAVCTP         PSM = 0x0017
	PSMAVDTP         PSM = 0x0019
	PSMAVCTPBrowsing PSM = 0x001B
	PSMATT           PSM = 0x001F
)

var psmNames = map[PSM]string{
	PSMSDP:           "SDP",
	PSMRFCOMM:        "RFCOMM",
	PSMBNEP:          "BNEP",
	PSMHIDControl:    "CTRL",
	PSMHIDInterrupt:  "INTR",
	PSMAVCTP:         "AVCTP",
	PSMAVDTP:         "AVDTP",
	PSMAVCTPBrowsing: "AVCTP_BR",
	PSMATT:           "ATT",
}

func (p PSM) String() string {
	if name, ok := psmNames[p]; ok {
		return name
	}
	return fmt.Sprintf("0x%04x", uint16(p))
}

// IsHID reports whether the channel carries the HID protocol
func (p PSM) IsHID() bool {
	return p == PSMHIDControl || p == PSMHIDInterrupt
}

type Role uint8

const (
	RoleRequester Role = iota
	RoleResponder
)

func (r Role) String() string {
	if r == RoleResponder {
		return "responder"
	}
	return "requester"
}

// Tag is the one letter form used in channel labels
func (r Role) Tag() string {
	if r == RoleResponder {
		return "D"
	}
	return "S"
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	switch string(text) {
	case "requester", "S":
		*r = RoleRequester
	case "responder", "D":
		*r = RoleResponder
	default:
		return ErrUnknownRole{Role: string(text)}
	}
	return nil
}

type Entry struct {
	CID  uint16 `json:"cid"`
	PSM  PSM    `json:"psm"`
	Role Role   `json:"role"`
}

// Label renders the entry as 0x0042=S(CTRL)
func (e Entry) Label() string {
	return fmt.Sprintf("0x%04x=%s(%s)", e.CID, e.Role.Tag(), e.PSM)
}

// Table maps channel ids to the protocol negotiated for them.
// Entries live until Reset, disconnects do not remove them.
// A Table is not safe for concurrent use.
type Table struct {
	entries map[uint16]Entry
}

func NewTable() *Table {
	return &Table{entries: make(map[uint16]Entry)}
}

// Register inserts or overwrites the entry for cid
func (t *Table) Register(cid uint16, psm PSM, role Role) {
	t.entries[cid] = Entry{CID: cid, PSM: psm, Role: role}
}

func (t *Table) Lookup(cid uint16) (Entry, bool) {
	e, ok := t.entries[cid]
	return e, ok
}

// Label renders a known channel with its role and protocol and an unknown one as a bare number
func (t *Table) Label(cid uint16) string {
	if e, ok := t.entries[cid]; ok {
		return e.Label()
	}
	return fmt.Sprintf("0x%04x", cid)
}

// Entries returns all entries sorted by channel id
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CID < out[j].CID })
	return out
}

// Load replaces the table contents, e.g. with a persisted snapshot
func (t *Table) Load(entries []Entry) {
	t.Reset()
	for _, e := range entries {
		t.entries[e.CID] = e
	}
}

func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) Reset() {
	t.entries = make(map[uint16]Entry)
}
