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

package hci

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-usbhla/pkg/config"
	"jinr.ru/greenlab/go-usbhla/pkg/l2cap"
	"jinr.ru/greenlab/go-usbhla/pkg/layers"
	"jinr.ru/greenlab/go-usbhla/pkg/log"
	"jinr.ru/greenlab/go-usbhla/pkg/sdp"
)

// HeaderSize is the ACL plus L2CAP header size, payloads must be longer to be classified
const HeaderSize = layers.CommandOffset

type Kind string

const (
	KindNone      Kind = ""
	KindSignaling Kind = "signaling"
	KindSDP       Kind = "sdp"
	KindHIDP      Kind = "hidp"
	// KindFragment is an ACL continuation that belongs to no tracked PDU
	KindFragment Kind = "fragment"
)

type Classification struct {
	Kind   Kind
	Handle uint16
	CID    uint16
	Text   string
	// Items are the data elements decoded from an SDP attribute response
	Items []sdp.Item
	// Pending is the element carry-over left for the next response fragment
	Pending  int
	ParseErr error
	// Failed is the element the parser stopped at when ParseErr is set
	Failed *sdp.Element
}

// Classifier dispatches ACL payloads of the designated endpoint to the
// channel decoders. It shares the channel table with the signaling decoder
// and keeps the element parser state between payloads.
type Classifier struct {
	Table        *l2cap.Table
	Signaling    *l2cap.Decoder
	Parser       *sdp.Parser
	ServiceRange config.ServiceRange

	// attribute list bytes of the current SDP response still to come in continuation packets
	listRemaining int
	listCID       uint16
	// the last response ended with an empty continuation state
	ended bool
	// the parser stopped on a header it cannot size or a continuation packet went missing
	lost bool
}

func NewClassifier(table *l2cap.Table, parser *sdp.Parser, services config.ServiceRange) *Classifier {
	return &Classifier{
		Table:        table,
		Signaling:    l2cap.NewDecoder(table),
		Parser:       parser,
		ServiceRange: services,
	}
}

func (c *Classifier) isService(cid uint16) bool {
	if c.ServiceRange.Contains(cid) {
		return true
	}
	e, ok := c.Table.Lookup(cid)
	return ok && e.PSM == l2cap.PSMSDP
}

func (c *Classifier) isHID(cid uint16, command byte) bool {
	if e, ok := c.Table.Lookup(cid); ok && e.PSM.IsHID() {
		return true
	}
	return command>>4 != 0
}

// Classify decodes one ACL payload
func (c *Classifier) Classify(payload []byte) Classification {
	var res Classification
	if len(payload) <= HeaderSize {
		return res
	}
	acl := &layers.HCIACLLayer{}
	if err := acl.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
		log.Debug("Classify: %s", err)
		return res
	}
	res.Handle = acl.Handle

	if acl.Continuation() {
		return c.continuation(acl, res)
	}

	l2 := &layers.L2CAPLayer{}
	if err := l2.DecodeFromBytes(acl.Payload, gopacket.NilDecodeFeedback); err != nil {
		log.Debug("Classify: %s", err)
		return res
	}
	res.CID = l2.CID
	command := payload[HeaderSize]

	switch {
	case c.isService(l2.CID):
		c.service(l2, &res)
	case c.isHID(l2.CID, command):
		c.hidp(l2, &res)
	default:
		res.Kind = KindSignaling
		res.Text = c.Signaling.Decode(payload, HeaderSize)
	}
	return res
}

func (c *Classifier) service(l2 *layers.L2CAPLayer, res *Classification) {
	res.Kind = KindSDP
	pdu := &layers.SDPLayer{}
	if err := pdu.DecodeFromBytes(l2.Payload, gopacket.NilDecodeFeedback); err != nil {
		res.Text = fmt.Sprintf("SDP (except) CID:%s", c.Table.Label(l2.CID))
		return
	}
	res.Text = fmt.Sprintf("%s CID:%s", SDPName(pdu.PDUID), c.Table.Label(l2.CID))
	if c.listRemaining > 0 {
		// a new PDU while list bytes are still owed, the continuation packet was lost
		log.Debug("Classify: %d attribute list bytes lost on CID 0x%04x", c.listRemaining, c.listCID)
		c.lost = true
	}
	c.listRemaining = 0
	if !pdu.PDUID.HasAttributeLists() {
		return
	}
	if c.ended || c.lost {
		c.Parser.Reset()
	}
	c.ended, c.lost = false, false
	if c.Parser.Idle() {
		if pdu.PDUID == layers.SDPServiceAttributeResponse {
			c.Parser.AttributeDepth = 1
		} else {
			c.Parser.AttributeDepth = sdp.DefaultAttributeDepth
		}
	}
	c.listRemaining = int(pdu.AttributeListsByteCount) - len(pdu.AttributeLists)
	c.listCID = l2.CID
	c.parse(pdu.AttributeLists, res)
	if c.listRemaining <= 0 && pdu.ContinuationState != nil {
		c.ended = !pdu.Continues()
	}
}

// continuation feeds the rest of an attribute response split over ACL packets
func (c *Classifier) continuation(acl *layers.HCIACLLayer, res Classification) Classification {
	if c.listRemaining <= 0 {
		res.Kind = KindFragment
		res.Text = fmt.Sprintf("ACL continuation len:%d", len(acl.Payload))
		return res
	}
	data := acl.Payload
	if len(data) > c.listRemaining {
		data = data[:c.listRemaining]
	}
	c.listRemaining -= len(data)
	if c.listRemaining == 0 && len(acl.Payload) > len(data) {
		// continuation state InfoLength byte follows the lists
		c.ended = acl.Payload[len(data)] == 0
	}
	res.Kind = KindSDP
	res.CID = c.listCID
	res.Text = fmt.Sprintf("SDP continuation CID:%s", c.Table.Label(c.listCID))
	c.parse(data, &res)
	return res
}

func (c *Classifier) parse(data []byte, res *Classification) {
	pr := c.Parser.Append(data)
	res.Items = pr.Items
	res.Pending = pr.Pending
	res.ParseErr = pr.Err
	res.Failed = pr.Failed
	if errors.Is(pr.Err, sdp.ErrUnknownHeader) {
		c.lost = true
	}
	if len(pr.Lines) > 0 {
		res.Text += " " + strings.Join(pr.Lines, " ")
	}
}

func (c *Classifier) hidp(l2 *layers.L2CAPLayer, res *Classification) {
	res.Kind = KindHIDP
	msg := &layers.HIDPLayer{}
	if err := msg.DecodeFromBytes(l2.Payload, gopacket.NilDecodeFeedback); err != nil {
		res.Text = fmt.Sprintf("HIDP (except) CID:%s", c.Table.Label(l2.CID))
		return
	}
	res.Text = fmt.Sprintf("%s:%d CID:%s", HIDPName(msg.MessageType), msg.Parameter, c.Table.Label(l2.CID))
}

// Reset forgets the partial SDP response state, the channel table is kept
func (c *Classifier) Reset() {
	c.listRemaining = 0
	c.listCID = 0
	c.ended, c.lost = false, false
	c.Parser.Reset()
}
