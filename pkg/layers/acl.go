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

package layers

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// HCIACLLayerNum identifies the layer
	HCIACLLayerNum         = 2100
	L2CAPLayerNum          = 2101
	L2CAPSignalingLayerNum = 2102
	SDPLayerNum            = 2103
	HIDPLayerNum           = 2104

	HCIACLHeaderSize = 4
	L2CAPHeaderSize  = 4
	// CommandOffset is the offset of the first L2CAP payload byte inside an ACL packet
	CommandOffset = HCIACLHeaderSize + L2CAPHeaderSize
)

// PacketBoundary is the PB flag of the ACL header
type PacketBoundary uint8

const (
	PacketBoundaryFirstNonFlushable PacketBoundary = 0x00
	PacketBoundaryContinuing        PacketBoundary = 0x01
	PacketBoundaryFirstFlushable    PacketBoundary = 0x02
	PacketBoundaryComplete          PacketBoundary = 0x03
)

func (pb PacketBoundary) String() string {
	switch pb {
	case PacketBoundaryFirstNonFlushable:
		return "FirstNonFlushable"
	case PacketBoundaryContinuing:
		return "Continuing"
	case PacketBoundaryFirstFlushable:
		return "FirstFlushable"
	case PacketBoundaryComplete:
		return "Complete"
	}
	return fmt.Sprintf("PB:%d", uint8(pb))
}

// HCIACLLayer is the 4 byte HCI ACL data packet header
type HCIACLLayer struct {
	layers.BaseLayer
	Handle         uint16 // 12 bits
	PacketBoundary PacketBoundary
	Broadcast      uint8
	Length         uint16
}

var HCIACLLayerType = gopacket.RegisterLayerType(HCIACLLayerNum,
	gopacket.LayerTypeMetadata{Name: "HCIACLLayerType", Decoder: gopacket.DecodeFunc(decodeHCIACLLayer)})

func (acl *HCIACLLayer) LayerType() gopacket.LayerType {
	return HCIACLLayerType
}

// Continuation reports whether the packet carries a continuing fragment
// of an L2CAP PDU and thus has no L2CAP header of its own
func (acl *HCIACLLayer) Continuation() bool {
	return acl.PacketBoundary == PacketBoundaryContinuing
}

// SerializeTo writes the ACL header in front of the already serialized payload
func (acl *HCIACLLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	payloadLen := len(b.Bytes())
	bytes, err := b.PrependBytes(HCIACLHeaderSize)
	if err != nil {
		return err
	}
	if opts.FixLengths {
		acl.Length = uint16(payloadLen)
	}
	word := acl.Handle&0x0fff | uint16(acl.PacketBoundary&0x03)<<12 | uint16(acl.Broadcast&0x03)<<14
	binary.LittleEndian.PutUint16(bytes[0:2], word)
	binary.LittleEndian.PutUint16(bytes[2:4], acl.Length)
	return nil
}

// DecodeFromBytes decodes the ACL header. The payload is whatever follows the header,
// the declared length is not enforced since captures are often cut short.
func (acl *HCIACLLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < HCIACLHeaderSize {
		df.SetTruncated()
		return ErrTooShort{Layer: "HCI ACL", Want: HCIACLHeaderSize, Got: len(data)}
	}
	word := binary.LittleEndian.Uint16(data[0:2])
	acl.Handle = word & 0x0fff
	acl.PacketBoundary = PacketBoundary((word >> 12) & 0x03)
	acl.Broadcast = uint8((word >> 14) & 0x03)
	acl.Length = binary.LittleEndian.Uint16(data[2:4])
	acl.BaseLayer = layers.BaseLayer{
		Contents: data[:HCIACLHeaderSize],
		Payload:  data[HCIACLHeaderSize:],
	}
	if int(acl.Length) > len(acl.Payload) {
		df.SetTruncated()
	}
	return nil
}

func (acl *HCIACLLayer) CanDecode() gopacket.LayerClass {
	return HCIACLLayerType
}

func (acl *HCIACLLayer) NextLayerType() gopacket.LayerType {
	if acl.Continuation() {
		return gopacket.LayerTypeFragment
	}
	return L2CAPLayerType
}

func decodeHCIACLLayer(data []byte, p gopacket.PacketBuilder) error {
	acl := &HCIACLLayer{}
	err := acl.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(acl)
	return p.NextDecoder(acl.NextLayerType())
}
