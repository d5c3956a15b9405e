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

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	CIDNull           uint16 = 0x0000
	CIDSignaling      uint16 = 0x0001
	CIDConnectionless uint16 = 0x0002
	// CIDDynamicStart is the first dynamically allocated channel id
	CIDDynamicStart uint16 = 0x0040
)

// L2CAPLayer is the basic L2CAP header: PDU length and channel id
type L2CAPLayer struct {
	layers.BaseLayer
	Length uint16
	CID    uint16
}

var L2CAPLayerType = gopacket.RegisterLayerType(L2CAPLayerNum,
	gopacket.LayerTypeMetadata{Name: "L2CAPLayerType", Decoder: gopacket.DecodeFunc(decodeL2CAPLayer)})

func (l *L2CAPLayer) LayerType() gopacket.LayerType {
	return L2CAPLayerType
}

func (l *L2CAPLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	payloadLen := len(b.Bytes())
	bytes, err := b.PrependBytes(L2CAPHeaderSize)
	if err != nil {
		return err
	}
	if opts.FixLengths {
		l.Length = uint16(payloadLen)
	}
	binary.LittleEndian.PutUint16(bytes[0:2], l.Length)
	binary.LittleEndian.PutUint16(bytes[2:4], l.CID)
	return nil
}

// DecodeFromBytes decodes the L2CAP header. A PDU split over several ACL
// packets is left as is, the payload holds only the bytes of this packet.
func (l *L2CAPLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < L2CAPHeaderSize {
		df.SetTruncated()
		return ErrTooShort{Layer: "L2CAP", Want: L2CAPHeaderSize, Got: len(data)}
	}
	l.Length = binary.LittleEndian.Uint16(data[0:2])
	l.CID = binary.LittleEndian.Uint16(data[2:4])
	end := L2CAPHeaderSize + int(l.Length)
	if end > len(data) {
		end = len(data)
	}
	l.BaseLayer = layers.BaseLayer{
		Contents: data[:L2CAPHeaderSize],
		Payload:  data[L2CAPHeaderSize:end],
	}
	return nil
}

func (l *L2CAPLayer) CanDecode() gopacket.LayerClass {
	return L2CAPLayerType
}

// NextLayerType is known only for the fixed signaling channel, dynamic
// channels depend on the connection state kept outside of the packet
func (l *L2CAPLayer) NextLayerType() gopacket.LayerType {
	if l.CID == CIDSignaling {
		return L2CAPSignalingLayerType
	}
	return gopacket.LayerTypePayload
}

func decodeL2CAPLayer(data []byte, p gopacket.PacketBuilder) error {
	l := &L2CAPLayer{}
	err := l.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(l)
	return p.NextDecoder(l.NextLayerType())
}

// L2CAPSignalingLayer is one signaling command: code, identifier, length and data
type L2CAPSignalingLayer struct {
	layers.BaseLayer
	Code       uint8
	Identifier uint8
	Length     uint16
	Data       []byte
}

var L2CAPSignalingLayerType = gopacket.RegisterLayerType(L2CAPSignalingLayerNum,
	gopacket.LayerTypeMetadata{Name: "L2CAPSignalingLayerType", Decoder: gopacket.DecodeFunc(decodeL2CAPSignalingLayer)})

func (s *L2CAPSignalingLayer) LayerType() gopacket.LayerType {
	return L2CAPSignalingLayerType
}

func (s *L2CAPSignalingLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(4 + len(s.Data))
	if err != nil {
		return err
	}
	if opts.FixLengths {
		s.Length = uint16(len(s.Data))
	}
	bytes[0] = s.Code
	bytes[1] = s.Identifier
	binary.LittleEndian.PutUint16(bytes[2:4], s.Length)
	copy(bytes[4:], s.Data)
	return nil
}

func (s *L2CAPSignalingLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < 4 {
		df.SetTruncated()
		return ErrTooShort{Layer: "L2CAP signaling", Want: 4, Got: len(data)}
	}
	s.Code = data[0]
	s.Identifier = data[1]
	s.Length = binary.LittleEndian.Uint16(data[2:4])
	end := 4 + int(s.Length)
	if end > len(data) {
		df.SetTruncated()
		end = len(data)
	}
	s.Data = data[4:end]
	s.BaseLayer = layers.BaseLayer{
		Contents: data[:end],
		Payload:  data[end:],
	}
	return nil
}

func (s *L2CAPSignalingLayer) CanDecode() gopacket.LayerClass {
	return L2CAPSignalingLayerType
}

func (s *L2CAPSignalingLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func decodeL2CAPSignalingLayer(data []byte, p gopacket.PacketBuilder) error {
	s := &L2CAPSignalingLayer{}
	err := s.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(s)
	return nil
}
