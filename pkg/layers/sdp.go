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
	SDPHeaderSize = 5
	// SDPAttributeListsOffset is the offset of the attribute lists inside
	// an ACL packet carrying a service attribute response
	SDPAttributeListsOffset = CommandOffset + SDPHeaderSize + 2
)

type SDPPDUID uint8

const (
	SDPErrorResponse                  SDPPDUID = 0x01
	SDPServiceSearchRequest           SDPPDUID = 0x02
	SDPServiceSearchResponse          SDPPDUID = 0x03
	SDPServiceAttributeRequest        SDPPDUID = 0x04
	SDPServiceAttributeResponse       SDPPDUID = 0x05
	SDPServiceSearchAttributeRequest  SDPPDUID = 0x06
	SDPServiceSearchAttributeResponse SDPPDUID = 0x07
)

// HasAttributeLists reports whether the PDU parameters start with an attribute lists byte count
func (id SDPPDUID) HasAttributeLists() bool {
	return id == SDPServiceAttributeResponse || id == SDPServiceSearchAttributeResponse
}

// SDPLayer is an SDP PDU header followed by its parameters
type SDPLayer struct {
	layers.BaseLayer
	PDUID           SDPPDUID
	TransactionID   uint16
	ParameterLength uint16
	Parameters      []byte
	// AttributeListsByteCount and AttributeLists are set for attribute responses only
	AttributeListsByteCount uint16
	AttributeLists          []byte
	// ContinuationState is the InfoLength byte and its state bytes after
	// the attribute lists, nil when the lists run past the packet
	ContinuationState []byte
}

// Continues reports whether the server announced more attribute list bytes
// in a following response. It is false when the state is unknown.
func (s *SDPLayer) Continues() bool {
	return len(s.ContinuationState) > 0 && s.ContinuationState[0] != 0
}

var SDPLayerType = gopacket.RegisterLayerType(SDPLayerNum,
	gopacket.LayerTypeMetadata{Name: "SDPLayerType", Decoder: gopacket.DecodeFunc(decodeSDPLayer)})

func (s *SDPLayer) LayerType() gopacket.LayerType {
	return SDPLayerType
}

func (s *SDPLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	params := s.Parameters
	if s.PDUID.HasAttributeLists() && params == nil {
		params = make([]byte, 2+len(s.AttributeLists))
		if opts.FixLengths {
			s.AttributeListsByteCount = uint16(len(s.AttributeLists))
		}
		binary.BigEndian.PutUint16(params[0:2], s.AttributeListsByteCount)
		copy(params[2:], s.AttributeLists)
		params = append(params, s.ContinuationState...)
	}
	bytes, err := b.PrependBytes(SDPHeaderSize + len(params))
	if err != nil {
		return err
	}
	if opts.FixLengths {
		s.ParameterLength = uint16(len(params))
	}
	bytes[0] = uint8(s.PDUID)
	binary.BigEndian.PutUint16(bytes[1:3], s.TransactionID)
	binary.BigEndian.PutUint16(bytes[3:5], s.ParameterLength)
	copy(bytes[SDPHeaderSize:], params)
	return nil
}

// DecodeFromBytes decodes the PDU header. The attribute lists are clamped
// to the available bytes because a response may span several ACL packets.
func (s *SDPLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < SDPHeaderSize {
		df.SetTruncated()
		return ErrTooShort{Layer: "SDP", Want: SDPHeaderSize, Got: len(data)}
	}
	s.PDUID = SDPPDUID(data[0])
	s.TransactionID = binary.BigEndian.Uint16(data[1:3])
	s.ParameterLength = binary.BigEndian.Uint16(data[3:5])
	end := SDPHeaderSize + int(s.ParameterLength)
	if end > len(data) {
		df.SetTruncated()
		end = len(data)
	}
	s.Parameters = data[SDPHeaderSize:end]
	s.AttributeListsByteCount = 0
	s.AttributeLists = nil
	s.ContinuationState = nil
	if s.PDUID.HasAttributeLists() && len(s.Parameters) >= 2 {
		s.AttributeListsByteCount = binary.BigEndian.Uint16(s.Parameters[0:2])
		listEnd := 2 + int(s.AttributeListsByteCount)
		if listEnd > len(s.Parameters) {
			listEnd = len(s.Parameters)
		}
		s.AttributeLists = s.Parameters[2:listEnd]
		if listEnd < len(s.Parameters) {
			stateEnd := listEnd + 1 + int(s.Parameters[listEnd])
			if stateEnd > len(s.Parameters) {
				stateEnd = len(s.Parameters)
			}
			s.ContinuationState = s.Parameters[listEnd:stateEnd]
		}
	}
	s.BaseLayer = layers.BaseLayer{
		Contents: data[:end],
		Payload:  data[end:],
	}
	return nil
}

func (s *SDPLayer) CanDecode() gopacket.LayerClass {
	return SDPLayerType
}

func (s *SDPLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func decodeSDPLayer(data []byte, p gopacket.PacketBuilder) error {
	s := &SDPLayer{}
	err := s.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(s)
	return nil
}
