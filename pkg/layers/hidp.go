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
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

type HIDPMessageType uint8

const (
	HIDPHandshake   HIDPMessageType = 0x0
	HIDPControl     HIDPMessageType = 0x1
	HIDPGetReport   HIDPMessageType = 0x4
	HIDPSetReport   HIDPMessageType = 0x5
	HIDPGetProtocol HIDPMessageType = 0x6
	HIDPSetProtocol HIDPMessageType = 0x7
	HIDPGetIdle     HIDPMessageType = 0x8
	HIDPSetIdle     HIDPMessageType = 0x9
	HIDPData        HIDPMessageType = 0xA
)

// HIDPLayer is a HID protocol message: header byte split into type and parameter nibbles
type HIDPLayer struct {
	layers.BaseLayer
	MessageType HIDPMessageType
	Parameter   uint8
}

var HIDPLayerType = gopacket.RegisterLayerType(HIDPLayerNum,
	gopacket.LayerTypeMetadata{Name: "HIDPLayerType", Decoder: gopacket.DecodeFunc(decodeHIDPLayer)})

func (h *HIDPLayer) LayerType() gopacket.LayerType {
	return HIDPLayerType
}

func (h *HIDPLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(1)
	if err != nil {
		return err
	}
	bytes[0] = uint8(h.MessageType)<<4 | h.Parameter&0x0f
	return nil
}

func (h *HIDPLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < 1 {
		df.SetTruncated()
		return ErrTooShort{Layer: "HIDP", Want: 1, Got: 0}
	}
	h.MessageType = HIDPMessageType(data[0] >> 4)
	h.Parameter = data[0] & 0x0f
	h.BaseLayer = layers.BaseLayer{
		Contents: data[:1],
		Payload:  data[1:],
	}
	return nil
}

func (h *HIDPLayer) CanDecode() gopacket.LayerClass {
	return HIDPLayerType
}

func (h *HIDPLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

func decodeHIDPLayer(data []byte, p gopacket.PacketBuilder) error {
	h := &HIDPLayer{}
	err := h.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(h)
	return p.NextDecoder(h.NextLayerType())
}
