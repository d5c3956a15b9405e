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
	"fmt"

	"jinr.ru/greenlab/go-usbhla/pkg/layers"
)

var sdpNames = map[layers.SDPPDUID]string{
	layers.SDPErrorResponse:                  "SDP_ERROR_RSP",
	layers.SDPServiceSearchRequest:           "SS_REQ",
	layers.SDPServiceSearchResponse:          "SS_RSP",
	layers.SDPServiceAttributeRequest:        "SA_REQ",
	layers.SDPServiceAttributeResponse:       "SA_RSP",
	layers.SDPServiceSearchAttributeRequest:  "SSA_REQ",
	layers.SDPServiceSearchAttributeResponse: "SSA_RSP",
}

var hidpNames = map[layers.HIDPMessageType]string{
	layers.HIDPHandshake:   "HANDSHAKE",
	layers.HIDPControl:     "HID_CONTROL",
	layers.HIDPGetReport:   "GET_REPORT",
	layers.HIDPSetReport:   "SET_REPORT",
	layers.HIDPGetProtocol: "GET_PROTOCOL",
	layers.HIDPSetProtocol: "SET_PROTOCOL",
	layers.HIDPGetIdle:     "GET_IDLE",
	layers.HIDPSetIdle:     "SET_IDLE",
	layers.HIDPData:        "DATA",
}

// SDPName returns the PDU name, SDP:0x.. for unknown ids
func SDPName(id layers.SDPPDUID) string {
	if name, ok := sdpNames[id]; ok {
		return name
	}
	return fmt.Sprintf("SDP:0x%02x", uint8(id))
}

// HIDPName returns the message type name, HIDP:0x. for unknown types
func HIDPName(t layers.HIDPMessageType) string {
	if name, ok := hidpNames[t]; ok {
		return name
	}
	return fmt.Sprintf("HIDP:0x%x", uint8(t))
}
