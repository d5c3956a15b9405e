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

package usb

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// SetupSize is the size of a control request header
const SetupSize = 8

// Request types of the recipients and classes the decoder knows
const (
	RequestTypeDeviceOut         = 0x00
	RequestTypeInterfaceOut      = 0x01
	RequestTypeEndpointOut       = 0x02
	RequestTypeClassDeviceOut    = 0x20
	RequestTypeClassInterfaceOut = 0x21
	RequestTypeDeviceIn          = 0x80
	RequestTypeInterfaceIn       = 0x81
	RequestTypeClassInterfaceIn  = 0xA1
)

const (
	DescriptorDevice          = 0x01
	DescriptorConfiguration   = 0x02
	DescriptorString          = 0x03
	DescriptorDeviceQualifier = 0x06
)

const (
	ReportInput   = 0x01
	ReportOutput  = 0x02
	ReportFeature = 0x03
)

type request struct {
	requestType uint8
	request     uint8
}

var (
	getDescriptor = request{RequestTypeDeviceIn, 0x06}
	getReport     = request{RequestTypeClassInterfaceIn, 0x01}
)

// standard and class requests that need no further decoding
var labels = map[request]string{
	{RequestTypeDeviceOut, 0x05}:         "SET_ADDRESS",
	{RequestTypeDeviceOut, 0x09}:         "SET_CONFIGURATION",
	{RequestTypeDeviceOut, 0x03}:         "SET_FEATURE",
	{RequestTypeDeviceOut, 0x01}:         "CLEAR_FEATURE",
	{RequestTypeEndpointOut, 0x01}:       "CLEAR_FEATURE - ENDPOINT",
	{RequestTypeDeviceIn, 0x00}:          "GET_STATUS",
	{RequestTypeDeviceIn, 0x08}:          "GET_CONFIGURATION",
	{RequestTypeInterfaceOut, 0x0B}:      "SET_INTERFACE",
	{RequestTypeInterfaceIn, 0x06}:       "GET_DESCRIPTOR - HID REPORT",
	{RequestTypeClassInterfaceOut, 0x0A}: "HID SET_IDLE",
	{RequestTypeClassInterfaceOut, 0x09}: "HID SET_REPORT",
	{RequestTypeClassInterfaceOut, 0x0B}: "HID SET_PROTOCOL",
	{RequestTypeClassInterfaceIn, 0x02}:  "HID GET_IDLE",
	{RequestTypeClassInterfaceIn, 0x03}:  "HID GET_PROTOCOL",
	{RequestTypeClassDeviceOut, 0x00}:    "HCI COMMAND",
}

var descriptorNames = map[uint8]string{
	DescriptorDevice:          "DEVICE",
	DescriptorConfiguration:   "CONFIG",
	DescriptorString:          "STRING",
	DescriptorDeviceQualifier: "DEVICE_QUALIFIER",
}

var reportNames = map[uint8]string{
	ReportInput:   "INPUT",
	ReportOutput:  "OUTPUT",
	ReportFeature: "FEATURE",
}

// ParseSetup decodes a control request header, shorter input is zero padded
func ParseSetup(setup []byte) *layers.USBRequestBlockSetup {
	buf := make([]byte, SetupSize)
	copy(buf, setup)
	s := &layers.USBRequestBlockSetup{}
	// decoding a full size header can not fail
	_ = s.DecodeFromBytes(buf, gopacket.NilDecodeFeedback)
	return s
}

// DecodeSetup renders a control request header as a one line description,
// e.g. "GET_DESCRIPTOR - DEVICE #:0 I:0x0 L:0x12"
func DecodeSetup(setup []byte) string {
	s := ParseSetup(setup)
	rq := request{s.RequestType, uint8(s.Request)}
	index := uint8(s.Value & 0xff)
	kind := uint8(s.Value >> 8)

	var label string
	switch {
	case rq == getDescriptor:
		label = "GET_DESCRIPTOR -"
		if name, ok := descriptorNames[kind]; ok {
			label += fmt.Sprintf(" %s #:%d", name, index)
		} else {
			label += " ??"
		}
	case rq == getReport:
		label = "GET_REPORT -"
		if name, ok := reportNames[kind]; ok {
			label += fmt.Sprintf(" %s # %d", name, index)
		} else {
			label += " ??"
		}
	default:
		if name, ok := labels[rq]; ok {
			label = name
		} else {
			label = fmt.Sprintf("RT:0x%x R:0x%x", rq.requestType, rq.request)
		}
	}
	return fmt.Sprintf("%s I:0x%x L:0x%x", label, s.Index, s.Length)
}
