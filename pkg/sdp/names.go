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

package sdp

// Universal attribute ids plus the HID profile ones
var attributeNames = map[uint16]string{
	0x0000: "ServiceRecordHandle",
	0x0001: "ServiceClassIDList",
	0x0002: "ServiceRecordState",
	0x0003: "ServiceID",
	0x0004: "ProtocolDescriptorList",
	0x0005: "BrowseGroupList",
	0x0006: "LanguageBaseAttributeIDList",
	0x0007: "ServiceInfoTimeToLive",
	0x0008: "ServiceAvailability",
	0x0009: "BluetoothProfileDescriptorList",
	0x000A: "DocumentationURL",
	0x000B: "ClientExecutableURL",
	0x000C: "IconURL",
	0x000D: "AdditionalProtocolDescriptorLists",
	0x0100: "ServiceName",
	0x0101: "ServiceDescription",
	0x0102: "ProviderName",
	0x0200: "HIDDeviceReleaseNumber",
	0x0201: "HIDParserVersion",
	0x0202: "HIDDeviceSubclass",
	0x0203: "HIDCountryCode",
	0x0204: "HIDVirtualCable",
	0x0205: "HIDReconnectInitiate",
	0x0206: "HIDDescriptorList",
	0x0207: "HIDLANGIDBaseList",
	0x0208: "HIDSDPDisable",
	0x0209: "HIDBatteryPower",
	0x020A: "HIDRemoteWake",
	0x020B: "HIDProfileVersion",
	0x020C: "HIDSupervisionTimeout",
	0x020D: "HIDNormallyConnectable",
	0x020E: "HIDBootDevice",
}

var uuidNames = map[uint32]string{
	0x0001: "SDP",
	0x0003: "RFCOMM",
	0x0008: "OBEX",
	0x000F: "BNEP",
	0x0011: "HIDP",
	0x0017: "AVCTP",
	0x0019: "AVDTP",
	0x0100: "L2CAP",
	0x1000: "ServiceDiscoveryServerServiceClassID",
	0x1001: "BrowseGroupDescriptorServiceClassID",
	0x1002: "PublicBrowseRoot",
	0x1101: "SerialPort",
	0x1108: "Headset",
	0x110A: "AudioSource",
	0x110B: "AudioSink",
	0x110C: "A/V_RemoteControlTarget",
	0x110E: "A/V_RemoteControl",
	0x111E: "Handsfree",
	0x1124: "HumanInterfaceDeviceService",
	0x1200: "PnPInformation",
}

// AttributeName returns the name of a universal or HID attribute id
func AttributeName(id uint16) (string, bool) {
	name, ok := attributeNames[id]
	return name, ok
}

// UUIDName returns the assigned name of a 16 or 32 bit UUID
func UUIDName(u uint32) (string, bool) {
	name, ok := uuidNames[u]
	return name, ok
}
