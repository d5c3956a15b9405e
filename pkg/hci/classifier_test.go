package hci

import (
	"encoding/binary"
	"testing"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-usbhla/pkg/config"
	"jinr.ru/greenlab/go-usbhla/pkg/l2cap"
	"jinr.ru/greenlab/go-usbhla/pkg/layers"
	"jinr.ru/greenlab/go-usbhla/pkg/sdp"
)

var attributeLists = []byte{
	0x35, 0x1a,
	0x35, 0x18,
	0x09, 0x00, 0x00, 0x0a, 0x00, 0x01, 0x00, 0x00,
	0x09, 0x00, 0x01, 0x35, 0x03, 0x19, 0x11, 0x24,
	0x09, 0x01, 0x00, 0x25, 0x03, 'H', 'I', 'D',
}

const attributeText = `( ( 0x0000 ServiceRecordHandle 0x00010000 0x0001 ServiceClassIDList ( 0x1124 HumanInterfaceDeviceService ) 0x0100 ServiceName "HID" ) )`

func newClassifier() *Classifier {
	return NewClassifier(l2cap.NewTable(), sdp.NewParser(sdp.DefaultFlushDepth), config.ServiceRange{Lo: 0x0040, Hi: 0x0041})
}

func packet(t *testing.T, cid uint16, l ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	all := append([]gopacket.SerializableLayer{
		&layers.HCIACLLayer{Handle: 0x0b, PacketBoundary: layers.PacketBoundaryFirstFlushable},
		&layers.L2CAPLayer{CID: cid},
	}, l...)
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, all...))
	return buf.Bytes()
}

func connect(t *testing.T, c *Classifier, psm uint16, scid uint16) Classification {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint16(data[0:2], psm)
	binary.LittleEndian.PutUint16(data[2:4], scid)
	return c.Classify(packet(t, layers.CIDSignaling, &layers.L2CAPSignalingLayer{Code: 0x02, Identifier: 1, Data: data}))
}

func TestClassifySignaling(t *testing.T) {
	c := newClassifier()
	res := connect(t, c, 0x0013, 0x0044)
	assert.Equal(t, KindSignaling, res.Kind)
	assert.Equal(t, layers.CIDSignaling, res.CID)
	assert.Equal(t, uint16(0x0b), res.Handle)
	assert.Equal(t, "CONN_REQ PSM:INTR SCID:0x0044=S(INTR)", res.Text)
}

func TestClassifyHIDP(t *testing.T) {
	c := newClassifier()
	connect(t, c, 0x0013, 0x0044)

	res := c.Classify(packet(t, 0x0044, gopacket.Payload{0xa1, 0x01, 0x00, 0x04}))
	assert.Equal(t, KindHIDP, res.Kind)
	assert.Equal(t, "DATA:1 CID:0x0044=S(INTR)", res.Text)

	// a handshake has a zero upper nibble and is recognized by the channel
	res = c.Classify(packet(t, 0x0044, gopacket.Payload{0x00}))
	assert.Equal(t, KindHIDP, res.Kind)
	assert.Equal(t, "HANDSHAKE:0 CID:0x0044=S(INTR)", res.Text)

	res = c.Classify(packet(t, 0x0050, gopacket.Payload{0x52, 0x01}))
	assert.Equal(t, "SET_REPORT:2 CID:0x0050", res.Text)

	res = c.Classify(packet(t, 0x0050, gopacket.Payload{0x30, 0x01}))
	assert.Equal(t, "HIDP:0x3:0 CID:0x0050", res.Text)
}

func TestClassifySDPAttributeResponse(t *testing.T) {
	c := newClassifier()
	res := c.Classify(packet(t, 0x0040, &layers.SDPLayer{
		PDUID: layers.SDPServiceSearchAttributeResponse, TransactionID: 1, AttributeLists: attributeLists,
	}))
	assert.Equal(t, KindSDP, res.Kind)
	assert.Equal(t, "SSA_RSP CID:0x0040 "+attributeText, res.Text)
	assert.Len(t, res.Items, 9)
	assert.Equal(t, 0, res.Pending)
	assert.True(t, c.Parser.Idle())
}

func TestClassifySDPAcrossPackets(t *testing.T) {
	c := newClassifier()
	params := make([]byte, 2, 2+len(attributeLists)+1)
	binary.BigEndian.PutUint16(params, uint16(len(attributeLists)))
	params = append(params, attributeLists...)
	params = append(params, 0x00) // no continuation state
	pdu := append([]byte{0x07, 0x00, 0x01, 0x00, byte(len(params))}, params...)

	l2 := make([]byte, 4, 4+len(pdu))
	binary.LittleEndian.PutUint16(l2[0:2], uint16(len(pdu)))
	binary.LittleEndian.PutUint16(l2[2:4], 0x0041)
	l2 = append(l2, pdu...)

	split := 4 + 5 + 2 + 10
	first := append([]byte{0x0b, 0x20, byte(split), 0x00}, l2[:split]...)
	rest := l2[split:]
	second := append([]byte{0x0b, 0x10, byte(len(rest)), 0x00}, rest...)

	res := c.Classify(first)
	assert.Equal(t, KindSDP, res.Kind)
	assert.Equal(t, "SSA_RSP CID:0x0041", res.Text)
	assert.False(t, c.Parser.Idle())

	res = c.Classify(second)
	assert.Equal(t, KindSDP, res.Kind)
	assert.Equal(t, uint16(0x0041), res.CID)
	assert.Equal(t, "SDP continuation CID:0x0041 "+attributeText, res.Text)
	assert.True(t, c.Parser.Idle())

	// nothing left to assemble
	res = c.Classify(second)
	assert.Equal(t, KindFragment, res.Kind)
}

func TestClassifySDPAfterLostContinuation(t *testing.T) {
	c := newClassifier()
	params := make([]byte, 2, 2+len(attributeLists)+1)
	binary.BigEndian.PutUint16(params, uint16(len(attributeLists)))
	params = append(params, attributeLists...)
	params = append(params, 0x00)
	pdu := append([]byte{0x07, 0x00, 0x01, 0x00, byte(len(params))}, params...)

	l2 := make([]byte, 4, 4+len(pdu))
	binary.LittleEndian.PutUint16(l2[0:2], uint16(len(pdu)))
	binary.LittleEndian.PutUint16(l2[2:4], 0x0040)
	l2 = append(l2, pdu...)

	split := 4 + 5 + 2 + 10
	first := append([]byte{0x0b, 0x20, byte(split), 0x00}, l2[:split]...)

	res := c.Classify(first)
	assert.Equal(t, "SSA_RSP CID:0x0040", res.Text)
	assert.Equal(t, 2, c.Parser.Depth())
	assert.NotZero(t, res.Pending)

	// the continuation packet never arrives, the next response stands alone
	res = c.Classify(packet(t, 0x0040, &layers.SDPLayer{
		PDUID: layers.SDPServiceSearchAttributeResponse, TransactionID: 2, AttributeLists: attributeLists,
	}))
	assert.NoError(t, res.ParseErr)
	assert.Equal(t, "SSA_RSP CID:0x0040 "+attributeText, res.Text)
	assert.Len(t, res.Items, 9)
	assert.True(t, c.Parser.Idle())
}

func TestClassifySDPAfterUnknownHeader(t *testing.T) {
	c := newClassifier()
	res := c.Classify(packet(t, 0x0040, &layers.SDPLayer{
		PDUID: layers.SDPServiceSearchAttributeResponse, TransactionID: 1, AttributeLists: []byte{0xff, 0x00},
	}))
	assert.ErrorIs(t, res.ParseErr, sdp.ErrUnknownHeader)
	require.NotNil(t, res.Failed)
	assert.Equal(t, byte(0xff), res.Failed.Header)
	assert.Empty(t, res.Items)

	for tid := uint16(2); tid < 4; tid++ {
		res = c.Classify(packet(t, 0x0040, &layers.SDPLayer{
			PDUID: layers.SDPServiceSearchAttributeResponse, TransactionID: tid, AttributeLists: attributeLists,
		}))
		assert.NoError(t, res.ParseErr)
		assert.Equal(t, "SSA_RSP CID:0x0040 "+attributeText, res.Text)
		assert.Len(t, res.Items, 9)
		assert.True(t, c.Parser.Idle())
	}
}

func TestClassifySDPAfterFinalResponse(t *testing.T) {
	c := newClassifier()
	// the sequence is left open but the empty continuation state ends the response
	res := c.Classify(packet(t, 0x0040, &layers.SDPLayer{
		PDUID: layers.SDPServiceSearchAttributeResponse, TransactionID: 1,
		AttributeLists: []byte{0x35, 0x05, 0x09, 0x00}, ContinuationState: []byte{0x00},
	}))
	assert.ErrorIs(t, res.ParseErr, sdp.ErrShortElement)
	assert.False(t, c.Parser.Idle())

	res = c.Classify(packet(t, 0x0040, &layers.SDPLayer{
		PDUID: layers.SDPServiceSearchAttributeResponse, TransactionID: 2, AttributeLists: attributeLists,
	}))
	assert.Equal(t, "SSA_RSP CID:0x0040 "+attributeText, res.Text)
	assert.True(t, c.Parser.Idle())
}

func TestClassifySDPContinuedResponse(t *testing.T) {
	c := newClassifier()
	// a non-empty continuation state keeps the open sequence for the next response
	res := c.Classify(packet(t, 0x0040, &layers.SDPLayer{
		PDUID: layers.SDPServiceAttributeResponse, TransactionID: 1,
		AttributeLists: []byte{0x35, 0x03}, ContinuationState: []byte{0x01, 0x10},
	}))
	assert.Equal(t, "SA_RSP CID:0x0040", res.Text)
	assert.Equal(t, 1, c.Parser.Depth())

	res = c.Classify(packet(t, 0x0040, &layers.SDPLayer{
		PDUID: layers.SDPServiceAttributeResponse, TransactionID: 2,
		AttributeLists: []byte{0x09, 0x00, 0x01}, ContinuationState: []byte{0x00},
	}))
	assert.Equal(t, "SA_RSP CID:0x0040 ( 0x0001 ServiceClassIDList )", res.Text)
	assert.True(t, c.Parser.Idle())
}

func TestClassifySDPByTable(t *testing.T) {
	c := newClassifier()
	connect(t, c, 0x0001, 0x0070)
	res := c.Classify(packet(t, 0x0070, &layers.SDPLayer{
		PDUID: layers.SDPServiceSearchRequest, TransactionID: 2, Parameters: []byte{0x35, 0x03, 0x19, 0x11, 0x24},
	}))
	assert.Equal(t, KindSDP, res.Kind)
	assert.Equal(t, "SS_REQ CID:0x0070=S(SDP)", res.Text)
	assert.Empty(t, res.Items)
}

func TestClassifyUnknownSDP(t *testing.T) {
	c := newClassifier()
	res := c.Classify(packet(t, 0x0041, &layers.SDPLayer{PDUID: 0x09, Parameters: []byte{0x00}}))
	assert.Equal(t, "SDP:0x09 CID:0x0041", res.Text)
}

func TestClassifyShortPayload(t *testing.T) {
	c := newClassifier()
	res := c.Classify([]byte{0x0b, 0x20, 0x04, 0x00, 0x00, 0x00, 0x01, 0x00})
	assert.Equal(t, KindNone, res.Kind)
}
