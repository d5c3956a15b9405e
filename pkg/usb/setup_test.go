package usb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeSetup(t *testing.T) {
	cases := []struct {
		setup []byte
		want  string
	}{
		{[]byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x00, 0x12, 0x00}, "GET_DESCRIPTOR - DEVICE #:0 I:0x0 L:0x12"},
		{[]byte{0x80, 0x06, 0x00, 0x02, 0x00, 0x00, 0x09, 0x00}, "GET_DESCRIPTOR - CONFIG #:0 I:0x0 L:0x9"},
		{[]byte{0x80, 0x06, 0x02, 0x03, 0x09, 0x04, 0xff, 0x00}, "GET_DESCRIPTOR - STRING #:2 I:0x409 L:0xff"},
		{[]byte{0x80, 0x06, 0x00, 0x06, 0x00, 0x00, 0x0a, 0x00}, "GET_DESCRIPTOR - DEVICE_QUALIFIER #:0 I:0x0 L:0xa"},
		{[]byte{0x80, 0x06, 0x00, 0x0f, 0x00, 0x00, 0x05, 0x00}, "GET_DESCRIPTOR - ?? I:0x0 L:0x5"},
		{[]byte{0x00, 0x05, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00}, "SET_ADDRESS I:0x0 L:0x0"},
		{[]byte{0x00, 0x09, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00}, "SET_CONFIGURATION I:0x0 L:0x0"},
		{[]byte{0x81, 0x06, 0x00, 0x22, 0x00, 0x00, 0x41, 0x00}, "GET_DESCRIPTOR - HID REPORT I:0x0 L:0x41"},
		{[]byte{0x21, 0x0a, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, "HID SET_IDLE I:0x0 L:0x0"},
		{[]byte{0x21, 0x09, 0x00, 0x02, 0x00, 0x00, 0x01, 0x00}, "HID SET_REPORT I:0x0 L:0x1"},
		{[]byte{0xa1, 0x01, 0x05, 0x03, 0x01, 0x00, 0x08, 0x00}, "GET_REPORT - FEATURE # 5 I:0x1 L:0x8"},
		{[]byte{0xa1, 0x01, 0x00, 0x01, 0x00, 0x00, 0x08, 0x00}, "GET_REPORT - INPUT # 0 I:0x0 L:0x8"},
		{[]byte{0xa1, 0x01, 0x00, 0x07, 0x00, 0x00, 0x08, 0x00}, "GET_REPORT - ?? I:0x0 L:0x8"},
		{[]byte{0x20, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03, 0x00}, "HCI COMMAND I:0x0 L:0x3"},
		{[]byte{0xc0, 0x33, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00}, "RT:0xc0 R:0x33 I:0x0 L:0x2"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DecodeSetup(c.setup))
	}
}

func TestDecodeSetupShortInput(t *testing.T) {
	assert.Equal(t, "GET_STATUS I:0x0 L:0x0", DecodeSetup([]byte{0x80}))
	assert.Equal(t, "RT:0x0 R:0x0 I:0x0 L:0x0", DecodeSetup(nil))
}

func TestParseSetup(t *testing.T) {
	s := ParseSetup([]byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x00, 0x12, 0x00})
	assert.Equal(t, uint8(0x80), s.RequestType)
	assert.Equal(t, uint16(0x0100), s.Value)
	assert.Equal(t, uint16(0x12), s.Length)
}
