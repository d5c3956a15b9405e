package l2cap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var header = []byte{0x0b, 0x20, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00}

func command(b ...byte) []byte {
	return append(append([]byte{}, header...), b...)
}

func TestTableConnectionInvariant(t *testing.T) {
	table := NewTable()
	d := NewDecoder(table)

	text := d.Decode(command(0x02, 0x01, 0x04, 0x00, 0x11, 0x00, 0x40, 0x00), 8)
	assert.Equal(t, "CONN_REQ PSM:CTRL SCID:0x0040=S(CTRL)", text)

	text = d.Decode(command(0x03, 0x01, 0x08, 0x00, 0x41, 0x00, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00), 8)
	assert.Equal(t, "CONN_RSP DCID:0x0041=D(CTRL) SCID:0x0040=S(CTRL) result:success status:none", text)

	e, ok := table.Lookup(0x0041)
	require.True(t, ok)
	assert.Equal(t, PSMHIDControl, e.PSM)
	assert.Equal(t, RoleResponder, e.Role)

	_, ok = table.Lookup(0x0099)
	assert.False(t, ok)
	assert.Equal(t, "0x0099", table.Label(0x0099))
}

func TestConnectionResponseUnknownSource(t *testing.T) {
	table := NewTable()
	d := NewDecoder(table)
	text := d.Decode(command(0x03, 0x01, 0x08, 0x00, 0x41, 0x00, 0x40, 0x00, 0x02, 0x00, 0x00, 0x00), 8)
	assert.Equal(t, "CONN_RSP DCID:0x0041 SCID:0x0040 result:PSM not supported status:none", text)
	assert.Equal(t, 0, table.Len())
}

func TestDecodeExcept(t *testing.T) {
	d := NewDecoder(NewTable())
	assert.Equal(t, "CONN_REQ (except)", d.Decode(command(0x02), 8))
	assert.Equal(t, "CONN_REQ PSM:SDP (except)", d.Decode(command(0x02, 0x01, 0x04, 0x00, 0x01, 0x00, 0x40), 8))
	assert.Equal(t,
		"CONN_RSP DCID:0x0041 SCID:0x0040 (except)",
		d.Decode(command(0x03, 0x01, 0x08, 0x00, 0x41, 0x00, 0x40, 0x00, 0x00), 8))
	assert.Equal(t, "CMD (except)", d.Decode(header, 8))
}

func TestDecodeBoundedByLength(t *testing.T) {
	table := NewTable()
	d := NewDecoder(table)
	// declared length 2, the trailing bytes belong to no field
	text := d.Decode(command(0x02, 0x01, 0x02, 0x00, 0x11, 0x00, 0x40, 0x00), 8)
	assert.Equal(t, "CONN_REQ PSM:CTRL (except)", text)
	assert.Equal(t, 0, table.Len())

	text = d.Decode(command(0x06, 0x03, 0x02, 0x00, 0x50, 0x00, 0x51, 0x00), 8)
	assert.Equal(t, "DISC_REQ (except)", text)
}

func TestDecodeConfigure(t *testing.T) {
	table := NewTable()
	table.Register(0x0041, PSMHIDControl, RoleResponder)
	d := NewDecoder(table)

	text := d.Decode(command(0x04, 0x02, 0x08, 0x00, 0x41, 0x00, 0x00, 0x00, 0x01, 0x02, 0xa0, 0x02), 8)
	assert.Equal(t, "CONF_REQ DCID:0x0041=D(CTRL) flags:0x0000 MTU:672", text)

	text = d.Decode(command(0x05, 0x02, 0x0a, 0x00, 0x41, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x02, 0x00, 0x00), 8)
	assert.Equal(t, "CONF_RSP SCID:0x0041=D(CTRL) flags:0x0000 result:success opt:0x02", text)

	text = d.Decode(command(0x04, 0x02, 0x07, 0x00, 0x41, 0x00, 0x00, 0x00, 0x01, 0x02, 0xa0), 8)
	assert.Equal(t, "CONF_REQ DCID:0x0041=D(CTRL) flags:0x0000 (except)", text)
}

func TestDecodeOtherCommands(t *testing.T) {
	d := NewDecoder(NewTable())
	assert.Equal(t, "CMD_REJECT reason:not understood", d.Decode(command(0x01, 0x05, 0x02, 0x00, 0x00, 0x00), 8))
	assert.Equal(t, "DISC_REQ DCID:0x0050 SCID:0x0051", d.Decode(command(0x06, 0x03, 0x04, 0x00, 0x50, 0x00, 0x51, 0x00), 8))
	assert.Equal(t, "INFO_REQ type:extended features", d.Decode(command(0x0a, 0x04, 0x02, 0x00, 0x02, 0x00), 8))
	assert.Equal(t,
		"INFO_RSP type:extended features result:success data:0xb8 0x02 0x00 0x00",
		d.Decode(command(0x0b, 0x04, 0x08, 0x00, 0x02, 0x00, 0x00, 0x00, 0xb8, 0x02, 0x00, 0x00), 8))
	assert.Equal(t, "ECHO_REQ len:2", d.Decode(command(0x08, 0x05, 0x02, 0x00, 0xaa, 0xbb), 8))
	assert.Equal(t, "CMD:0x20", d.Decode(command(0x20, 0x01, 0x00, 0x00), 8))
}

func TestDisconnectKeepsEntries(t *testing.T) {
	table := NewTable()
	table.Register(0x0040, PSMSDP, RoleRequester)
	d := NewDecoder(table)
	d.Decode(command(0x06, 0x03, 0x04, 0x00, 0x41, 0x00, 0x40, 0x00), 8)
	_, ok := table.Lookup(0x0040)
	assert.True(t, ok)
}

func TestPSMNames(t *testing.T) {
	assert.Equal(t, "INTR", PSMHIDInterrupt.String())
	assert.Equal(t, "AVCTP_BR", PSMAVCTPBrowsing.String())
	assert.Equal(t, "0x1234", PSM(0x1234).String())
	assert.True(t, PSMHIDControl.IsHID())
	assert.False(t, PSMSDP.IsHID())
}

func TestTableEntriesAndLoad(t *testing.T) {
	table := NewTable()
	table.Register(0x0042, PSMHIDInterrupt, RoleRequester)
	table.Register(0x0040, PSMSDP, RoleRequester)
	entries := table.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, uint16(0x0040), entries[0].CID)

	data, err := json.Marshal(entries)
	require.NoError(t, err)
	var restored []Entry
	require.NoError(t, json.Unmarshal(data, &restored))

	other := NewTable()
	other.Load(restored)
	assert.Equal(t, "0x0042=S(INTR)", other.Label(0x0042))

	other.Reset()
	assert.Equal(t, 0, other.Len())
}

func TestRoleText(t *testing.T) {
	var r Role
	require.NoError(t, r.UnmarshalText([]byte("D")))
	assert.Equal(t, RoleResponder, r)
	assert.Error(t, r.UnmarshalText([]byte("x")))
}
