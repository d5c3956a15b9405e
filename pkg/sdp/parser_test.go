package sdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// one service record with a handle, a class list and a name
var attributeLists = []byte{
	0x35, 0x1a,
	0x35, 0x18,
	0x09, 0x00, 0x00, 0x0a, 0x00, 0x01, 0x00, 0x00,
	0x09, 0x00, 0x01, 0x35, 0x03, 0x19, 0x11, 0x24,
	0x09, 0x01, 0x00, 0x25, 0x03, 'H', 'I', 'D',
}

type parsed struct {
	items []Item
	lines []string
}

func feed(p *Parser, chunks ...[]byte) parsed {
	var out parsed
	for _, c := range chunks {
		res := p.Append(c)
		for _, item := range res.Items {
			item.Offset = 0
			out.items = append(out.items, item)
		}
		out.lines = append(out.lines, res.Lines...)
	}
	return out
}

func TestParserSingleDelivery(t *testing.T) {
	p := NewParser(DefaultFlushDepth)
	res := p.Append(attributeLists)
	require.NoError(t, res.Err)
	assert.Len(t, res.Items, 9)
	assert.Equal(t, 0, res.Pending)
	assert.True(t, p.Idle())
	assert.Equal(t, []string{
		`( ( 0x0000 ServiceRecordHandle 0x00010000 0x0001 ServiceClassIDList ( 0x1124 HumanInterfaceDeviceService ) 0x0100 ServiceName "HID" )`,
		`)`,
	}, res.Lines)

	depths := make([]int, len(res.Items))
	for i, item := range res.Items {
		depths[i] = item.Depth
	}
	assert.Equal(t, []int{0, 1, 2, 2, 2, 2, 3, 2, 2}, depths)
}

func TestParserSplitIdempotence(t *testing.T) {
	whole := feed(NewParser(DefaultFlushDepth), attributeLists)
	for i := 0; i <= len(attributeLists); i++ {
		p := NewParser(DefaultFlushDepth)
		split := feed(p, attributeLists[:i], attributeLists[i:])
		assert.Equal(t, whole, split, "split at %d", i)
		assert.True(t, p.Idle(), "split at %d", i)
	}
}

func TestParserThreeWaySplit(t *testing.T) {
	whole := feed(NewParser(DefaultFlushDepth), attributeLists)
	p := NewParser(DefaultFlushDepth)
	split := feed(p, attributeLists[:5], attributeLists[5:6], attributeLists[6:])
	assert.Equal(t, whole, split)
}

func TestParserMalformedStringCarryOver(t *testing.T) {
	p := NewParser(DefaultFlushDepth)
	res := p.Append([]byte{0x09, 0x00, 0x01, 0x25, 0x05, 0xc3, 0x28, 0xff})
	assert.ErrorIs(t, res.Err, ErrShortElement)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 5, res.Pending)
	assert.Equal(t, []byte{0x25, 0x05, 0xc3, 0x28, 0xff}, p.Pending())
	require.NotNil(t, res.Failed)
	assert.Equal(t, 3, res.Failed.Offset)
	assert.Equal(t, "[0xc3 0x28 0xff]", res.Failed.Text)

	res = p.Append([]byte{0xa0, 0xa1})
	require.NoError(t, res.Err)
	assert.Nil(t, res.Failed)
	require.Len(t, res.Items, 1)
	assert.False(t, res.Items[0].Valid)
	assert.Equal(t, "[0xc3 0x28 0xff 0xa0 0xa1]", res.Items[0].Text)
	assert.Equal(t, 0, res.Pending)
}

func TestParserUnknownHeader(t *testing.T) {
	p := NewParser(DefaultFlushDepth)
	res := p.Append([]byte{0x09, 0x00, 0x01, 0xff, 0x00})
	assert.ErrorIs(t, res.Err, ErrUnknownHeader)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, []byte{0xff, 0x00}, p.Pending())
	require.NotNil(t, res.Failed)
	assert.Equal(t, byte(0xff), res.Failed.Header)
}

func TestParserFlushDepth(t *testing.T) {
	p := NewParser(0)
	res := p.Append(attributeLists)
	assert.Equal(t, []string{
		`( ( 0x0000 ServiceRecordHandle 0x00010000 0x0001 ServiceClassIDList ( 0x1124 HumanInterfaceDeviceService ) 0x0100 ServiceName "HID" ) )`,
	}, res.Lines)
}

func TestParserEmptyContainer(t *testing.T) {
	p := NewParser(DefaultFlushDepth)
	res := p.Append([]byte{0x35, 0x00})
	assert.Len(t, res.Items, 1)
	assert.Equal(t, 0, p.Depth())
	assert.Equal(t, []string{"( )"}, res.Lines)
}

func TestParserOpenContainerAcrossCalls(t *testing.T) {
	p := NewParser(DefaultFlushDepth)
	p.Append([]byte{0x35, 0x03})
	assert.Equal(t, 1, p.Depth())
	assert.Empty(t, p.Pending())
	res := p.Append([]byte{0x09, 0x00, 0x04})
	assert.Equal(t, 0, p.Depth())
	assert.Equal(t, []string{"( 0x0004 )"}, res.Lines)
}

func TestParserReset(t *testing.T) {
	p := NewParser(DefaultFlushDepth)
	p.Append([]byte{0x35, 0x03, 0x09})
	assert.False(t, p.Idle())
	p.Reset()
	assert.True(t, p.Idle())
	assert.Equal(t, 0, p.Depth())
}
