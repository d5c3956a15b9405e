package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-usbhla/pkg/analyzer"
	"jinr.ru/greenlab/go-usbhla/pkg/filter"
	"jinr.ru/greenlab/go-usbhla/pkg/l2cap"
	"jinr.ru/greenlab/go-usbhla/pkg/token"
)

func newState(t *testing.T) *State {
	s, err := NewState(context.Background(), filepath.Join(t.TempDir(), "db", "records.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func records(n int) []*analyzer.Record {
	var out []*analyzer.Record
	for i := 1; i <= n; i++ {
		out = append(out, &analyzer.Record{
			Seq:      uint64(i),
			Kind:     token.PIDIn,
			Addr:     3,
			Endpoint: uint8(i % 3),
			Data:     token.Bytes{byte(i), 0xff},
			Start:    token.Timestamp(float64(i) / 10),
			Display:  analyzer.DisplayRaw,
			Base:     10,
		})
	}
	return out
}

func TestCaptureNotFound(t *testing.T) {
	s := newState(t)
	_, err := s.GetRecord("missing", 1)
	var notFound ErrBucketNotFound
	assert.True(t, errors.As(err, &notFound))
	assert.Equal(t, BucketName("missing"), notFound.Name)
}

func TestPutGetRecords(t *testing.T) {
	s := newState(t)
	require.NoError(t, s.CreateCapture(&Capture{Name: "kbd", Base: 10}))
	require.NoError(t, s.PutRecords("kbd", records(5)))

	r, err := s.GetRecord("kbd", 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), r.Seq)
	assert.Equal(t, token.Bytes{3, 0xff}, r.Data)
	assert.Equal(t, token.Timestamp(0.3), r.Start)

	_, err = s.GetRecord("kbd", 9)
	var notFound ErrRecordNotFound
	assert.True(t, errors.As(err, &notFound))

	c, err := s.GetCapture("kbd")
	require.NoError(t, err)
	assert.Equal(t, 5, c.Records)
	assert.False(t, c.Created.IsZero())
}

func TestGetRecordsQuery(t *testing.T) {
	s := newState(t)
	require.NoError(t, s.CreateCapture(&Capture{Name: "kbd"}))
	require.NoError(t, s.PutRecords("kbd", records(10)))

	all, err := s.GetRecords("kbd", Query{})
	require.NoError(t, err)
	require.Len(t, all, 10)
	assert.Equal(t, uint64(1), all[0].Seq)
	assert.Equal(t, uint64(10), all[9].Seq)

	page, err := s.GetRecords("kbd", Query{After: 4, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, uint64(5), page[0].Seq)

	f, err := filter.Compile("endpoint == 0")
	require.NoError(t, err)
	filtered, err := s.GetRecords("kbd", Query{Filter: f})
	require.NoError(t, err)
	require.Len(t, filtered, 3)
	for _, r := range filtered {
		assert.Equal(t, uint64(0), r.Seq%3)
	}
}

func TestCreateCaptureReplaces(t *testing.T) {
	s := newState(t)
	require.NoError(t, s.CreateCapture(&Capture{Name: "kbd"}))
	require.NoError(t, s.PutRecords("kbd", records(2)))
	require.NoError(t, s.CreateCapture(&Capture{Name: "kbd"}))
	all, err := s.GetRecords("kbd", Query{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCapturesAndDelete(t *testing.T) {
	s := newState(t)
	require.NoError(t, s.CreateCapture(&Capture{Name: "b"}))
	require.NoError(t, s.CreateCapture(&Capture{Name: "a"}))
	captures, err := s.GetAllCaptures()
	require.NoError(t, err)
	require.Len(t, captures, 2)
	assert.Equal(t, "a", captures[0].Name)

	require.NoError(t, s.DeleteCapture("a"))
	captures, err = s.GetAllCaptures()
	require.NoError(t, err)
	assert.Len(t, captures, 1)

	var notFound ErrBucketNotFound
	assert.True(t, errors.As(s.DeleteCapture("a"), &notFound))
}

func TestWriterAndChannels(t *testing.T) {
	s := newState(t)
	require.NoError(t, s.CreateCapture(&Capture{Name: "kbd"}))
	w := NewWriter(s, "kbd")
	w.BatchSize = 2
	for _, r := range records(5) {
		require.NoError(t, w.Put(r))
	}
	a := analyzer.New()
	a.Table().Register(0x0040, l2cap.PSMHIDControl, l2cap.RoleRequester)
	require.NoError(t, w.Close(a))

	all, err := s.GetRecords("kbd", Query{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	entries, err := s.GetChannels("kbd")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint16(0x0040), entries[0].CID)
	assert.Equal(t, l2cap.RoleRequester, entries[0].Role)
}

func TestIngest(t *testing.T) {
	s := newState(t)
	tokens := []token.Token{
		{Kind: token.KindPID, Value: token.PIDIn, Start: 2.5},
		{Kind: token.KindAddrEndp, Addr: 1, Endpoint: 1},
		{Kind: token.KindData, Data: token.Bytes{0xa1, 0x01}},
		{Kind: token.KindEOP, End: 2.6},
		{Kind: token.KindPID, Value: token.PIDOut, Start: 3},
		{Kind: token.KindData, Data: token.Bytes{0x02}},
		{Kind: token.KindEOP, End: 3.1},
	}
	c, err := s.Ingest("kbd", tokens, analyzer.WithBase(16))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Records)
	assert.Equal(t, 16, c.Base)
	assert.Equal(t, token.Timestamp(2.5), c.Origin)

	r, err := s.GetRecord("kbd", 2)
	require.NoError(t, err)
	assert.Equal(t, token.PIDOut, r.Kind)
	assert.Equal(t, uint8(1), r.Addr)
	assert.Equal(t, " 0x2", r.Payload)
}
