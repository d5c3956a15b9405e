package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-usbhla/pkg/config"
	"jinr.ru/greenlab/go-usbhla/pkg/l2cap"
	"jinr.ru/greenlab/go-usbhla/pkg/srv"
	"jinr.ru/greenlab/go-usbhla/pkg/store"
)

const tokens = `
- {kind: pid, value: SETUP, start: 10}
- {kind: addrendp, addr: 0, endpoint: 0}
- {kind: data, data: [128, 6, 0, 1, 0, 0, 18, 0]}
- {kind: eop, end: 10.001}
- {kind: pid, value: IN, start: 10.5}
- {kind: addrendp, addr: 2, endpoint: 2}
- {kind: data, data: "0x0b 0x20 0x0c 0x00 0x08 0x00 0x01 0x00"}
- {kind: data, data: "0x02 0x01 0x04 0x00 0x13 0x00 0x41 0x00"}
- {kind: eop, end: 10.6}
`

func testConfig(t *testing.T) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Store.DBPath = filepath.Join(t.TempDir(), "records.db")
	return cfg
}

func writeTokens(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "hid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tokens), 0644))
	return path
}

func TestDecodeCSV(t *testing.T) {
	out := &bytes.Buffer{}
	err := Decode(context.Background(), testConfig(t), DecodeOptions{Path: writeTokens(t)}, out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "0.0 , SETUP , 0 , 0 , GET_DESCRIPTOR"), lines[0])
	assert.Contains(t, lines[1], "CONN_REQ PSM:INTR SCID:0x0041=S(INTR)")
}

func TestDecodeFilterAndStore(t *testing.T) {
	cfg := testConfig(t)
	out := &bytes.Buffer{}
	err := Decode(context.Background(), cfg, DecodeOptions{
		Path:   writeTokens(t),
		Format: FormatYAML,
		Filter: `kind == "IN"`,
		Store:  true,
	}, out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "kind: IN")
	assert.NotContains(t, out.String(), "kind: SETUP")

	state, err := store.NewState(context.Background(), cfg.Store.DBPath)
	require.NoError(t, err)
	defer state.Close()
	c, err := state.GetCapture("hid")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Records)
	entries, err := state.GetChannels("hid")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, l2cap.PSMHIDInterrupt, entries[0].PSM)
}

func TestDecodeUnknownFormat(t *testing.T) {
	err := Decode(context.Background(), testConfig(t), DecodeOptions{Path: writeTokens(t), Format: "xml"}, io.Discard)
	var formatErr ErrFormat
	assert.True(t, errors.As(err, &formatErr))
}

func TestApiClient(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	state, err := store.NewState(ctx, cfg.Store.DBPath)
	require.NoError(t, err)
	defer state.Close()
	s, err := srv.NewApiServer(ctx, cfg, state)
	require.NoError(t, err)
	s.AccessLog = io.Discard
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	c := NewApiClient(cfg)
	c.ApiPrefix = ts.URL + "/api"

	capture, err := c.Upload("hid", []byte(tokens), 16, -1)
	require.NoError(t, err)
	assert.Equal(t, 16, capture.Base)
	assert.Equal(t, 2, capture.Records)

	captures, err := c.Captures()
	require.NoError(t, err)
	require.Len(t, captures, 1)

	records, err := c.Records("hid", `channel == "signaling"`, 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(2), records[0].Seq)

	rec, err := c.Record("hid", 1)
	require.NoError(t, err)
	assert.Equal(t, "SETUP", rec.Kind)
	assert.Equal(t, " 0x80 0x6 0x0 0x1 0x0 0x0 0x12 0x0", rec.Payload)

	entries, err := c.Channels("hid")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = c.Record("hid", 7)
	var apiErr ErrApi
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 404, apiErr.Code)

	require.NoError(t, c.Delete("hid"))
	_, err = c.Capture("hid")
	assert.Error(t, err)
}
