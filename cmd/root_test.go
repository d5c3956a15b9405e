package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "jinr.ru/greenlab/go-usbhla/pkg/config"
)

const tokens = `
- {kind: pid, value: IN, start: 4}
- {kind: addrendp, addr: 12, endpoint: 1}
- {kind: data, data: [161, 1, 0, 4]}
- {kind: eop, end: 4.001}
- {kind: pid, value: OUT, start: 4.25}
- {kind: data, data: [2]}
- {kind: eop, end: 4.3}
`

func setup(t *testing.T, base int) (string, string) {
	dir := t.TempDir()
	cfg := pkgconfig.NewDefaultConfig()
	cfg.Decoder.Base = base
	cfg.Store.DBPath = filepath.Join(dir, "records.db")
	cfg.SetPath(filepath.Join(dir, "config.toml"))
	require.NoError(t, cfg.Persist(false))
	path := filepath.Join(dir, "kbd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tokens), 0644))
	return cfg.Path(), path
}

func execute(t *testing.T, args ...string) string {
	out := &bytes.Buffer{}
	cmd := NewRootCommand(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestDecodeCommand(t *testing.T) {
	configPath, path := setup(t, 16)
	out := execute(t, "--config", configPath, "decode", path)
	assert.Equal(t,
		"0.0 , IN , 0x1 , 0xc ,  ,  0xa1 0x1 0x0 0x4\n"+
			"0.25 , OUT , 0x1 , 0xc ,  ,  0x2\n", out)
}

func TestDecodeCommandFlagsOverrideConfig(t *testing.T) {
	configPath, path := setup(t, 16)
	out := execute(t, "--config", configPath, "decode", path, "--base", "10", "--filter", `kind == "OUT"`)
	assert.Equal(t, "0.25 , OUT , 1 , 12 ,  ,  2\n", out)
}

func TestDecodeCommandBadBase(t *testing.T) {
	configPath, path := setup(t, 10)
	cmd := NewRootCommand(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", configPath, "decode", path, "--base", "8"})
	assert.Error(t, cmd.Execute())
}

func TestConfigShow(t *testing.T) {
	configPath, _ := setup(t, 16)
	out := execute(t, "--config", configPath, "config", "show")
	assert.True(t, strings.Contains(out, "base: 16"), out)
}

func TestConfigInit(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config")
	execute(t, "config", "init", "--path", path)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestCompletion(t *testing.T) {
	configPath, _ := setup(t, 10)
	bash := execute(t, "--config", configPath, "completion")
	assert.Contains(t, bash, "go-usbhla")
	assert.Equal(t, bash, execute(t, "--config", configPath, "completion", "bash"))

	fish := execute(t, "--config", configPath, "completion", "fish")
	assert.Contains(t, fish, "go-usbhla")
	assert.NotEqual(t, bash, fish)

	cmd := NewRootCommand(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", configPath, "completion", "tcsh"})
	assert.Error(t, cmd.Execute())
}
