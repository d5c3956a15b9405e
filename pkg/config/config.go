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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"sigs.k8s.io/yaml"
)

type ServiceRange struct {
	Lo uint16 `json:"lo" toml:"lo"`
	Hi uint16 `json:"hi" toml:"hi"`
}

// Contains reports whether cid falls into the inclusive range
func (r ServiceRange) Contains(cid uint16) bool {
	return cid >= r.Lo && cid <= r.Hi
}

type DecoderConfig struct {
	Base int `json:"base" toml:"base"`
	// DesignatedEndpoint is the endpoint whose payloads go to the channel classifier, -1 disables it
	DesignatedEndpoint int          `json:"designatedEndpoint" toml:"designatedEndpoint"`
	ServiceRange       ServiceRange `json:"serviceRange" toml:"serviceRange"`
	FlushDepth         int          `json:"flushDepth" toml:"flushDepth"`
	RequireHandshake   bool         `json:"requireHandshake" toml:"requireHandshake"`
	HandshakeTimeout   Duration     `json:"handshakeTimeout" toml:"handshakeTimeout"`
}

type StoreConfig struct {
	DBPath string `json:"dbPath,omitempty" toml:"dbPath"`
}

type ApiConfig struct {
	Address string `json:"address,omitempty" toml:"address"`
	Port    int    `json:"port,omitempty" toml:"port"`
}

type Config struct {
	Decoder  *DecoderConfig `json:"decoder,omitempty" toml:"decoder"`
	Store    *StoreConfig   `json:"store,omitempty" toml:"store"`
	Api      *ApiConfig     `json:"api,omitempty" toml:"api"`
	LogLevel string         `json:"logLevel,omitempty" toml:"logLevel"`
	filepath string
}

// Duration is a time.Duration written to config files as a string, e.g. "5ms"
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

func isToml(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	var data []byte
	var err error
	if isToml(c.filepath) {
		var sb strings.Builder
		err = toml.NewEncoder(&sb).Encode(c)
		data = []byte(sb.String())
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return os.WriteFile(c.filepath, data, 0644)
}

// LoadConfig reads the file at the config path on top of the current values
func (c *Config) LoadConfig() error {
	data, err := os.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	if isToml(c.filepath) {
		if _, err := toml.Decode(string(data), c); err != nil {
			return err
		}
	} else if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	return c.Validate()
}

// Validate checks decoder values that would make the analyzer misbehave
func (c *Config) Validate() error {
	if c.Decoder == nil {
		return nil
	}
	if c.Decoder.Base != 10 && c.Decoder.Base != 16 {
		return ErrConfigValue{Field: "decoder.base", Value: c.Decoder.Base}
	}
	if c.Decoder.ServiceRange.Lo > c.Decoder.ServiceRange.Hi {
		return ErrConfigValue{Field: "decoder.serviceRange", Value: c.Decoder.ServiceRange}
	}
	if c.Decoder.FlushDepth < 0 {
		return ErrConfigValue{Field: "decoder.flushDepth", Value: c.Decoder.FlushDepth}
	}
	return nil
}

// Load returns the default config overlaid with the file at path.
// A missing file at the default path is not an error.
func Load(path string) (*Config, error) {
	c := NewDefaultConfig()
	explicit := path != ""
	if explicit {
		c.filepath = path
	}
	if err := c.LoadConfig(); err != nil {
		if os.IsNotExist(err) && !explicit {
			return c, nil
		}
		return nil, err
	}
	return c, nil
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), DefaultDBFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		Decoder: &DecoderConfig{
			Base:               DefaultBase,
			DesignatedEndpoint: DefaultDesignatedEndpoint,
			ServiceRange: ServiceRange{
				Lo: DefaultServiceRangeLo,
				Hi: DefaultServiceRangeHi,
			},
			FlushDepth:       DefaultFlushDepth,
			HandshakeTimeout: Duration{DefaultHandshakeTimeout},
		},
		Store: &StoreConfig{
			DBPath: DefaultDBPath(),
		},
		Api: &ApiConfig{
			Address: DefaultApiAddress,
			Port:    DefaultApiPort,
		},
		LogLevel: DefaultLogLevel,
		filepath: DefaultConfigPath(),
	}
}
