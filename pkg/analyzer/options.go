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

package analyzer

import (
	"io"
	"time"

	"jinr.ru/greenlab/go-usbhla/pkg/config"
	"jinr.ru/greenlab/go-usbhla/pkg/l2cap"
)

// EndpointDisabled turns off the channel classifier
const EndpointDisabled = -1

type options struct {
	base               int
	designatedEndpoint int
	serviceRange       config.ServiceRange
	flushDepth         int
	trace              io.Writer
	requireHandshake   bool
	handshakeTimeout   time.Duration
	table              *l2cap.Table
}

// Option configures an Analyzer
type Option func(*options)

// WithBase selects decimal (10) or hexadecimal (16) payload rendering
func WithBase(base int) Option {
	return func(o *options) {
		o.base = base
	}
}

// WithDesignatedEndpoint sets the endpoint whose payloads are classified, EndpointDisabled turns it off
func WithDesignatedEndpoint(endpoint int) Option {
	return func(o *options) {
		o.designatedEndpoint = endpoint
	}
}

// WithServiceRange sets the inclusive channel id range treated as service discovery
func WithServiceRange(lo, hi uint16) Option {
	return func(o *options) {
		o.serviceRange = config.ServiceRange{Lo: lo, Hi: hi}
	}
}

// WithFlushDepth sets the container depth whose completion flushes a rendering line
func WithFlushDepth(depth int) Option {
	return func(o *options) {
		o.flushDepth = depth
	}
}

// WithTrace sends diagnostic lines to w instead of the trace log level
func WithTrace(w io.Writer) Option {
	return func(o *options) {
		o.trace = w
	}
}

// WithRequireHandshake withholds IN/OUT records until their handshake,
// the next transaction or the timeout
func WithRequireHandshake(require bool) Option {
	return func(o *options) {
		o.requireHandshake = require
	}
}

func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.handshakeTimeout = timeout
	}
}

// WithTable starts from an existing channel table, e.g. a stored snapshot
func WithTable(table *l2cap.Table) Option {
	return func(o *options) {
		o.table = table
	}
}

// WithDecoderConfig applies the decoder section of the config file
func WithDecoderConfig(c *config.DecoderConfig) Option {
	return func(o *options) {
		if c == nil {
			return
		}
		o.base = c.Base
		o.designatedEndpoint = c.DesignatedEndpoint
		o.serviceRange = c.ServiceRange
		o.flushDepth = c.FlushDepth
		o.requireHandshake = c.RequireHandshake
		o.handshakeTimeout = c.HandshakeTimeout.Duration
	}
}

func defaultOptions() options {
	return options{
		base:               config.DefaultBase,
		designatedEndpoint: config.DefaultDesignatedEndpoint,
		serviceRange:       config.ServiceRange{Lo: config.DefaultServiceRangeLo, Hi: config.DefaultServiceRangeHi},
		flushDepth:         config.DefaultFlushDepth,
		handshakeTimeout:   config.DefaultHandshakeTimeout,
	}
}
