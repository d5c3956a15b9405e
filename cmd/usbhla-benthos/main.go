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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/redpanda-data/benthos/v4/public/service"

	"jinr.ru/greenlab/go-usbhla/pkg/analyzer"
	"jinr.ru/greenlab/go-usbhla/pkg/config"
	"jinr.ru/greenlab/go-usbhla/pkg/filter"
	"jinr.ru/greenlab/go-usbhla/pkg/token"
)

// DecodeProcessor turns token messages into transaction record messages.
// A message may carry one token or a whole capture.
type DecodeProcessor struct {
	mu       sync.Mutex
	opts     []analyzer.Option
	stateful bool
	analyzer *analyzer.Analyzer
	filter   *filter.Filter
	logger   *service.Logger
	mTokens  *service.MetricCounter
	mRecords *service.MetricCounter
	mErrors  *service.MetricCounter
}

func init() {
	err := service.RegisterProcessor(
		"usbhla_decode",
		decodeProcessorConfig(),
		func(conf *service.ParsedConfig, mgr *service.Resources) (service.Processor, error) {
			return newDecodeProcessorFromConfig(conf, mgr)
		},
	)
	if err != nil {
		panic(err)
	}
}

func decodeProcessorConfig() *service.ConfigSpec {
	return service.NewConfigSpec().
		Summary("Decodes USB bus token events into transaction records.").
		Description("Each input message holds a token as JSON or a token capture as a YAML/JSON list or JSON lines. " +
			"Every finished transaction is emitted as a JSON record message.").
		Field(service.NewIntField("base").
			Description("Numeric base of rendered payload bytes, 10 or 16.").
			Default(config.DefaultBase)).
		Field(service.NewIntField("endpoint").
			Description("Endpoint carrying HCI ACL data, -1 disables classification.").
			Default(config.DefaultDesignatedEndpoint)).
		Field(service.NewIntField("flush_depth").
			Description("Container depth at which element lines are flushed.").
			Default(config.DefaultFlushDepth)).
		Field(service.NewBoolField("require_handshake").
			Description("Hold IN/OUT records until their handshake token.").
			Default(false)).
		Field(service.NewBoolField("stateful").
			Description("Keep decoding state across messages. When false each message is decoded on its own and flushed.").
			Default(true)).
		Field(service.NewStringField("filter").
			Description("Expression selecting emitted records.").
			Example(`channel == "hidp"`).
			Default("")).
		Version("0.1.0")
}

func newDecodeProcessorFromConfig(conf *service.ParsedConfig, mgr *service.Resources) (*DecodeProcessor, error) {
	base, err := conf.FieldInt("base")
	if err != nil {
		return nil, err
	}
	if base != 10 && base != 16 {
		return nil, config.ErrConfigValue{Field: "base", Value: base}
	}
	endpoint, err := conf.FieldInt("endpoint")
	if err != nil {
		return nil, err
	}
	flushDepth, err := conf.FieldInt("flush_depth")
	if err != nil {
		return nil, err
	}
	requireHandshake, err := conf.FieldBool("require_handshake")
	if err != nil {
		return nil, err
	}
	stateful, err := conf.FieldBool("stateful")
	if err != nil {
		return nil, err
	}
	source, err := conf.FieldString("filter")
	if err != nil {
		return nil, err
	}
	f, err := filter.Compile(source)
	if err != nil {
		return nil, err
	}

	metrics := mgr.Metrics()
	p := &DecodeProcessor{
		opts: []analyzer.Option{
			analyzer.WithBase(base),
			analyzer.WithDesignatedEndpoint(endpoint),
			analyzer.WithFlushDepth(flushDepth),
			analyzer.WithRequireHandshake(requireHandshake),
		},
		stateful: stateful,
		filter:   f,
		logger:   mgr.Logger(),
		mTokens:  metrics.NewCounter("usbhla_tokens"),
		mRecords: metrics.NewCounter("usbhla_records"),
		mErrors:  metrics.NewCounter("usbhla_errors"),
	}
	p.analyzer = analyzer.New(p.opts...)
	return p, nil
}

func (p *DecodeProcessor) Process(ctx context.Context, msg *service.Message) (service.MessageBatch, error) {
	data, err := msg.AsBytes()
	if err != nil {
		p.mErrors.Incr(1)
		msg.SetError(fmt.Errorf("failed to get token data from message: %w", err))
		return service.MessageBatch{msg}, nil
	}
	tokens, err := token.Parse(data)
	if err != nil {
		p.logger.Errorf("Failed to parse tokens: %v", err)
		p.mErrors.Incr(1)
		msg.SetError(fmt.Errorf("failed to parse tokens: %w", err))
		return service.MessageBatch{msg}, nil
	}
	p.mTokens.Incr(int64(len(tokens)))

	p.mu.Lock()
	defer p.mu.Unlock()
	a := p.analyzer
	if !p.stateful {
		a = analyzer.New(p.opts...)
	}
	collector := &analyzer.Collector{}
	sink := &filter.Sink{Filter: p.filter, Next: collector}
	if p.stateful {
		for i := range tokens {
			for r := a.Decode(tokens[i]); r != nil; r = a.Next() {
				if err := sink.Put(r); err != nil {
					p.mErrors.Incr(1)
					msg.SetError(err)
					return service.MessageBatch{msg}, nil
				}
			}
		}
	} else if err := a.Process(ctx, tokens, sink); err != nil {
		p.mErrors.Incr(1)
		msg.SetError(err)
		return service.MessageBatch{msg}, nil
	}

	batch := make(service.MessageBatch, 0, len(collector.Records))
	for _, r := range collector.Records {
		out, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		newMsg := service.NewMessage(out)
		msg.MetaWalk(func(key, value string) error {
			newMsg.MetaSet(key, value)
			return nil
		})
		newMsg.MetaSet("usbhla_seq", strconv.FormatUint(r.Seq, 10))
		newMsg.MetaSet("usbhla_kind", r.Kind)
		if r.Channel != "" {
			newMsg.MetaSet("usbhla_channel", string(r.Channel))
		}
		batch = append(batch, newMsg)
	}
	p.mRecords.Incr(int64(len(batch)))
	p.logger.Tracef("Decoded %d tokens into %d records", len(tokens), len(batch))
	return batch, nil
}

func (p *DecodeProcessor) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if held := p.analyzer.Flush(); len(held) > 0 {
		p.logger.Warnf("Dropping %d records of an unfinished capture", len(held))
	}
	return nil
}

func main() {
	service.RunCLI(context.Background())
}
