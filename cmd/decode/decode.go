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

package decode

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-usbhla/pkg/command"
	"jinr.ru/greenlab/go-usbhla/pkg/config"
)

const (
	BaseOptionName             = "base"
	EndpointOptionName         = "endpoint"
	FlushDepthOptionName       = "flush-depth"
	RequireHandshakeOptionName = "require-handshake"
	FilterOptionName           = "filter"
	FormatOptionName           = "format"
	TraceOptionName            = "trace"
	StoreOptionName            = "store"
	CaptureOptionName          = "capture"
	DBOptionName               = "db"
)

const decodeExample = `
Print the one line trace of every transaction
# go-usbhla decode capture.yaml

Print HID reports of the interrupt channel in hex and keep the decode trace
# go-usbhla decode capture.yaml --base 16 --filter 'channel == "hidp"' --trace trace.log

Store records in the record database
# go-usbhla decode capture.yaml --store --capture keyboard
`

func NewCommand(cfg *config.Config) *cobra.Command {
	var base, endpoint, flushDepth int
	var requireHandshake, store bool
	o := command.DecodeOptions{}
	var trace, dbPath string
	cmd := &cobra.Command{
		Use:     "decode FILE",
		Short:   "Decode a token capture file",
		Example: decodeExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed(BaseOptionName) {
				cfg.Decoder.Base = base
			}
			if flags.Changed(EndpointOptionName) {
				cfg.Decoder.DesignatedEndpoint = endpoint
			}
			if flags.Changed(FlushDepthOptionName) {
				cfg.Decoder.FlushDepth = flushDepth
			}
			if flags.Changed(RequireHandshakeOptionName) {
				cfg.Decoder.RequireHandshake = requireHandshake
			}
			if dbPath != "" {
				cfg.Store.DBPath = dbPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			switch trace {
			case "":
			case "-":
				o.Trace = cmd.ErrOrStderr()
			default:
				f, err := os.Create(trace)
				if err != nil {
					return err
				}
				defer f.Close()
				o.Trace = f
			}
			o.Path = args[0]
			o.Store = store
			return command.Decode(cmd.Context(), cfg, o, cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&base, BaseOptionName, config.DefaultBase, "Numeric base of payload bytes, 10 or 16")
	flags.IntVar(&endpoint, EndpointOptionName, config.DefaultDesignatedEndpoint, "Endpoint carrying HCI ACL data, -1 disables classification")
	flags.IntVar(&flushDepth, FlushDepthOptionName, config.DefaultFlushDepth, "Container depth at which element lines are flushed")
	flags.BoolVar(&requireHandshake, RequireHandshakeOptionName, false, "Hold IN/OUT records until their handshake")
	flags.StringVar(&o.Filter, FilterOptionName, "", "Expression selecting printed records, e.g. 'kind == \"IN\" && size > 8'")
	flags.StringVar(&o.Format, FormatOptionName, command.FormatCSV, fmt.Sprintf("Output format: %s, %s or %s", command.FormatCSV, command.FormatYAML, command.FormatJSON))
	flags.StringVar(&trace, TraceOptionName, "", "File receiving the decode trace, - for stderr")
	flags.BoolVar(&store, StoreOptionName, false, "Store records in the record database")
	flags.StringVar(&o.Capture, CaptureOptionName, "", "Name of the stored capture, the file name by default")
	flags.StringVar(&dbPath, DBOptionName, "", fmt.Sprintf("Record database. Default %s", config.DefaultDBPath()))
	return cmd
}

