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

package records

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-usbhla/pkg/command"
	"jinr.ru/greenlab/go-usbhla/pkg/config"
)

const (
	FilterOptionName = "filter"
	AfterOptionName  = "after"
	LimitOptionName  = "limit"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Query records of stored captures",
	}
	cmd.AddCommand(NewListCommand(cfg))
	cmd.AddCommand(NewGetCommand(cfg))
	return cmd
}

func NewListCommand(cfg *config.Config) *cobra.Command {
	var filter string
	var after uint64
	var limit int
	cmd := &cobra.Command{
		Use:   "list CAPTURE",
		Short: "Print the one line trace of stored records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := command.NewApiClient(cfg)
			c, err := client.Capture(args[0])
			if err != nil {
				return err
			}
			records, err := client.Records(args[0], filter, after, limit)
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Fprintln(cmd.OutOrStdout(), r.CSV(c.Origin))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, FilterOptionName, "", "Expression selecting records")
	cmd.Flags().Uint64Var(&after, AfterOptionName, 0, "Skip records up to this sequence number")
	cmd.Flags().IntVar(&limit, LimitOptionName, 0, "Maximum number of records, 0 for all")
	return cmd
}

func NewGetCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get CAPTURE SEQ",
		Short: "Print one stored record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return err
			}
			r, err := command.NewApiClient(cfg).Record(args[0], seq)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(r)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	return cmd
}
