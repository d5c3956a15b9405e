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

package capture

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-usbhla/pkg/command"
	"jinr.ru/greenlab/go-usbhla/pkg/config"
)

const (
	BaseOptionName     = "base"
	EndpointOptionName = "endpoint"
)

// NewCommand groups the commands working with captures stored by the API server
func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Manage stored captures",
	}
	cmd.AddCommand(NewListCommand(cfg))
	cmd.AddCommand(NewUploadCommand(cfg))
	cmd.AddCommand(NewDeleteCommand(cfg))
	cmd.AddCommand(NewChannelsCommand(cfg))
	return cmd
}

func NewListCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored captures",
		RunE: func(cmd *cobra.Command, args []string) error {
			captures, err := command.NewApiClient(cfg).Captures()
			if err != nil {
				return err
			}
			for _, c := range captures {
				fmt.Fprintf(cmd.OutOrStdout(), "%s records: %d base: %d created: %s\n",
					c.Name, c.Records, c.Base, c.Created.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	return cmd
}

func NewUploadCommand(cfg *config.Config) *cobra.Command {
	var base, endpoint int
	cmd := &cobra.Command{
		Use:   "upload NAME FILE",
		Short: "Send a token capture file to the API server for decoding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			c, err := command.NewApiClient(cfg).Upload(args[0], data, base, endpoint)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s records: %d\n", c.Name, c.Records)
			return nil
		},
	}
	cmd.Flags().IntVar(&base, BaseOptionName, 0, "Numeric base of payload bytes, 10 or 16. Server default if not set")
	cmd.Flags().IntVar(&endpoint, EndpointOptionName, -1, "Endpoint carrying HCI ACL data. Server default if not set")
	return cmd
}

func NewDeleteCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.NewApiClient(cfg).Delete(args[0])
		},
	}
	return cmd
}

func NewChannelsCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels NAME",
		Short: "Print the channel table of a stored capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := command.NewApiClient(cfg).Channels(args[0])
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", e.Label(), e.Role)
			}
			return nil
		},
	}
	return cmd
}
