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

package completion

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

const (
	completionExample = `
Save bash completion to a file
# go-usbhla completion bash > $HOME/.go-usbhla_completions

Apply completions to the current zsh instance
# source <(go-usbhla completion zsh)

Install fish completions
# go-usbhla completion fish > ~/.config/fish/completions/go-usbhla.fish
`
	DefaultShell = "bash"
)

type generator func(root *cobra.Command, w io.Writer) error

var generators = map[string]generator{
	"bash": func(root *cobra.Command, w io.Writer) error {
		return root.GenBashCompletion(w)
	},
	"zsh": func(root *cobra.Command, w io.Writer) error {
		return root.GenZshCompletion(w)
	},
	"fish": func(root *cobra.Command, w io.Writer) error {
		return root.GenFishCompletion(w, true)
	},
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletion(w)
	},
}

// NewCommand creates a cobra command object printing the completion script
// of the root command for one shell, bash when none is given
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion script",
		Example:   completionExample,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("accepts at most one shell, received %d", len(args))
			}
			shell := DefaultShell
			if len(args) == 1 {
				shell = args[0]
			}
			return generators[shell](cmd.Root(), cmd.OutOrStdout())
		},
	}
	return cmd
}
