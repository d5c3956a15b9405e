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

package token

import (
	"fmt"
)

// ErrTokenKind returned when a token carries a kind tag the analyzer does not know
type ErrTokenKind struct {
	Kind Kind
}

func (e ErrTokenKind) Error() string {
	return fmt.Sprintf("Unknown token kind: %q", string(e.Kind))
}

// ErrBytesFormat returned when a byte list can not be parsed
type ErrBytesFormat struct {
	Value string
}

func (e ErrBytesFormat) Error() string {
	return fmt.Sprintf("Wrong byte list format: %s", e.Value)
}
