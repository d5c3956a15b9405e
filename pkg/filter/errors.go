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

package filter

import (
	"fmt"
)

type ErrFilterCompile struct {
	Source string
	Err    error
}

func (e ErrFilterCompile) Error() string {
	return fmt.Sprintf("Wrong filter expression %q: %s", e.Source, e.Err)
}

func (e ErrFilterCompile) Unwrap() error {
	return e.Err
}
