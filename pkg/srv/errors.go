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

package srv

import (
	"fmt"
)

// ErrSwagger returned when the embedded API document can not be loaded
type ErrSwagger struct {
	Err error
}

func (e ErrSwagger) Error() string {
	return fmt.Sprintf("Error while loading API document: %s", e.Err)
}

func (e ErrSwagger) Unwrap() error {
	return e.Err
}

// ErrQueryParam returned when a query parameter can not be parsed
type ErrQueryParam struct {
	Name  string
	Value string
}

func (e ErrQueryParam) Error() string {
	return fmt.Sprintf("Wrong query parameter: %s=%s", e.Name, e.Value)
}
