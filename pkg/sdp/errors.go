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

package sdp

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownHeader returned when a header byte matches no known element encoding
	ErrUnknownHeader = errors.New("unknown data element header")
	// ErrShortElement returned when an element is longer than the bytes available
	ErrShortElement = errors.New("data element exceeds available bytes")
)

// ErrCarryOverLimit returned when an undecodable suffix grows past MaxPending and is dropped
type ErrCarryOverLimit struct {
	Size int
}

func (e ErrCarryOverLimit) Error() string {
	return fmt.Sprintf("Carry-over of %d bytes dropped", e.Size)
}
