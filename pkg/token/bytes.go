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
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
)

// Bytes is a byte slice that is written to token files as a list of numbers
// and may also be read from a hex string, e.g. "0x80 0x06" or "8006".
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*b = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := parseHexString(s)
		if err != nil {
			return ErrBytesFormat{Value: s}
		}
		*b = parsed
		return nil
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return ErrBytesFormat{Value: trimmed}
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 0xff {
			return ErrBytesFormat{Value: trimmed}
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

func parseHexString(s string) ([]byte, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) == 1 && !strings.HasPrefix(strings.ToLower(fields[0]), "0x") {
		return hex.DecodeString(fields[0])
	}
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 0, 8)
		if err != nil {
			return nil, err
		}
		out = append(out, byte(v))
	}
	return out, nil
}
