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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-usbhla/pkg/log"
)

// Unmarshal decodes a single token from JSON or YAML
func Unmarshal(data []byte) (Token, error) {
	var t Token
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, err
	}
	if !t.Kind.Known() {
		return t, ErrTokenKind{Kind: t.Kind}
	}
	return t, nil
}

// Parse decodes a token capture. Two layouts are accepted:
// a YAML/JSON list of tokens, or one JSON token per line.
func Parse(data []byte) ([]Token, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '{' {
		return parseLines(bytes.NewReader(trimmed))
	}
	var tokens []Token
	if err := yaml.Unmarshal(trimmed, &tokens); err != nil {
		return nil, err
	}
	for i := range tokens {
		if !tokens[i].Kind.Known() {
			return nil, fmt.Errorf("token %d: %w", i, ErrTokenKind{Kind: tokens[i].Kind})
		}
	}
	return tokens, nil
}

func parseLines(r io.Reader) ([]Token, error) {
	var tokens []Token
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		t, err := Unmarshal(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		tokens = append(tokens, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Load reads a token capture file
func Load(path string) ([]Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("Error while reading token file: %s", path)
		return nil, err
	}
	tokens, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", path, err)
	}
	log.Debug("Loaded %d tokens from %s", len(tokens), path)
	return tokens, nil
}
