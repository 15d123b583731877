// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package charset decides how file bytes become text and back. Detection
// precedence is: explicit override, byte-order mark, valid UTF-8, then a
// statistical detector as the last resort.
package charset

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnknownEncoding is returned when an override label is not a
// recognized WHATWG charset name.
var ErrUnknownEncoding = errors.Base("unknown encoding")

// Source records how an encoding decision was reached.
type Source int

const (
	SourceOverride Source = iota
	SourceBOM
	SourceDetector
	SourceAssumedUTF8
)

func (s Source) String() string {
	switch s {
	case SourceOverride:
		return "override"
	case SourceBOM:
		return "bom"
	case SourceDetector:
		return "detector"
	case SourceAssumedUTF8:
		return "assumed-utf8"
	default:
		return "unknown"
	}
}

// Decision is the immutable result of one detection run.
type Decision struct {
	Encoding encoding.Encoding
	Name     string
	Source   Source
}

// Decoded owns the decoded text of a file. HadErrors flags a lossy decode.
type Decoded struct {
	Text      string
	HadErrors bool
	Decision  Decision
}

// Strategy decides and performs byte to text conversion for one command
// invocation.
type Strategy struct {
	override      encoding.Encoding
	overrideLabel string
}

// New builds a strategy. A non-empty override label pins every file to that
// charset and disables auto-detection.
func New(overrideLabel string) (*Strategy, error) {
	if overrideLabel == "" {
		return &Strategy{}, nil
	}
	label := strings.TrimSpace(overrideLabel)
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, errors.Errorf("%w: %q", ErrUnknownEncoding, label)
	}
	return &Strategy{override: enc, overrideLabel: label}, nil
}

// Describe returns a one-line human summary for command banners.
func (s *Strategy) Describe() string {
	if s.override != nil {
		return fmt.Sprintf("override %q, auto-detect disabled", s.overrideLabel)
	}
	return "auto-detect (BOM, UTF-8, detector)"
}

// Decide picks an encoding for the given bytes without decoding them.
func (s *Strategy) Decide(data []byte) Decision {
	if s.override != nil {
		return Decision{Encoding: s.override, Name: encodingName(s.override), Source: SourceOverride}
	}
	return detectAuto(data)
}

// Decode applies the decided encoding with lossy substitution. Any
// substitution sets HadErrors.
func (s *Strategy) Decode(data []byte) Decoded {
	decision := s.Decide(data)
	payload := data
	if decision.Source == SourceBOM {
		payload = stripBOM(data)
	}

	if decision.Name == "utf-8" {
		valid := utf8.Valid(payload)
		text := string(payload)
		if !valid {
			text = strings.ToValidUTF8(text, "�")
		}
		return Decoded{Text: text, HadErrors: !valid, Decision: decision}
	}

	out, err := decision.Encoding.NewDecoder().Bytes(payload)
	if err != nil {
		// The x/text decoders substitute rather than fail; treat a hard
		// failure as a fully lossy decode of whatever came back.
		return Decoded{Text: string(out), HadErrors: true, Decision: decision}
	}
	text := string(out)
	return Decoded{Text: text, HadErrors: strings.ContainsRune(text, '�'), Decision: decision}
}

// Encode reverses a decode for writing. The returned flag reports a lossy
// fallback encode, which callers must surface as a warning.
func (s *Strategy) Encode(text string, decision Decision) ([]byte, bool, error) {
	if decision.Name == "utf-8" || decision.Encoding == nil {
		return []byte(text), false, nil
	}
	out, err := decision.Encoding.NewEncoder().Bytes([]byte(text))
	if err == nil {
		return out, false, nil
	}
	fallback := encoding.ReplaceUnsupported(decision.Encoding.NewEncoder())
	out, err = fallback.Bytes([]byte(text))
	if err != nil {
		return nil, false, errors.Errorf("encoding text as %s: %w", decision.Name, err)
	}
	return out, true, nil
}

func detectAuto(data []byte) Decision {
	if enc, name := detectBOM(data); enc != nil {
		return Decision{Encoding: enc, Name: name, Source: SourceBOM}
	}

	if utf8.Valid(data) {
		return Decision{Encoding: unicode.UTF8, Name: "utf-8", Source: SourceAssumedUTF8}
	}

	best, err := chardet.NewTextDetector().DetectBest(data)
	if err == nil {
		if enc, lookupErr := htmlindex.Get(best.Charset); lookupErr == nil {
			return Decision{Encoding: enc, Name: encodingName(enc), Source: SourceDetector}
		}
	}

	// Detector gave nothing usable; windows-1252 decodes every byte
	// sequence, so it is the safest guess left.
	enc, _ := htmlindex.Get("windows-1252")
	return Decision{Encoding: enc, Name: "windows-1252", Source: SourceDetector}
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

func detectBOM(data []byte) (encoding.Encoding, string) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return unicode.UTF8, "utf-8"
	case bytes.HasPrefix(data, bomUTF16LE):
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), "utf-16le"
	case bytes.HasPrefix(data, bomUTF16BE):
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), "utf-16be"
	}
	return nil, ""
}

func stripBOM(data []byte) []byte {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		return data[2:]
	}
	return data
}

func encodingName(enc encoding.Encoding) string {
	name, err := htmlindex.Name(enc)
	if err != nil {
		return fmt.Sprintf("%v", enc)
	}
	return name
}
