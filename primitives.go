// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

import (
	"encoding/json"

	"golang.org/x/text/encoding/charmap"
)

// LenString is a length-prefixed ASCII string: one leading byte L, then L
// raw bytes, no terminator. L=0 denotes an empty string (and, where used,
// an end-of-table sentinel). See spec §3/§4.2.
type LenString struct {
	raw []byte
}

// newLenString wraps raw bytes already read from the image.
func newLenString(raw []byte) LenString {
	if len(raw) == 0 {
		return LenString{}
	}
	return LenString{raw: raw}
}

// Len returns the number of raw bytes in the string.
func (s LenString) Len() int { return len(s.raw) }

// Empty reports whether the string has zero length, the end-of-table
// sentinel used by the resident/non-resident name tables.
func (s LenString) Empty() bool { return len(s.raw) == 0 }

// Bytes returns the raw, undecoded bytes.
func (s LenString) Bytes() []byte { return s.raw }

// String returns the bytes reinterpreted as Go's native (UTF-8) string
// representation, without any charset translation. Use Lossy for a
// best-effort legacy-OEM-charset decode.
func (s LenString) String() string { return string(s.raw) }

// Lossy decodes the raw bytes through code page 437 — the OEM charset
// DOS- and OS/2-era linkers wrote these strings in — into valid UTF-8.
// Decoding never fails: unmappable bytes become U+FFFD.
func (s LenString) Lossy() string {
	if len(s.raw) == 0 {
		return ""
	}
	out, err := charmap.CodePage437.NewDecoder().Bytes(s.raw)
	if err != nil {
		return string(s.raw)
	}
	return string(out)
}

// MarshalJSON encodes the string as its Lossy decode, so JSON dumps of name
// tables show the names.
func (s LenString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Lossy())
}

// readLenString reads a LenString at the source's current position.
func readLenString(src ByteSource) (LenString, error) {
	lenByte, err := src.ReadU8()
	if err != nil {
		return LenString{}, err
	}
	if lenByte == 0 {
		return LenString{}, nil
	}
	raw, err := src.ReadExact(int(lenByte))
	if err != nil {
		return LenString{}, err
	}
	buf := make([]byte, len(raw))
	copy(buf, raw)
	return newLenString(buf), nil
}

// readLenStringAt seeks to offset, reads a LenString, and restores the
// source's previous position — the pattern every cross-reference (fixup to
// module/procedure name, entry to name table) uses.
func readLenStringAt(src ByteSource, offset int64) (LenString, error) {
	saved := src.Position()
	if _, err := src.SeekAbsolute(offset); err != nil {
		return LenString{}, err
	}
	s, err := readLenString(src)
	if _, serr := src.SeekAbsolute(saved); serr != nil && err == nil {
		err = serr
	}
	return s, err
}
