// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

import "encoding/binary"

// buf is a tiny little-endian byte-buffer builder shared by every
// synthesized-fixture test in this package.
type buf struct {
	b []byte
}

func (b *buf) u8(v uint8) *buf  { b.b = append(b.b, v); return b }
func (b *buf) u16(v uint16) *buf {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.b = append(b.b, tmp[:]...)
	return b
}
func (b *buf) u32(v uint32) *buf {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.b = append(b.b, tmp[:]...)
	return b
}
func (b *buf) bytes(v []byte) *buf { b.b = append(b.b, v...); return b }
func (b *buf) zeros(n int) *buf    { b.b = append(b.b, make([]byte, n)...); return b }

// lenString appends a length-prefixed ASCII string (§3/§4.2).
func (b *buf) lenString(s string) *buf {
	b.u8(uint8(len(s)))
	b.b = append(b.b, s...)
	return b
}

// at returns the current length of the buffer, useful for computing
// relative offsets before their target content is appended.
func (b *buf) at() int { return len(b.b) }

// padTo zero-fills up to absolute offset n.
func (b *buf) padTo(n int) *buf {
	if n > len(b.b) {
		b.b = append(b.b, make([]byte, n-len(b.b))...)
	}
	return b
}

// minimalMz builds a 64-byte MZ header whose AddressOfNewExeHeader points
// past the header itself, at newExeOffset (0 means plain MZ, no inner
// header).
func minimalMz(newExeOffset uint32) *buf {
	b := &buf{}
	b.u16(MzMagic)          // Magic
	b.u16(0x0078)           // BytesOnLastPage
	b.u16(0x0001)           // Pages
	b.u16(0)                // RelocCount
	b.u16(0x0004)           // HeaderParagraphs
	b.u16(0)                // MinAlloc
	b.u16(0xFFFF)           // MaxAlloc
	b.u16(0)                // SS
	b.u16(0)                // SP
	b.u16(0)                // Checksum
	b.u16(0)                // IP
	b.u16(0)                // CS
	b.u16(mzDefaultRelocPointer) // RelocTableOffset
	b.u16(0)                // Overlay
	b.zeros(8)              // Reserved1 [4]uint16
	b.u16(0)                // OEMID
	b.u16(0)                // OEMInfo
	b.zeros(20)             // Reserved2 [10]uint16
	b.u32(newExeOffset)     // AddressOfNewExeHeader
	return b
}
