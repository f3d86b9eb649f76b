// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

// MZ magic values. 0x5A4D ("MZ") is canonical; its byte-swapped form
// 0x4D5A ("ZM") is also accepted (§3) — some hand-edited or very old stubs
// carry it and still load under ntvdm.
const (
	MzMagic    = 0x5A4D
	MzMagicAlt = 0x4D5A

	// mzDefaultRelocPointer is the absolute offset NE/LX/LE-produced
	// linkers always leave the relocation table pointer at.
	mzDefaultRelocPointer = 0x40

	mzHeaderSize = 64
)

// MzHeader is the 64-byte real-mode DOS header every MZ/NE/LE/LX image
// begins with (§3). Field order follows the MS-DOS documented layout
// (e_cblp before e_cp) per spec's Design Notes, not the field-order drift
// some header variants exhibit.
type MzHeader struct {
	Magic                    uint16
	BytesOnLastPage          uint16
	Pages                    uint16
	RelocCount               uint16
	HeaderParagraphs         uint16
	MinAlloc                 uint16
	MaxAlloc                 uint16
	SS                       uint16
	SP                       uint16
	Checksum                 uint16
	IP                       uint16
	CS                       uint16
	RelocTableOffset         uint16
	Overlay                  uint16
	Reserved1                [4]uint16
	OEMID                    uint16
	OEMInfo                  uint16
	Reserved2                [10]uint16
	AddressOfNewExeHeader    uint32
}

// readMzHeader decodes the 64-byte MZ header at the source's current
// position (always offset 0 for a well-formed image, per §4.3).
func readMzHeader(src ByteSource) (MzHeader, error) {
	start := src.Position()
	buf, err := src.ReadExact(mzHeaderSize)
	if err != nil {
		return MzHeader{}, err
	}

	r := newSliceSource(buf)
	h := MzHeader{}
	fields := []*uint16{
		&h.Magic, &h.BytesOnLastPage, &h.Pages, &h.RelocCount,
		&h.HeaderParagraphs, &h.MinAlloc, &h.MaxAlloc, &h.SS, &h.SP,
		&h.Checksum, &h.IP, &h.CS, &h.RelocTableOffset, &h.Overlay,
	}
	for _, f := range fields {
		v, err := r.ReadU16()
		if err != nil {
			return MzHeader{}, err
		}
		*f = v
	}
	for i := range h.Reserved1 {
		v, err := r.ReadU16()
		if err != nil {
			return MzHeader{}, err
		}
		h.Reserved1[i] = v
	}
	if h.OEMID, err = r.ReadU16(); err != nil {
		return MzHeader{}, err
	}
	if h.OEMInfo, err = r.ReadU16(); err != nil {
		return MzHeader{}, err
	}
	for i := range h.Reserved2 {
		v, err := r.ReadU16()
		if err != nil {
			return MzHeader{}, err
		}
		h.Reserved2[i] = v
	}
	if h.AddressOfNewExeHeader, err = r.ReadU32(); err != nil {
		return MzHeader{}, err
	}

	if h.Magic != MzMagic && h.Magic != MzMagicAlt {
		return MzHeader{}, newDecodeError(KindBadMagic, start, "MZ magic 0x%04x not recognised", h.Magic)
	}
	return h, nil
}

// HasDefaultRelocPointer reports whether the relocation table pointer sits
// at the linker-default 0x40 offset, distinguishing fresh linker output
// from a hand-edited stub. Informational only — never fails the decode.
func (h MzHeader) HasDefaultRelocPointer() bool {
	return h.RelocTableOffset == mzDefaultRelocPointer
}

// ChecksumOK validates the classic DOS header checksum: the 16-bit
// little-endian words of the header sum to zero mod 2^16. Informational
// only — never fails the decode (§4.3).
func (h MzHeader) ChecksumOK(headerBytes []byte) bool {
	var sum uint16
	for i := 0; i+1 < len(headerBytes); i += 2 {
		word := uint16(headerBytes[i]) | uint16(headerBytes[i+1])<<8
		sum += word
	}
	if len(headerBytes)%2 == 1 {
		sum += uint16(headerBytes[len(headerBytes)-1])
	}
	return sum == 0
}
