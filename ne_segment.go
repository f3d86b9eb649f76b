// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

const neSegmentHeaderSize = 8

// Segment flag masks (§3).
const (
	neSegHasMask  uint16 = 0x0007
	neSegMoveable uint16 = 0x0010
	neSegPreload  uint16 = 0x0040
	neSegRelocs   uint16 = 0x0100
	neSegDiscard  uint16 = 0xF000
)

// NeSegmentKind classifies a segment for display purposes, grounded on
// os2omf/exe286/segtab.rs's NeSegmentRights.
type NeSegmentKind int

const (
	NeSegmentBSS NeSegmentKind = iota
	NeSegmentCode
	NeSegmentData
	NeSegmentRData
)

func (k NeSegmentKind) String() string {
	switch k {
	case NeSegmentBSS:
		return "BSS"
	case NeSegmentCode:
		return "CODE"
	case NeSegmentData:
		return "DATA"
	case NeSegmentRData:
		return "RDATA"
	default:
		return "Unknown"
	}
}

// Segment is one 8-byte record of the NE segment table, plus its decoded
// per-segment relocations (§3, §4.5).
type Segment struct {
	SectorBase   uint16
	SectorLength uint16
	Flags        uint16
	MinAlloc     uint16
	Relocs       []NeReloc
}

// DataOffset returns the segment's physical file offset: sectorBase shifted
// left by the module's alignment shift.
func (s Segment) DataOffset(alignShift uint) int64 {
	return int64(s.SectorBase) << alignShift
}

// EffectiveLength returns sectorLength, with the 0 ⇒ 64 KiB rule applied.
func (s Segment) EffectiveLength() int64 {
	if s.SectorLength == 0 {
		return 0x10000
	}
	return int64(s.SectorLength)
}

// EffectiveMinAlloc returns minAlloc, with the 0 ⇒ 64 KiB rule applied.
func (s Segment) EffectiveMinAlloc() int64 {
	if s.MinAlloc == 0 {
		return 0x10000
	}
	return int64(s.MinAlloc)
}

// IsBSSPrototype reports whether sectorBase==0 — a segment with no iterated
// or compressed data, per §3.
func (s Segment) IsBSSPrototype() bool {
	return s.SectorBase == 0
}

// HasRelocations reports the SEG_RELOCS bit.
func (s Segment) HasRelocations() bool {
	return s.Flags&neSegRelocs != 0
}

// Moveable reports the SEG_MOVABLE bit.
func (s Segment) Moveable() bool {
	return s.Flags&neSegMoveable != 0
}

// Preload reports the SEG_PRELOAD bit.
func (s Segment) Preload() bool {
	return s.Flags&neSegPreload != 0
}

// Discardable reports the SEG_DISCARD mask.
func (s Segment) Discardable() bool {
	return s.Flags&neSegDiscard == neSegDiscard
}

// Kind classifies the segment per §3: a zero sector base is a BSS
// prototype; otherwise the low 3 bits of flags select CODE (0) or DATA,
// with the preload bit distinguishing read-only RDATA from read-write DATA.
func (s Segment) Kind() NeSegmentKind {
	if s.IsBSSPrototype() {
		return NeSegmentBSS
	}
	if s.Flags&neSegHasMask == 0 {
		return NeSegmentCode
	}
	if s.Preload() {
		return NeSegmentRData
	}
	return NeSegmentData
}

// NeRelocKind is the low 2 bits of a relocation record's second byte.
type NeRelocKind int

const (
	NeRelocInternal NeRelocKind = iota
	NeRelocImportOrdinal
	NeRelocImportName
	NeRelocOSFixup
)

func (k NeRelocKind) String() string {
	switch k {
	case NeRelocInternal:
		return "Internal"
	case NeRelocImportOrdinal:
		return "ImportOrdinal"
	case NeRelocImportName:
		return "ImportName"
	case NeRelocOSFixup:
		return "OSFixup"
	default:
		return "Unknown"
	}
}

// NeReloc is one fixed 8-byte per-segment relocation record (§4.5).
type NeReloc struct {
	AddrType   uint8
	Kind       NeRelocKind
	Additive   bool
	SiteOffset uint16

	// Internal
	Moveable      bool
	SegIndex      uint8
	TargetOffset  uint16
	EntryOrdinal  uint16

	// ImportOrdinal / ImportName
	ModuleIndex uint16
	Ordinal     uint16
	NameOffset  uint16

	// OSFixup
	FPUType uint16
}

// readNeSegment reads one 8-byte segment header at src's current position.
func readNeSegment(src ByteSource) (Segment, error) {
	buf, err := src.ReadExact(neSegmentHeaderSize)
	if err != nil {
		return Segment{}, err
	}
	r := newSliceSource(buf)

	var s Segment
	if s.SectorBase, err = r.ReadU16(); err != nil {
		return Segment{}, err
	}
	if s.SectorLength, err = r.ReadU16(); err != nil {
		return Segment{}, err
	}
	if s.Flags, err = r.ReadU16(); err != nil {
		return Segment{}, err
	}
	if s.MinAlloc, err = r.ReadU16(); err != nil {
		return Segment{}, err
	}
	return s, nil
}

// readNeSegmentRelocs decodes the relocation table trailing a segment's
// data bytes, per §4.5. It implements the tail-tolerance rule: if the
// table's position plus 2 bytes overruns the image, the segment is treated
// as having no relocations (common for images linked without data).
func readNeSegmentRelocs(src ByteSource, s Segment, alignShift uint) ([]NeReloc, error) {
	if !s.HasRelocations() {
		return nil, nil
	}

	pos := s.DataOffset(alignShift) + s.EffectiveLength()
	if pos+2 > src.Length() {
		return nil, nil
	}

	if _, err := src.SeekAbsolute(pos); err != nil {
		return nil, nil
	}
	count, err := src.ReadU16()
	if err != nil {
		return nil, nil
	}

	relocs := make([]NeReloc, 0, count)
	for i := 0; i < int(count); i++ {
		rec, err := readNeRelocRecord(src)
		if err != nil {
			return nil, err
		}
		relocs = append(relocs, rec)
	}
	return relocs, nil
}

// readNeRelocRecord decodes one fixed 8-byte relocation record (§4.5),
// grounded on os2omf/exe286/segrelocs.rs's RelocationTable::read.
func readNeRelocRecord(src ByteSource) (NeReloc, error) {
	start := src.Position()
	buf, err := src.ReadExact(8)
	if err != nil {
		return NeReloc{}, err
	}

	var rec NeReloc
	rec.AddrType = buf[0]
	relocFlags := buf[1]
	rec.Kind = NeRelocKind(relocFlags & 0x03)
	rec.Additive = relocFlags&0x04 != 0
	rec.SiteOffset = uint16(buf[2]) | uint16(buf[3])<<8

	switch rec.Kind {
	case NeRelocInternal:
		rec.SegIndex = buf[4]
		rec.Moveable = rec.SegIndex == 0xFF
		rec.TargetOffset = uint16(buf[6]) | uint16(buf[7])<<8
		if rec.Moveable {
			rec.EntryOrdinal = rec.TargetOffset
		}
	case NeRelocImportOrdinal:
		rec.ModuleIndex = uint16(buf[4]) | uint16(buf[5])<<8
		rec.Ordinal = uint16(buf[6]) | uint16(buf[7])<<8
	case NeRelocImportName:
		rec.ModuleIndex = uint16(buf[4]) | uint16(buf[5])<<8
		rec.NameOffset = uint16(buf[6]) | uint16(buf[7])<<8
	case NeRelocOSFixup:
		rec.FPUType = uint16(buf[4]) | uint16(buf[5])<<8
	default:
		return NeReloc{}, newDecodeError(KindInvalidFixup, start, "unrecognised NE relocation kind %d", relocFlags&0x03)
	}
	return rec, nil
}

// readNeSegmentTable reads the full, ordinal-ordered segment table starting
// at base+segTabRel, decoding each segment's trailing relocations in turn.
func readNeSegmentTable(src ByteSource, base int64, segTabRel uint16, count uint16, alignShift uint) ([]Segment, error) {
	if _, err := src.SeekAbsolute(base + int64(segTabRel)); err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, count)
	for i := 0; i < int(count); i++ {
		s, err := readNeSegment(src)
		if err != nil {
			return nil, err
		}
		segments = append(segments, s)
	}

	for i := range segments {
		relocs, err := readNeSegmentRelocs(src, segments[i], alignShift)
		if err != nil {
			return nil, err
		}
		segments[i].Relocs = relocs
	}
	return segments, nil
}
