// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

// LE/LX magic values (§3, §6). LxMagic / LeMagic select which of the two
// sibling 32-bit formats a Container decoded as; any other magic is
// rejected, and a non-zero byteOrder/wordOrder is rejected separately.
const (
	LxMagic = 0x584C // "LX"
	LeMagic = 0x454C // "LE"
)

// lxHeaderSize is the decoded header's byte length. original_source's
// LinearExecutableHeader (exe386/header.rs) is the authoritative byte
// layout this decoder follows field-for-field: 47 named fields (176 bytes)
// plus an 8-byte reserved tail, 184 bytes total. See DESIGN.md's Open
// Questions for why this figure, not the prose summaries elsewhere in the
// spec, was taken as canonical.
const lxHeaderSize = 184

// LxHeader is the 184-byte LE/LX header (§3), grounded on
// os2omf/exe386/header.rs's LinearExecutableHeader.
type LxHeader struct {
	Magic         uint16
	ByteOrder     uint8
	WordOrder     uint8
	FormatLevel   uint32
	CPU           uint16
	OS            uint16
	ModuleVersion uint32
	ModuleFlags   uint32
	PageCount     uint32
	StartObject   uint32
	EIP           uint32
	StackObject   uint32
	ESP           uint32
	PageSize      uint32

	// PageShiftOrLastPageSize aliases the same 32-bit slot: LX uses it as a
	// page-shift count, LE as the byte length of the last page (§6).
	PageShiftOrLastPageSize uint32

	FixupSectionSize      uint32
	FixupSectionChecksum  uint32
	LoaderSectionSize     uint32
	LoaderSectionChecksum uint32

	ObjectTableOffset        uint32
	ObjectCount              uint32
	ObjectPageMapOffset      uint32
	IterDataMapOffset        uint32
	ResourceTableOffset      uint32
	ResourceCount            uint32
	ResidentNameTableOffset  uint32
	EntryTableOffset         uint32
	ModuleDirectivesOffset   uint32
	ModuleDirectivesCount    uint32
	FixupPageTableOffset     uint32
	FixupRecordTableOffset   uint32
	ImportModuleTableOffset  uint32
	ImportModuleCount        uint32
	ImportProcTableOffset    uint32
	PerPageChecksumOffset    uint32
	DataPagesOffset          uint32
	PreloadPageCount         uint32
	NonResidentNameTableAbs  uint32
	NonResidentNameTableLen  uint32
	NonResidentNameChecksum  uint32
	AutoDataSegmentObject    uint32
	DebugInfoOffset          uint32
	DebugInfoLength          uint32
	InstancePreloadPageCount uint32
	InstanceDemandPageCount  uint32
	HeapSize                 uint32
	StackSize                uint32

	Reserved [8]byte
}

// IsLX reports whether magic decoded as "LX" (OS/2 2.x+) rather than "LE"
// (VxD / early OS/2 2.0 / DOS extenders).
func (h LxHeader) IsLX() bool { return h.Magic == LxMagic }

// PageShift returns the LX page-shift value (only meaningful when IsLX).
func (h LxHeader) PageShift() uint32 { return h.PageShiftOrLastPageSize }

// LastPageSize returns the LE last-page byte length (only meaningful when
// !IsLX).
func (h LxHeader) LastPageSize() uint32 { return h.PageShiftOrLastPageSize }

// ByteOrderOK reports the §3 invariant: byteOrder and wordOrder must both
// be 0 (little-endian); any other value means this decoder cannot safely
// interpret the rest of the image.
func (h LxHeader) ByteOrderOK() bool {
	return h.ByteOrder == 0 && h.WordOrder == 0
}

// LinearExecutableType classifies a module by its ModuleFlags, per
// os2omf/exe386/header.rs's LinearExecutableType.
type LinearExecutableType int

const (
	LxTypeEXE LinearExecutableType = iota
	LxTypeDLL
	LxTypePDD
	LxTypeVDD
	LxTypeDLD
)

func (t LinearExecutableType) String() string {
	switch t {
	case LxTypeEXE:
		return "EXE"
	case LxTypeDLL:
		return "DLL"
	case LxTypePDD:
		return "PDD"
	case LxTypeVDD:
		return "VDD"
	case LxTypeDLD:
		return "DLD"
	default:
		return "Unknown"
	}
}

// ModuleType classifies ModuleFlags the way the loader does: DLL/PDD/VDD/
// DLD bits checked from most to least specific, defaulting to EXE.
func (h LxHeader) ModuleType() LinearExecutableType {
	switch {
	case h.ModuleFlags&0x00030000 == 0x00030000:
		return LxTypeDLD
	case h.ModuleFlags&0x00028000 == 0x00028000:
		return LxTypeVDD
	case h.ModuleFlags&0x00020000 == 0x00020000:
		return LxTypePDD
	case h.ModuleFlags&0x00008000 != 0:
		return LxTypeDLL
	default:
		return LxTypeEXE
	}
}

// ExternalRelocsStripped reports the module flag indicating the loader
// should not expect external (inter-object) fixups to be present.
func (h LxHeader) ExternalRelocsStripped() bool {
	return h.ModuleFlags&0x00000020 != 0
}

// InternalRelocsStripped reports the module flag indicating internal
// fixups have been resolved and stripped at link time.
func (h LxHeader) InternalRelocsStripped() bool {
	return h.ModuleFlags&0x00000010 != 0
}

// readLxHeader decodes the 184-byte LE/LX header at src's current
// position, validating magic. The byte/word-order invariant is not checked
// here; readLxLayout checks it through ByteOrderOK.
func readLxHeader(src ByteSource) (LxHeader, error) {
	start := src.Position()
	buf, err := src.ReadExact(lxHeaderSize)
	if err != nil {
		return LxHeader{}, err
	}
	r := newSliceSource(buf)

	var h LxHeader
	if h.Magic, err = r.ReadU16(); err != nil {
		return LxHeader{}, err
	}
	if h.Magic != LxMagic && h.Magic != LeMagic {
		return LxHeader{}, newDecodeError(KindBadMagic, start, "LE/LX magic 0x%04x not recognised", h.Magic)
	}
	if h.ByteOrder, err = r.ReadU8(); err != nil {
		return LxHeader{}, err
	}
	if h.WordOrder, err = r.ReadU8(); err != nil {
		return LxHeader{}, err
	}

	u32Fields := []*uint32{
		&h.FormatLevel,
	}
	for _, f := range u32Fields {
		if *f, err = r.ReadU32(); err != nil {
			return LxHeader{}, err
		}
	}
	if h.CPU, err = r.ReadU16(); err != nil {
		return LxHeader{}, err
	}
	if h.OS, err = r.ReadU16(); err != nil {
		return LxHeader{}, err
	}

	rest := []*uint32{
		&h.ModuleVersion, &h.ModuleFlags, &h.PageCount, &h.StartObject, &h.EIP,
		&h.StackObject, &h.ESP, &h.PageSize, &h.PageShiftOrLastPageSize,
		&h.FixupSectionSize, &h.FixupSectionChecksum, &h.LoaderSectionSize,
		&h.LoaderSectionChecksum, &h.ObjectTableOffset, &h.ObjectCount,
		&h.ObjectPageMapOffset, &h.IterDataMapOffset, &h.ResourceTableOffset,
		&h.ResourceCount, &h.ResidentNameTableOffset, &h.EntryTableOffset,
		&h.ModuleDirectivesOffset, &h.ModuleDirectivesCount,
		&h.FixupPageTableOffset, &h.FixupRecordTableOffset,
		&h.ImportModuleTableOffset, &h.ImportModuleCount,
		&h.ImportProcTableOffset, &h.PerPageChecksumOffset, &h.DataPagesOffset,
		&h.PreloadPageCount, &h.NonResidentNameTableAbs,
		&h.NonResidentNameTableLen, &h.NonResidentNameChecksum,
		&h.AutoDataSegmentObject, &h.DebugInfoOffset, &h.DebugInfoLength,
		&h.InstancePreloadPageCount, &h.InstanceDemandPageCount,
		&h.HeapSize, &h.StackSize,
	}
	for _, f := range rest {
		if *f, err = r.ReadU32(); err != nil {
			return LxHeader{}, err
		}
	}

	reserved, err := r.ReadExact(8)
	if err != nil {
		return LxHeader{}, err
	}
	copy(h.Reserved[:], reserved)

	return h, nil
}
