// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

// readFixupPageIndex decodes the pageCount+1 u32 array of offsets into the
// fixup record stream (§3). The last element is an end marker, not a real
// page's start.
func readFixupPageIndex(src ByteSource, base int64, fpageRel uint32, pageCount uint32) ([]uint32, error) {
	if fpageRel == 0 {
		return nil, nil
	}
	if _, err := src.SeekAbsolute(base + int64(fpageRel)); err != nil {
		return nil, err
	}
	index := make([]uint32, 0, pageCount+1)
	for i := 0; i < int(pageCount)+1; i++ {
		v, err := src.ReadU32()
		if err != nil {
			return nil, err
		}
		index = append(index, v)
	}
	return index, nil
}

// FixupTargetKind is the low 2 bits of a fixup record's target flag byte.
type FixupTargetKind int

const (
	FixupInternal FixupTargetKind = iota
	FixupImportedOrdinal
	FixupImportedName
	FixupEntryTable
)

func (k FixupTargetKind) String() string {
	switch k {
	case FixupInternal:
		return "Internal"
	case FixupImportedOrdinal:
		return "ImportedOrdinal"
	case FixupImportedName:
		return "ImportedName"
	case FixupEntryTable:
		return "EntryTable"
	default:
		return "Unknown"
	}
}

// FixupRecord is one variable-length LE/LX fixup record (§4.7), the densest
// decoder in this package: two leading flag bytes gate every field that
// follows.
type FixupRecord struct {
	SourceType uint8 // src & 0x0F
	TargetKind FixupTargetKind

	SiteOffset       uint16   // present unless SourceListForm
	SourceListForm   bool     // src & 0x20
	SourceOffsetList []uint16 // present iff SourceListForm

	// Internal
	ObjectNumber uint16
	TargetOffset uint32
	HasOffset    bool // false when SourceType==0x02 (16-bit selector, no offset)

	// ImportedOrdinal / ImportedName share ModuleOrdinal
	ModuleOrdinal        uint16
	ImportOrdinal        uint32
	ProcedureNameOffset  uint32

	// EntryTable
	EntryNumber uint16

	HasAdditive bool
	Additive    uint32
}

// readFixupRecord decodes one variable-length fixup record at src's current
// position, grounded on os2omf/exe386/frectab.rs's FixupRecordsTable.
func readFixupRecord(src ByteSource) (FixupRecord, error) {
	start := src.Position()

	srcByte, err := src.ReadU8()
	if err != nil {
		return FixupRecord{}, err
	}
	tgtByte, err := src.ReadU8()
	if err != nil {
		return FixupRecord{}, err
	}

	var rec FixupRecord
	rec.SourceType = srcByte & 0x0F
	rec.SourceListForm = srcByte&0x20 != 0
	hasAdditive := tgtByte&0x04 != 0
	is32BitTarget := tgtByte&0x10 != 0
	is32BitAdditive := tgtByte&0x20 != 0
	is16BitObject := tgtByte&0x40 != 0
	is8BitOrdinal := tgtByte&0x80 != 0
	targetType := tgtByte & 0x03

	var sourceCount uint16
	if rec.SourceListForm {
		n, err := src.ReadU8()
		if err != nil {
			return FixupRecord{}, err
		}
		sourceCount = uint16(n)
	} else {
		off, err := src.ReadU16()
		if err != nil {
			return FixupRecord{}, err
		}
		rec.SiteOffset = off
	}

	readObjectNumber := func() (uint16, error) {
		if is16BitObject {
			return src.ReadU16()
		}
		b, err := src.ReadU8()
		return uint16(b), err
	}

	switch targetType {
	case 0x00:
		rec.TargetKind = FixupInternal
		obj, err := readObjectNumber()
		if err != nil {
			return FixupRecord{}, err
		}
		rec.ObjectNumber = obj
		if rec.SourceType != 0x02 {
			rec.HasOffset = true
			if is32BitTarget {
				if rec.TargetOffset, err = src.ReadU32(); err != nil {
					return FixupRecord{}, err
				}
			} else {
				v, err := src.ReadU16()
				if err != nil {
					return FixupRecord{}, err
				}
				rec.TargetOffset = uint32(v)
			}
		}
	case 0x01:
		rec.TargetKind = FixupImportedOrdinal
		mod, err := readObjectNumber()
		if err != nil {
			return FixupRecord{}, err
		}
		rec.ModuleOrdinal = mod
		switch {
		case is8BitOrdinal:
			b, err := src.ReadU8()
			if err != nil {
				return FixupRecord{}, err
			}
			rec.ImportOrdinal = uint32(b)
		case is32BitTarget:
			if rec.ImportOrdinal, err = src.ReadU32(); err != nil {
				return FixupRecord{}, err
			}
		default:
			v, err := src.ReadU16()
			if err != nil {
				return FixupRecord{}, err
			}
			rec.ImportOrdinal = uint32(v)
		}
	case 0x02:
		rec.TargetKind = FixupImportedName
		mod, err := readObjectNumber()
		if err != nil {
			return FixupRecord{}, err
		}
		rec.ModuleOrdinal = mod
		if is32BitTarget {
			if rec.ProcedureNameOffset, err = src.ReadU32(); err != nil {
				return FixupRecord{}, err
			}
		} else {
			v, err := src.ReadU16()
			if err != nil {
				return FixupRecord{}, err
			}
			rec.ProcedureNameOffset = uint32(v)
		}
	case 0x03:
		rec.TargetKind = FixupEntryTable
		entry, err := readObjectNumber()
		if err != nil {
			return FixupRecord{}, err
		}
		rec.EntryNumber = entry
	default:
		return FixupRecord{}, newDecodeError(KindInvalidFixup, start, "unrecognised fixup target kind %d", targetType)
	}

	if hasAdditive {
		rec.HasAdditive = true
		if is32BitAdditive {
			if rec.Additive, err = src.ReadU32(); err != nil {
				return FixupRecord{}, err
			}
		} else {
			v, err := src.ReadU16()
			if err != nil {
				return FixupRecord{}, err
			}
			rec.Additive = uint32(v)
		}
	}

	if rec.SourceListForm {
		rec.SourceOffsetList = make([]uint16, 0, sourceCount)
		for i := 0; i < int(sourceCount); i++ {
			v, err := src.ReadU16()
			if err != nil {
				return FixupRecord{}, err
			}
			rec.SourceOffsetList = append(rec.SourceOffsetList, v)
		}
	}

	return rec, nil
}

// readFixupRecords decodes every record addressed by the page index (§4.7):
// for logical page i, records occupy [index[i], index[i+1]) bytes of the
// record stream based at recordStreamBase. A record that ends past its
// page's slice is rejected with InvalidFixup rather than accepted.
func readFixupRecords(src ByteSource, recordStreamBase int64, pageIndex []uint32) ([][]FixupRecord, error) {
	if len(pageIndex) < 2 {
		return nil, nil
	}
	perPage := make([][]FixupRecord, 0, len(pageIndex)-1)
	for i := 0; i < len(pageIndex)-1; i++ {
		pageStart := recordStreamBase + int64(pageIndex[i])
		pageEnd := recordStreamBase + int64(pageIndex[i+1])

		if _, err := src.SeekAbsolute(pageStart); err != nil {
			return nil, err
		}
		var records []FixupRecord
		for src.Position() < pageEnd {
			rec, err := readFixupRecord(src)
			if err != nil {
				return nil, err
			}
			if src.Position() > pageEnd {
				return nil, newDecodeError(KindInvalidFixup, pageStart,
					"fixup record at page %d crosses the page's %d-byte boundary", i, pageEnd-pageStart)
			}
			records = append(records, rec)
		}
		perPage = append(perPage, records)
	}
	return perPage, nil
}
