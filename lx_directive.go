// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

// Recognised module directive numbers (§4.8). Any other value is preserved
// as an opaque blob rather than rejected.
const (
	DirectiveVerifyRecord   uint16 = 0x8001
	DirectiveLanguageInfo   uint16 = 0x0002
	DirectiveCoprocessor    uint16 = 0x0003
	DirectiveThreadStateInit uint16 = 0x0004
)

// ModuleDirective is one 8-byte directive-table record plus its resolved
// payload bytes (§3, §4.8). os2omf/exe386/dirtab.rs grounds the shape;
// this decoder fixes that source's field mixup (it reads the import-module
// table's impmod/impmodcnt instead of the directive table's own
// dirtab/dircnt) by iterating the header's ModuleDirectivesOffset/Count.
type ModuleDirective struct {
	Number     uint16
	DataLength uint16
	DataOffset uint32
	Data       []byte
}

// IsResident reports whether directiveNumber's high bit marks the data as
// living in the resident section (offset relative to the header base)
// rather than at an absolute file offset.
func (d ModuleDirective) IsResident() bool {
	return d.Number&0x8000 != 0
}

// readModuleDirectives decodes the module directive table at
// base+dirTabRel, resolving each record's data bytes and restoring the
// cursor afterward (§4.8).
func readModuleDirectives(src ByteSource, base int64, dirTabRel uint32, dirCount uint32) ([]ModuleDirective, error) {
	if dirTabRel == 0 || dirCount == 0 {
		return nil, nil
	}
	if _, err := src.SeekAbsolute(base + int64(dirTabRel)); err != nil {
		return nil, err
	}

	directives := make([]ModuleDirective, 0, dirCount)
	for i := 0; i < int(dirCount); i++ {
		buf, err := src.ReadExact(8)
		if err != nil {
			return nil, err
		}
		r := newSliceSource(buf)
		num, _ := r.ReadU16()
		length, _ := r.ReadU16()
		offset, _ := r.ReadU32()

		d := ModuleDirective{Number: num, DataLength: length, DataOffset: offset}

		var dataOffset int64
		if d.IsResident() {
			dataOffset = base + int64(offset)
		} else {
			dataOffset = int64(offset)
		}

		saved := src.Position()
		if _, err := src.SeekAbsolute(dataOffset); err != nil {
			return nil, err
		}
		data, err := src.ReadExact(int(length))
		if err != nil {
			return nil, err
		}
		d.Data = append([]byte(nil), data...)
		if _, err := src.SeekAbsolute(saved); err != nil {
			return nil, err
		}

		directives = append(directives, d)
	}
	return directives, nil
}

// ObjectVerification is one per-object entry of a VerifyRecord's module
// dependency list.
type ObjectVerification struct {
	ObjectNumber uint16
	BaseAddress  uint32
	VirtualSize  uint32
}

// ModuleDependency is one entry of a VerifyRecord: the dependency's module
// ordinal/version plus the objects whose load addresses it asserts.
type ModuleDependency struct {
	ModuleOrdinal uint16
	Version       uint16
	Objects       []ObjectVerification
}

// VerifyRecord is the decoded payload of directive 0x8001 (§4.8): a u16
// count of module dependencies, each carrying its own object-verification
// list.
type VerifyRecord struct {
	Dependencies []ModuleDependency
}

// decodeVerifyRecord parses a ModuleDirective's Data as a VerifyRecord. The
// caller must have already checked d.Number == DirectiveVerifyRecord.
func decodeVerifyRecord(d ModuleDirective) (VerifyRecord, error) {
	data := d.Data
	if len(data) < 2 {
		return VerifyRecord{}, newDecodeError(KindTruncated, 0, "verify record shorter than its own count field")
	}
	count := int(uint16(data[0]) | uint16(data[1])<<8)
	offset := 2

	deps := make([]ModuleDependency, 0, count)
	for i := 0; i < count; i++ {
		if offset+6 > len(data) {
			return VerifyRecord{}, newDecodeError(KindTruncated, int64(offset), "verify record module dependency header truncated")
		}
		moduleOrdinal := uint16(data[offset]) | uint16(data[offset+1])<<8
		version := uint16(data[offset+2]) | uint16(data[offset+3])<<8
		objectCount := uint16(data[offset+4]) | uint16(data[offset+5])<<8
		offset += 6

		objs := make([]ObjectVerification, 0, objectCount)
		for j := 0; j < int(objectCount); j++ {
			if offset+10 > len(data) {
				return VerifyRecord{}, newDecodeError(KindTruncated, int64(offset), "verify record object entry truncated")
			}
			objNumber := uint16(data[offset]) | uint16(data[offset+1])<<8
			base := uint32(data[offset+2]) | uint32(data[offset+3])<<8 | uint32(data[offset+4])<<16 | uint32(data[offset+5])<<24
			vsize := uint32(data[offset+6]) | uint32(data[offset+7])<<8 | uint32(data[offset+8])<<16 | uint32(data[offset+9])<<24
			offset += 10
			objs = append(objs, ObjectVerification{ObjectNumber: objNumber, BaseAddress: base, VirtualSize: vsize})
		}

		deps = append(deps, ModuleDependency{ModuleOrdinal: moduleOrdinal, Version: version, Objects: objs})
	}
	return VerifyRecord{Dependencies: deps}, nil
}
