// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

// NeNameEntry is one entry of the resident or non-resident name table: a
// length-prefixed name paired with an entry-table ordinal (0 for the first
// entry of the resident table, which names the module itself). See
// os2omf/exe286/resntab.rs.
type NeNameEntry struct {
	Name    LenString
	Ordinal uint16
}

// readNeNameTable decodes a resident- or non-resident-name-table-shaped
// stream at src's current position: repeated (LenString, ordinal u16)
// pairs, terminated by a zero-length name.
func readNeNameTable(src ByteSource) ([]NeNameEntry, error) {
	var entries []NeNameEntry
	for {
		name, err := readLenString(src)
		if err != nil {
			return nil, err
		}
		if name.Empty() {
			break
		}
		ordinal, err := src.ReadU16()
		if err != nil {
			return nil, err
		}
		entries = append(entries, NeNameEntry{Name: name, Ordinal: ordinal})
	}
	return entries, nil
}

// readNeResidentNames decodes the resident name table at base+residentNameRel
// (§3). Its first entry is the module's own name, with ordinal 0.
func readNeResidentNames(src ByteSource, base int64, residentNameRel uint16) ([]NeNameEntry, error) {
	if _, err := src.SeekAbsolute(base + int64(residentNameRel)); err != nil {
		return nil, err
	}
	return readNeNameTable(src)
}

// readNeNonResidentNames decodes the non-resident name table, addressed by
// the *absolute* file offset e_nrestab carries (unlike every other NE table
// offset, which is relative to the NE header base).
func readNeNonResidentNames(src ByteSource, nonResidentAbs uint32) ([]NeNameEntry, error) {
	if nonResidentAbs == 0 {
		return nil, nil
	}
	if _, err := src.SeekAbsolute(int64(nonResidentAbs)); err != nil {
		return nil, err
	}
	return readNeNameTable(src)
}

// readNeModuleRefTable decodes the cmod u16 module-reference offsets at
// base+modTabRel (§4.9). Each offset is relative to the import name pool
// (base+impTabRel), resolved by readNeModuleNames.
func readNeModuleRefTable(src ByteSource, base int64, modTabRel uint16, moduleRefCount uint16) ([]uint16, error) {
	if _, err := src.SeekAbsolute(base + int64(modTabRel)); err != nil {
		return nil, err
	}
	offsets := make([]uint16, 0, moduleRefCount)
	for i := 0; i < int(moduleRefCount); i++ {
		v, err := src.ReadU16()
		if err != nil {
			return nil, err
		}
		offsets = append(offsets, v)
	}
	return offsets, nil
}

// readNeModuleNames resolves each module-reference-table offset into the
// LenString it points at within the import name pool (base+impTabRel).
func readNeModuleNames(src ByteSource, base int64, impTabRel uint16, refOffsets []uint16) ([]LenString, error) {
	names := make([]LenString, 0, len(refOffsets))
	impPoolBase := base + int64(impTabRel)
	for _, off := range refOffsets {
		name, err := readLenStringAt(src, impPoolBase+int64(off))
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
