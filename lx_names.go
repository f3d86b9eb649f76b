// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

// readLxResidentNames decodes the resident name table at
// base+residentNameRel, the same (LenString, ordinal u16)-pair shape as the
// NE table (os2omf/exe386/nrestab.rs mirrors exe286/resntab.rs exactly), so
// this reuses readNeNameTable rather than duplicating its loop.
func readLxResidentNames(src ByteSource, base int64, residentNameRel uint32) ([]NeNameEntry, error) {
	if residentNameRel == 0 {
		return nil, nil
	}
	if _, err := src.SeekAbsolute(base + int64(residentNameRel)); err != nil {
		return nil, err
	}
	return readNeNameTable(src)
}

// readLxNonResidentNames decodes the non-resident name table, addressed by
// the absolute file offset e32_nrestab carries (§3).
func readLxNonResidentNames(src ByteSource, nonResidentAbs uint32) ([]NeNameEntry, error) {
	if nonResidentAbs == 0 {
		return nil, nil
	}
	if _, err := src.SeekAbsolute(int64(nonResidentAbs)); err != nil {
		return nil, err
	}
	return readNeNameTable(src)
}
