// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

// readLxModuleNames scans the import module name pool sequentially: a
// LenString per module, terminated by a zero-length string or once
// moduleCount strings have been consumed (§4.8).
func readLxModuleNames(src ByteSource, base int64, impModRel uint32, moduleCount uint32) ([]LenString, error) {
	if impModRel == 0 || moduleCount == 0 {
		return nil, nil
	}
	if _, err := src.SeekAbsolute(base + int64(impModRel)); err != nil {
		return nil, err
	}
	names := make([]LenString, 0, moduleCount)
	for i := 0; i < int(moduleCount); i++ {
		s, err := readLenString(src)
		if err != nil {
			return nil, err
		}
		if s.Empty() {
			break
		}
		names = append(names, s)
	}
	return names, nil
}

// resolveLxImports walks every page's fixup records and turns
// ImportedOrdinal/ImportedName targets into ImportTuples, joining against
// the already-resolved module name list (§4.8's "Import resolution").
// Internal and EntryTable targets carry no import and are skipped.
func resolveLxImports(src ByteSource, perPageFixups [][]FixupRecord, moduleNames []LenString, impProcBase int64) ([]ImportTuple, error) {
	var tuples []ImportTuple
	for _, page := range perPageFixups {
		for _, rec := range page {
			switch rec.TargetKind {
			case FixupImportedOrdinal:
				mod, err := moduleNameAt(moduleNames, rec.ModuleOrdinal)
				if err != nil {
					return nil, err
				}
				tuples = append(tuples, ImportTuple{
					ModuleName: mod,
					ByOrdinal:  rec.ImportOrdinal,
					IsOrdinal:  true,
				})
			case FixupImportedName:
				mod, err := moduleNameAt(moduleNames, rec.ModuleOrdinal)
				if err != nil {
					return nil, err
				}
				name, err := readLenStringAt(src, impProcBase+int64(rec.ProcedureNameOffset))
				if err != nil {
					return nil, err
				}
				tuples = append(tuples, ImportTuple{
					ModuleName: mod,
					ByName:     name,
				})
			}
		}
	}
	return tuples, nil
}
