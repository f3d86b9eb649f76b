// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

// ImportTuple is a resolved import reference: a module name paired with
// either a procedure name or an ordinal (§4.9's "Import resolution").
type ImportTuple struct {
	ModuleName LenString
	ByName     LenString
	ByOrdinal  uint32
	IsOrdinal  bool
}

// resolveNeImports walks every per-segment relocation across all segments
// and turns ImportOrdinal/ImportName records into ImportTuples, joining
// against the already-resolved module name list. Internal and OSFixup
// records carry no import and are skipped.
func resolveNeImports(src ByteSource, segments []Segment, moduleNames []LenString, impTabBase int64) ([]ImportTuple, error) {
	var tuples []ImportTuple
	for _, seg := range segments {
		for _, rec := range seg.Relocs {
			switch rec.Kind {
			case NeRelocImportOrdinal:
				mod, err := moduleNameAt(moduleNames, rec.ModuleIndex)
				if err != nil {
					return nil, err
				}
				tuples = append(tuples, ImportTuple{
					ModuleName: mod,
					ByOrdinal:  uint32(rec.Ordinal),
					IsOrdinal:  true,
				})
			case NeRelocImportName:
				mod, err := moduleNameAt(moduleNames, rec.ModuleIndex)
				if err != nil {
					return nil, err
				}
				name, err := readLenStringAt(src, impTabBase+int64(rec.NameOffset))
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

// moduleNameAt resolves a 1-based module ordinal against the module name
// list, failing with InvalidModuleOrdinal per §7 if out of range.
func moduleNameAt(moduleNames []LenString, ordinal uint16) (LenString, error) {
	if ordinal == 0 || int(ordinal) > len(moduleNames) {
		return LenString{}, newDecodeError(KindInvalidModuleOrdinal, 0,
			"module ordinal %d outside [1, %d]", ordinal, len(moduleNames))
	}
	return moduleNames[ordinal-1], nil
}
