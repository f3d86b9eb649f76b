// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

// NeLayout is the complete decoded NE table family (C9): the header plus
// every table it points at, in the construction order of §2 — header →
// segment table → entries → name tables → imports.
type NeLayout struct {
	Header          NeHeader
	Segments        []Segment
	Entries         []NeEntry
	ResidentNames   []NeNameEntry
	NonResidentName []NeNameEntry
	ModuleNames     []LenString
	Imports         []ImportTuple
}

// readNeLayout decodes the full NE table family at base, re-seeking before
// each sub-decode so none relies on a previous decoder's final cursor
// position (§4.9).
func readNeLayout(src ByteSource, base int64, opts Options) (NeLayout, error) {
	if _, err := src.SeekAbsolute(base); err != nil {
		return NeLayout{}, err
	}
	header, err := readNeHeader(src)
	if err != nil {
		return NeLayout{}, err
	}

	if opts.Fast {
		return NeLayout{Header: header}, nil
	}

	if err := opts.checkCount(int(header.SegmentCount), "NE segment"); err != nil {
		return NeLayout{}, err
	}

	segments, err := readNeSegmentTable(src, base, header.SegmentTableOffset, header.SegmentCount, header.AlignShift())
	if err != nil {
		return NeLayout{}, err
	}

	entries, err := readNeEntryTable(src, base, header.EntryTableOffset, header.EntryTableLength, opts.helper())
	if err != nil {
		return NeLayout{}, err
	}

	residentNames, err := readNeResidentNames(src, base, header.ResidentNameOffset)
	if err != nil {
		return NeLayout{}, err
	}

	nonResidentNames, err := readNeNonResidentNames(src, header.NonResidentNameAbs)
	if err != nil {
		return NeLayout{}, err
	}

	moduleRefs, err := readNeModuleRefTable(src, base, header.ModuleRefOffset, header.ModuleRefCount)
	if err != nil {
		return NeLayout{}, err
	}
	moduleNames, err := readNeModuleNames(src, base, header.ImportTableOffset, moduleRefs)
	if err != nil {
		return NeLayout{}, err
	}

	imports, err := resolveNeImports(src, segments, moduleNames, base+int64(header.ImportTableOffset))
	if err != nil {
		return NeLayout{}, err
	}

	return NeLayout{
		Header:          header,
		Segments:        segments,
		Entries:         entries,
		ResidentNames:   residentNames,
		NonResidentName: nonResidentNames,
		ModuleNames:     moduleNames,
		Imports:         imports,
	}, nil
}
