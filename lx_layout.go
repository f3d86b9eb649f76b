// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

// LxLayout is the complete decoded LE/LX table family (C9): the header plus
// every table it points at, in the construction order of §2 — header →
// object table → page map → fixups → entries → name tables → imports →
// directives.
type LxLayout struct {
	Header LxHeader
	Kind   ContainerKind

	Objects  []Object
	Pages    []ObjectPage
	FixupPageIndex []uint32
	Fixups   [][]FixupRecord // per logical page

	Entries []LxEntry

	ResidentNames   []NeNameEntry
	NonResidentName []NeNameEntry

	ModuleNames []LenString
	Imports     []ImportTuple

	Directives []ModuleDirective
}

// readLxLayout decodes the full LE/LX table family at base, re-seeking
// before each sub-decode so none relies on a previous decoder's final
// cursor position (§4.9). kind distinguishes the two object-page-map
// on-disk shapes (8-byte LX vs 4-byte LE).
func readLxLayout(src ByteSource, base int64, kind ContainerKind, opts Options) (LxLayout, error) {
	if _, err := src.SeekAbsolute(base); err != nil {
		return LxLayout{}, err
	}
	header, err := readLxHeader(src)
	if err != nil {
		return LxLayout{}, err
	}
	if !header.ByteOrderOK() {
		return LxLayout{}, newDecodeError(KindBadByteOrder, base, "LE/LX byteOrder=%d wordOrder=%d", header.ByteOrder, header.WordOrder)
	}

	if opts.Fast {
		return LxLayout{Header: header, Kind: kind}, nil
	}

	if err := opts.checkCount(int(header.ObjectCount), "LX object"); err != nil {
		return LxLayout{}, err
	}
	objects, err := readObjectTable(src, base, header.ObjectTableOffset, header.ObjectCount)
	if err != nil {
		return LxLayout{}, err
	}

	totalPages := totalObjectPages(objects)
	if err := opts.checkCountAgainst(totalPages, opts.MaxPageCount, "LX object page"); err != nil {
		return LxLayout{}, err
	}
	var pages []ObjectPage
	if kind == KindLX {
		pages, err = readObjectPageMapLX(src, base, header.ObjectPageMapOffset, uint32(totalPages))
	} else {
		pages, err = readObjectPageMapLE(src, base, header.ObjectPageMapOffset, uint32(totalPages))
	}
	if err != nil {
		return LxLayout{}, err
	}

	fixupPageIndex, err := readFixupPageIndex(src, base, header.FixupPageTableOffset, header.PageCount)
	if err != nil {
		return LxLayout{}, err
	}
	var fixups [][]FixupRecord
	if fixupPageIndex != nil {
		recordStreamBase := base + int64(header.FixupRecordTableOffset)
		lastOffset := fixupPageIndex[len(fixupPageIndex)-1]
		if err := opts.checkCountAgainst(int(lastOffset), opts.MaxFixupRecordCount, "LX fixup record stream byte"); err != nil {
			return LxLayout{}, err
		}
		fixups, err = readFixupRecords(src, recordStreamBase, fixupPageIndex)
		if err != nil {
			return LxLayout{}, err
		}
	}

	entries, err := readLxEntryTable(src, base, header.EntryTableOffset)
	if err != nil {
		return LxLayout{}, err
	}

	residentNames, err := readLxResidentNames(src, base, header.ResidentNameTableOffset)
	if err != nil {
		return LxLayout{}, err
	}
	nonResidentNames, err := readLxNonResidentNames(src, header.NonResidentNameTableAbs)
	if err != nil {
		return LxLayout{}, err
	}

	moduleNames, err := readLxModuleNames(src, base, header.ImportModuleTableOffset, header.ImportModuleCount)
	if err != nil {
		return LxLayout{}, err
	}
	imports, err := resolveLxImports(src, fixups, moduleNames, base+int64(header.ImportProcTableOffset))
	if err != nil {
		return LxLayout{}, err
	}

	directives, err := readModuleDirectives(src, base, header.ModuleDirectivesOffset, header.ModuleDirectivesCount)
	if err != nil {
		return LxLayout{}, err
	}

	return LxLayout{
		Header:          header,
		Kind:            kind,
		Objects:         objects,
		Pages:           pages,
		FixupPageIndex:  fixupPageIndex,
		Fixups:          fixups,
		Entries:         entries,
		ResidentNames:   residentNames,
		NonResidentName: nonResidentNames,
		ModuleNames:     moduleNames,
		Imports:         imports,
		Directives:      directives,
	}, nil
}

// totalObjectPages sums each object's PageCount, the size of the combined
// object page map (§3: objects address disjoint slices of one shared map
// via PageMapIndex/PageCount).
func totalObjectPages(objects []Object) int {
	total := 0
	for _, o := range objects {
		total += int(o.PageCount)
	}
	return total
}

// VerifyRecordFor decodes directive d as a VerifyRecord, failing if d is
// not actually a verify-record directive.
func (l LxLayout) VerifyRecordFor(d ModuleDirective) (VerifyRecord, error) {
	if d.Number != DirectiveVerifyRecord {
		return VerifyRecord{}, newDecodeError(KindTruncated, 0, "directive 0x%04x is not a verify record", d.Number)
	}
	return decodeVerifyRecord(d)
}
