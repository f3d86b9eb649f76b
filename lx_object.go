// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

const objectHeaderSize = 24

// Object permission bit masks (§3), grounded on os2omf/exe386/objtab.rs's
// documented OBJ_* constants.
const (
	objReadable    uint32 = 0x0001
	objWriteable   uint32 = 0x0002
	objExecutable  uint32 = 0x0004
	objDiscardable uint32 = 0x0010
	objResource    uint32 = 0x0008
)

// Object is one 24-byte record of the LE/LX object table (§3), the unit
// analogous to an NE segment: carries permissions and a page map slice.
type Object struct {
	VirtualSize  uint32
	VirtualBase  uint32
	Flags        uint32
	PageMapIndex uint32
	PageCount    uint32
	Reserved     uint32
}

// ObjectRights classifies an Object's access rights from its permission
// bits, supplementing the raw Flags spec.md already exposes.
type ObjectRights int

const (
	ObjectBSS ObjectRights = iota
	ObjectCode
	ObjectData
	ObjectRData
	ObjectSetter
)

func (r ObjectRights) String() string {
	switch r {
	case ObjectBSS:
		return "BSS"
	case ObjectCode:
		return "CODE"
	case ObjectData:
		return "DATA"
	case ObjectRData:
		return "RDATA"
	case ObjectSetter:
		return "SETTER"
	default:
		return "Unknown"
	}
}

// Rights derives a canonical classification from the readable/writeable/
// executable bits (os2omf's own match arms on flags&0x0002 are dead code,
// since that expression can only ever be 0 or 2 — this decoder classifies
// on the individual OBJ_READABLE/WRITEABLE/EXECUTABLE bits instead).
func (o Object) Rights() ObjectRights {
	if o.VirtualSize == 0 {
		return ObjectBSS
	}
	switch {
	case o.Flags&objExecutable != 0:
		return ObjectCode
	case o.Flags&objWriteable != 0:
		return ObjectData
	case o.Flags&objReadable != 0:
		return ObjectRData
	default:
		return ObjectSetter
	}
}

// Discardable reports the OBJ_DISCARDABLE bit.
func (o Object) Discardable() bool { return o.Flags&objDiscardable != 0 }

// Resource reports the OBJ_RESOURCE bit.
func (o Object) Resource() bool { return o.Flags&objResource != 0 }

// readObject reads one 24-byte object-table record.
func readObject(src ByteSource) (Object, error) {
	buf, err := src.ReadExact(objectHeaderSize)
	if err != nil {
		return Object{}, err
	}
	r := newSliceSource(buf)

	var o Object
	if o.VirtualSize, err = r.ReadU32(); err != nil {
		return Object{}, err
	}
	if o.VirtualBase, err = r.ReadU32(); err != nil {
		return Object{}, err
	}
	if o.Flags, err = r.ReadU32(); err != nil {
		return Object{}, err
	}
	if o.PageMapIndex, err = r.ReadU32(); err != nil {
		return Object{}, err
	}
	if o.PageCount, err = r.ReadU32(); err != nil {
		return Object{}, err
	}
	if o.Reserved, err = r.ReadU32(); err != nil {
		return Object{}, err
	}
	return o, nil
}

// readObjectTable reads count 24-byte object records starting at
// base+objTabRel.
func readObjectTable(src ByteSource, base int64, objTabRel uint32, count uint32) ([]Object, error) {
	if _, err := src.SeekAbsolute(base + int64(objTabRel)); err != nil {
		return nil, err
	}
	objects := make([]Object, 0, count)
	for i := 0; i < int(count); i++ {
		o, err := readObject(src)
		if err != nil {
			return nil, err
		}
		objects = append(objects, o)
	}
	return objects, nil
}

// ObjectPageFlag classifies a page map entry's physical backing (§3).
type ObjectPageFlag int

const (
	PageLegalPhysical ObjectPageFlag = 0
	PageIterated      ObjectPageFlag = 1
	PageInvalid       ObjectPageFlag = 2
	PageZeroFill      ObjectPageFlag = 3
	PageCompressed    ObjectPageFlag = 5
)

func (f ObjectPageFlag) String() string {
	switch f {
	case PageLegalPhysical:
		return "LegalPhysical"
	case PageIterated:
		return "Iterated"
	case PageInvalid:
		return "Invalid"
	case PageZeroFill:
		return "ZeroFill"
	case PageCompressed:
		return "Compressed"
	default:
		return "Unknown"
	}
}

// ObjectPage is one entry of the object page map, normalised across the
// two on-disk shapes (§3, §4.8): LX's 8-byte form carries an explicit data
// size, LE's 4-byte form only a 24-bit page number (its size is implied by
// the module's page size).
type ObjectPage struct {
	PageNumber uint32 // LE: 24-bit page index. LX: unused (PageOffset used instead).
	PageOffset uint32 // LX only.
	DataSize   uint16 // LX only.
	Flags      uint16
}

// readObjectPageMapLX reads count 8-byte LX page map entries.
func readObjectPageMapLX(src ByteSource, base int64, mapRel uint32, count uint32) ([]ObjectPage, error) {
	if _, err := src.SeekAbsolute(base + int64(mapRel)); err != nil {
		return nil, err
	}
	pages := make([]ObjectPage, 0, count)
	for i := 0; i < int(count); i++ {
		buf, err := src.ReadExact(8)
		if err != nil {
			return nil, err
		}
		r := newSliceSource(buf)
		offset, _ := r.ReadU32()
		dataSize, _ := r.ReadU16()
		flags, _ := r.ReadU16()
		pages = append(pages, ObjectPage{PageOffset: offset, DataSize: dataSize, Flags: flags})
	}
	return pages, nil
}

// readObjectPageMapLE reads count 4-byte LE page map entries: a 24-bit big-
// endian page number followed by a single flags byte.
func readObjectPageMapLE(src ByteSource, base int64, mapRel uint32, count uint32) ([]ObjectPage, error) {
	if _, err := src.SeekAbsolute(base + int64(mapRel)); err != nil {
		return nil, err
	}
	pages := make([]ObjectPage, 0, count)
	for i := 0; i < int(count); i++ {
		buf, err := src.ReadExact(4)
		if err != nil {
			return nil, err
		}
		pageNumber := uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
		pages = append(pages, ObjectPage{PageNumber: pageNumber, Flags: uint16(buf[3])})
	}
	return pages, nil
}
