// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

import (
	"errors"
	"testing"
)

func TestReadFixupRecordInternal16Bit(t *testing.T) {
	b := &buf{}
	b.u8(0x00)      // src: source type 0 (byte), not a source list
	b.u8(0x00)      // tgt: Internal, 8-bit object, 16-bit offset, no additive
	b.u16(0x0010)   // siteOffset
	b.u8(0x02)      // object number (8-bit)
	b.u16(0x1000)   // target offset (16-bit)

	src := newSliceSource(b.b)
	rec, err := readFixupRecord(src)
	if err != nil {
		t.Fatalf("readFixupRecord failed: %v", err)
	}
	if rec.TargetKind != FixupInternal || rec.ObjectNumber != 2 || rec.TargetOffset != 0x1000 {
		t.Errorf("rec = %+v, want Internal object=2 offset=0x1000", rec)
	}
	if rec.SiteOffset != 0x0010 {
		t.Errorf("SiteOffset = 0x%x, want 0x10", rec.SiteOffset)
	}
	if !rec.HasOffset {
		t.Errorf("HasOffset = false, want true (source type != 0x02)")
	}
}

func TestReadFixupRecordInternalSelectorHasNoOffset(t *testing.T) {
	b := &buf{}
	b.u8(0x02)    // src: source type 2 (16-bit selector)
	b.u8(0x00)    // tgt: Internal, 8-bit object, 16-bit target
	b.u16(0x0020) // siteOffset
	b.u8(0x03)    // object number

	src := newSliceSource(b.b)
	rec, err := readFixupRecord(src)
	if err != nil {
		t.Fatalf("readFixupRecord failed: %v", err)
	}
	if rec.HasOffset {
		t.Errorf("HasOffset = true, want false for 16-bit selector source type")
	}
	if rec.ObjectNumber != 3 {
		t.Errorf("ObjectNumber = %d, want 3", rec.ObjectNumber)
	}
}

func TestReadFixupRecordSourceListForm(t *testing.T) {
	b := &buf{}
	b.u8(0x20)      // src: source-list form, source type 0
	b.u8(0x00)      // tgt: Internal, 8-bit object, 16-bit target
	b.u8(3)         // source count N=3
	b.u8(0x05)      // object number
	b.u16(0x2000)   // target offset
	b.u16(0x0001).u16(0x0002).u16(0x0003) // 3 source offsets

	src := newSliceSource(b.b)
	rec, err := readFixupRecord(src)
	if err != nil {
		t.Fatalf("readFixupRecord failed: %v", err)
	}
	if !rec.SourceListForm {
		t.Fatalf("SourceListForm = false, want true")
	}
	want := []uint16{1, 2, 3}
	if len(rec.SourceOffsetList) != len(want) {
		t.Fatalf("SourceOffsetList = %v, want %v", rec.SourceOffsetList, want)
	}
	for i, v := range want {
		if rec.SourceOffsetList[i] != v {
			t.Errorf("SourceOffsetList[%d] = %d, want %d", i, rec.SourceOffsetList[i], v)
		}
	}
}

func TestReadFixupRecordImportedOrdinalWithAdditive(t *testing.T) {
	b := &buf{}
	b.u8(0x00)    // src
	b.u8(0x05)    // tgt: target kind 1 (ImportedOrdinal) | 0x04 (has additive)
	b.u16(0x0030) // siteOffset
	b.u8(0x01)    // module ordinal (8-bit)
	b.u16(0x2A)   // ordinal (u16, default width)
	b.u16(0x0004) // additive (16-bit)

	src := newSliceSource(b.b)
	rec, err := readFixupRecord(src)
	if err != nil {
		t.Fatalf("readFixupRecord failed: %v", err)
	}
	if rec.TargetKind != FixupImportedOrdinal || rec.ModuleOrdinal != 1 || rec.ImportOrdinal != 0x2A {
		t.Errorf("rec = %+v, want ImportedOrdinal module=1 ordinal=0x2A", rec)
	}
	if !rec.HasAdditive || rec.Additive != 4 {
		t.Errorf("additive = (%v, %d), want (true, 4)", rec.HasAdditive, rec.Additive)
	}
}

func TestReadFixupRecordEntryTableTarget(t *testing.T) {
	b := &buf{}
	b.u8(0x00)
	b.u8(0x03) // EntryTable
	b.u16(0x0040)
	b.u8(0x07) // entry number

	src := newSliceSource(b.b)
	rec, err := readFixupRecord(src)
	if err != nil {
		t.Fatalf("readFixupRecord failed: %v", err)
	}
	if rec.TargetKind != FixupEntryTable || rec.EntryNumber != 7 {
		t.Errorf("rec = %+v, want EntryTable entry=7", rec)
	}
}

func TestReadFixupRecordsPerPageBoundary(t *testing.T) {
	// Two logical pages, each with one 7-byte Internal-8-bit-object,
	// 16-bit-offset record (src=0,tgt=0,siteOffset u16,obj u8,offset u16).
	rec := func(b *buf, site uint16, obj uint8, off uint16) {
		b.u8(0x00).u8(0x00).u16(site).u8(obj).u16(off)
	}
	b := &buf{}
	rec(b, 0x10, 1, 0x100) // page 0's record, bytes [0,7)
	rec(b, 0x20, 2, 0x200) // page 1's record, bytes [7,14)

	pageIndex := []uint32{0, 7, 14}
	src := newSliceSource(b.b)
	perPage, err := readFixupRecords(src, 0, pageIndex)
	if err != nil {
		t.Fatalf("readFixupRecords failed: %v", err)
	}
	if len(perPage) != 2 {
		t.Fatalf("got %d pages, want 2", len(perPage))
	}
	if len(perPage[0]) != 1 || perPage[0][0].ObjectNumber != 1 {
		t.Errorf("page 0 = %+v, want one record with object 1", perPage[0])
	}
	if len(perPage[1]) != 1 || perPage[1][0].ObjectNumber != 2 {
		t.Errorf("page 1 = %+v, want one record with object 2", perPage[1])
	}
}

func TestReadFixupRecordsOverrunIsInvalidFixup(t *testing.T) {
	// A single 7-byte record, but the page index claims its page ends after
	// 5 bytes — the record must be rejected, not allowed to bleed into the
	// next page's slice.
	b := &buf{}
	b.u8(0x00).u8(0x00).u16(0x10).u8(1).u16(0x100)

	pageIndex := []uint32{0, 5}
	src := newSliceSource(b.b)
	_, err := readFixupRecords(src, 0, pageIndex)
	if err == nil {
		t.Fatal("expected InvalidFixup error, got nil")
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Kind != KindInvalidFixup {
		t.Fatalf("got %v, want *DecodeError{Kind: InvalidFixup}", err)
	}
}

func TestReadFixupPageIndexEndMarker(t *testing.T) {
	b := &buf{}
	b.zeros(4)            // stand-in header bytes before the table
	b.u32(0).u32(6).u32(12) // 2 pages: index[0]=0, index[1]=6, index[2]=12 (end marker)

	src := newSliceSource(b.b)
	idx, err := readFixupPageIndex(src, 0, 4, 2)
	if err != nil {
		t.Fatalf("readFixupPageIndex failed: %v", err)
	}
	if len(idx) != 3 || idx[2] != 12 {
		t.Errorf("idx = %v, want [0 6 12]", idx)
	}
}

func TestReadFixupRecordShortInputIsTruncated(t *testing.T) {
	src := newSliceSource([]byte{0x00}) // too short for any fixup record
	_, err := readFixupRecord(src)
	if err == nil {
		t.Fatal("expected truncated-read error, got nil")
	}
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("errors.Is(err, ErrTruncated) = false, got %v", err)
	}
}
