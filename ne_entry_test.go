// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

import (
	"errors"
	"testing"

	"github.com/saferwall/legacyexe/log"
)

// recordingLogger captures every record logged through it, so tests can
// assert a warning was actually emitted rather than silently dropped.
type recordingLogger struct {
	records []string
}

func (r *recordingLogger) Log(level log.Level, keyvals ...interface{}) error {
	r.records = append(r.records, level.String())
	return nil
}

func TestReadNeEntryTableOrdinalsAdvanceAcrossBundles(t *testing.T) {
	b := &buf{}
	b.u8(2).u8(0)                   // bundle: 2 unused slots
	b.u8(2).u8(1)                   // bundle: 2 fixed entries in segment 1
	b.u8(0x01).u16(0x1234)          // entry 3
	b.u8(0x01).u16(0x5678)          // entry 4
	b.u8(0).u8(0)                   // terminator bundle header (count=0)

	src := newSliceSource(b.b)
	entries, err := readNeEntryTable(src, 0, 0, uint16(len(b.b)), nil)
	if err != nil {
		t.Fatalf("readNeEntryTable failed: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	for i, e := range entries {
		if e.Ordinal != uint16(i+1) {
			t.Errorf("entry %d: ordinal = %d, want %d", i, e.Ordinal, i+1)
		}
	}
	if entries[0].State != NeEntryUnused || entries[1].State != NeEntryUnused {
		t.Errorf("entries 0,1 should be Unused, got %v, %v", entries[0].State, entries[1].State)
	}
	if entries[2].State != NeEntryFixed || entries[2].Offset != 0x1234 {
		t.Errorf("entry 2 = %+v, want Fixed offset 0x1234", entries[2])
	}
	if entries[3].State != NeEntryFixed || entries[3].Offset != 0x5678 {
		t.Errorf("entry 3 = %+v, want Fixed offset 0x5678", entries[3])
	}
}

func TestReadNeEntryTableOverflowIsInvalidBundle(t *testing.T) {
	b := &buf{}
	b.u8(5).u8(1) // bundle claims 5 fixed entries (15 bytes) but table is shorter
	b.u8(0x01).u16(0x1111)

	src := newSliceSource(b.b)
	_, err := readNeEntryTable(src, 0, 0, uint16(b.at()), nil)
	if err == nil {
		t.Fatal("expected InvalidBundle error, got nil")
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Kind != KindInvalidBundle {
		t.Fatalf("got %v, want *DecodeError{Kind: InvalidBundle}", err)
	}
	if !errors.Is(err, ErrInvalidBundle) {
		t.Errorf("errors.Is(err, ErrInvalidBundle) = false")
	}
}

func TestReadNeEntryTableMoveableBundle(t *testing.T) {
	b := &buf{}
	b.u8(1).u8(0xFF)        // bundle: 1 moveable entry
	b.u8(0x02).u8(0xCD).u8(0x3F).u8(0x07).u16(0xABCD) // flags, INT-3F magic, segment, offset
	b.u8(0).u8(0)            // terminator bundle header (count=0)

	src := newSliceSource(b.b)
	entries, err := readNeEntryTable(src, 0, 0, uint16(b.at()), nil)
	if err != nil {
		t.Fatalf("readNeEntryTable failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.State != NeEntryMoveable || e.Segment != 0x07 || e.Offset != 0xABCD {
		t.Errorf("entry = %+v, want Moveable segment 0x07 offset 0xABCD", e)
	}
}

func TestReadNeEntryTableMoveableBundleBadMagicWarns(t *testing.T) {
	b := &buf{}
	b.u8(1).u8(0xFF)                                  // bundle: 1 moveable entry
	b.u8(0x02).u8(0x00).u8(0x00).u8(0x07).u16(0xABCD) // flags, WRONG magic, segment, offset
	b.u8(0).u8(0)                                     // terminator bundle header

	rec := &recordingLogger{}
	src := newSliceSource(b.b)
	entries, err := readNeEntryTable(src, 0, 0, uint16(b.at()), log.NewHelper(rec))
	if err != nil {
		t.Fatalf("readNeEntryTable failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].MoveMagic != [2]byte{0x00, 0x00} {
		t.Errorf("a bad INT-3F magic should still be captured on the entry, got %v", entries[0].MoveMagic)
	}
	if len(rec.records) != 1 || rec.records[0] != log.LevelWarn.String() {
		t.Errorf("records = %v, want one WARN record for the magic mismatch", rec.records)
	}
}
