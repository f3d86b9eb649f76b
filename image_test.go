// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

import (
	"errors"
	"testing"
)

func TestDispatchPlainMzHasNoInnerHeader(t *testing.T) {
	b := minimalMz(0)
	img, err := NewBytes(b.b, nil)
	if err != nil {
		t.Fatalf("NewBytes failed: %v", err)
	}
	if img.Container.Kind != KindMZ {
		t.Fatalf("Kind = %v, want MZ", img.Container.Kind)
	}
	if img.NE != nil || img.LX != nil {
		t.Errorf("plain MZ image should populate neither NE nor LX")
	}
}

func TestDispatchNeInnerHeader(t *testing.T) {
	mz := minimalMz(64) // inner header starts right after the 64-byte MZ stub
	neStart := mz.at()

	ne := &buf{}
	ne.u16(NeMagic)
	ne.u8(5).u8(0)      // linker version/revision
	ne.u16(0).u16(0)    // entry table offset/length (empty table)
	ne.u32(0)           // checksum
	ne.u16(0)           // flags
	ne.u16(0).u16(0).u16(0) // autodata, heap, stack
	ne.u16(0).u16(0).u16(0).u16(0) // ip, cs, sp, ss
	ne.u16(0)           // segment count
	ne.u16(0)           // module ref count
	ne.u16(0)           // non-resident name len
	ne.u16(0).u16(0).u16(0).u16(0).u16(0) // segtab, restab, resnametab, modreftab, imptab
	ne.u32(0)           // non-resident name abs
	ne.u16(0).u16(0).u16(0) // moveable entry count, align shift, resource count
	ne.u8(0).u8(0)      // target os, extra flags
	ne.u16(0).u16(0).u16(0) // return thunk, segref thunk, min code swap
	ne.u8(0).u8(0)      // expected win ver minor/major

	if ne.at() != neHeaderSize {
		t.Fatalf("test fixture bug: NE header built with %d bytes, want %d", ne.at(), neHeaderSize)
	}

	full := append(append([]byte{}, mz.b...), ne.b...)

	img, err := NewBytes(full, &Options{Fast: true})
	if err != nil {
		t.Fatalf("NewBytes failed: %v", err)
	}
	if img.Container.Kind != KindNE {
		t.Fatalf("Kind = %v, want NE", img.Container.Kind)
	}
	if img.Container.Base != int64(neStart) {
		t.Errorf("Base = %d, want %d", img.Container.Base, neStart)
	}
	if img.NE == nil {
		t.Fatal("img.NE is nil")
	}
	if img.NE.Header.Magic != NeMagic {
		t.Errorf("NE.Header.Magic = 0x%x, want 0x%x", img.NE.Header.Magic, NeMagic)
	}
}

func TestDispatchBadMagicIsUnknownContainer(t *testing.T) {
	mz := minimalMz(64)
	garbage := append(append([]byte{}, mz.b...), []byte{0xDE, 0xAD}...)
	garbage = append(garbage, make([]byte, 62)...)

	_, err := NewBytes(garbage, nil)
	if err == nil {
		t.Fatal("expected an error for an unrecognised inner header tag")
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Kind != KindUnknownContainer {
		t.Fatalf("got %v, want *DecodeError{Kind: UnknownContainer}", err)
	}
}

func TestNewBytesIsIdempotentOnTheSameBuffer(t *testing.T) {
	b := minimalMz(0)
	img1, err := NewBytes(b.b, nil)
	if err != nil {
		t.Fatalf("first NewBytes failed: %v", err)
	}
	img2, err := NewBytes(b.b, nil)
	if err != nil {
		t.Fatalf("second NewBytes failed: %v", err)
	}
	if img1.Container.Kind != img2.Container.Kind || img1.Container.Base != img2.Container.Base {
		t.Errorf("decoding the same buffer twice produced different containers: %+v vs %+v",
			img1.Container, img2.Container)
	}
}

func TestFastOptionSkipsTableDecode(t *testing.T) {
	mz := minimalMz(64)
	ne := &buf{}
	ne.u16(NeMagic).zeros(neHeaderSize - 2)
	full := append(append([]byte{}, mz.b...), ne.b...)

	img, err := NewBytes(full, &Options{Fast: true})
	if err != nil {
		t.Fatalf("NewBytes failed: %v", err)
	}
	if img.NE == nil {
		t.Fatal("img.NE is nil")
	}
	if img.NE.Segments != nil {
		t.Errorf("Fast decode should skip segment table, got %v", img.NE.Segments)
	}
}
