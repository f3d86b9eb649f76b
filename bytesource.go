// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

import (
	"encoding/binary"
)

// ByteSource is a seekable, bounded, read-exact byte stream over a file
// image (C1). Every decoder in this module operates through this interface
// — no decoder assumes the source is memory-mapped, and none relies on any
// other decoder's final cursor position (§4.9).
//
// A read must never leak uninitialised memory into a decoded value: on a
// short read, the operation fails with a *DecodeError wrapping
// ErrTruncated.
type ByteSource interface {
	// ReadExact reads exactly n bytes at the current position, advancing
	// it by n. It fails if fewer than n bytes remain.
	ReadExact(n int) ([]byte, error)

	// SeekAbsolute moves the cursor to an absolute offset from the start
	// of the image. It fails if off is past the end of the image.
	SeekAbsolute(off int64) (int64, error)

	// Position returns the current cursor offset.
	Position() int64

	// Length returns the total length of the image in bytes.
	Length() int64

	// ReadU8, ReadU16, ReadU32, ReadU64 read a little-endian unsigned
	// integer at the current position, advancing the cursor.
	ReadU8() (uint8, error)
	ReadU16() (uint16, error)
	ReadU32() (uint32, error)
	ReadU64() (uint64, error)
}

// sliceSource is a ByteSource backed by an in-memory byte slice. It backs
// both NewBytes (caller-supplied buffer) and Open (mmap'd file, since
// mmap.MMap is itself a []byte).
type sliceSource struct {
	data []byte
	pos  int64
}

// newSliceSource wraps data as a ByteSource.
func newSliceSource(data []byte) *sliceSource {
	return &sliceSource{data: data}
}

func (s *sliceSource) Length() int64 { return int64(len(s.data)) }

func (s *sliceSource) Position() int64 { return s.pos }

func (s *sliceSource) SeekAbsolute(off int64) (int64, error) {
	if off < 0 || off > int64(len(s.data)) {
		return s.pos, newDecodeError(KindTruncated, off, "seek past end of image (length %d)", len(s.data))
	}
	s.pos = off
	return s.pos, nil
}

func (s *sliceSource) ReadExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, newDecodeError(KindTruncated, s.pos, "negative read length %d", n)
	}
	end := s.pos + int64(n)
	if end > int64(len(s.data)) {
		return nil, newDecodeError(KindTruncated, s.pos, "need %d bytes, only %d remain", n, int64(len(s.data))-s.pos)
	}
	out := s.data[s.pos:end]
	s.pos = end
	return out, nil
}

func (s *sliceSource) ReadU8() (uint8, error) {
	b, err := s.ReadExact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *sliceSource) ReadU16() (uint16, error) {
	b, err := s.ReadExact(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (s *sliceSource) ReadU32() (uint32, error) {
	b, err := s.ReadExact(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *sliceSource) ReadU64() (uint64, error) {
	b, err := s.ReadExact(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
