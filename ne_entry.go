// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

import "github.com/saferwall/legacyexe/log"

// neMoveableThunk is the INT 3Fh opcode (§3, §8) every moveable entry's
// 2nd/3rd bytes are expected to carry: an indirection through the Windows
// kernel's moveable-segment fixup handler.
var neMoveableThunk = [2]byte{0xCD, 0x3F}

// NeEntryState classifies one decoded entry-table slot (§3, §4.6).
type NeEntryState int

const (
	NeEntryUnused NeEntryState = iota
	NeEntryFixed
	NeEntryMoveable
)

func (s NeEntryState) String() string {
	switch s {
	case NeEntryUnused:
		return "Unused"
	case NeEntryFixed:
		return "Fixed"
	case NeEntryMoveable:
		return "Moveable"
	default:
		return "Unknown"
	}
}

// NeEntry is one ordinal slot of the NE entry table, irrespective of the
// bundle that produced it.
type NeEntry struct {
	Ordinal uint16
	State   NeEntryState

	// Fixed
	Segment uint8
	Flags   uint8
	Offset  uint16

	// Moveable
	MoveMagic [2]byte
}

// readNeEntryTable decodes the full bundle-at-a-time entry table starting at
// base+entTabRel, maintaining a global running ordinal counter from 1
// (§4.6). It stops at the first count=0 terminator bundle, or once
// entTabLen bytes have been consumed — whichever comes first.
func readNeEntryTable(src ByteSource, base int64, entTabRel uint16, entTabLen uint16, logger *log.Helper) ([]NeEntry, error) {
	start := base + int64(entTabRel)
	if _, err := src.SeekAbsolute(start); err != nil {
		return nil, err
	}

	var entries []NeEntry
	var ordinal uint16 = 1
	remaining := int(entTabLen)

	for remaining > 0 {
		header, err := src.ReadExact(2)
		if err != nil {
			return nil, err
		}
		remaining -= 2
		count := header[0]
		segID := header[1]

		if count == 0 {
			break
		}

		if segID == 0 {
			for i := 0; i < int(count); i++ {
				entries = append(entries, NeEntry{Ordinal: ordinal, State: NeEntryUnused})
				ordinal++
			}
			continue
		}

		entrySize := 3
		if segID == 0xFF {
			entrySize = 6
		}
		bundleSize := int(count) * entrySize
		if bundleSize > remaining {
			return nil, newDecodeError(KindInvalidBundle, src.Position(),
				"entry bundle of %d bytes overruns %d bytes remaining in table", bundleSize, remaining)
		}
		remaining -= bundleSize

		for i := 0; i < int(count); i++ {
			if segID == 0xFF {
				e, err := readNeMoveableEntry(src, ordinal, logger)
				if err != nil {
					return nil, err
				}
				entries = append(entries, e)
			} else {
				e, err := readNeFixedEntry(src, ordinal, segID)
				if err != nil {
					return nil, err
				}
				entries = append(entries, e)
			}
			ordinal++
		}
	}
	return entries, nil
}

// readNeFixedEntry decodes a 3-byte fixed-segment entry: flags, offset.
func readNeFixedEntry(src ByteSource, ordinal uint16, segID uint8) (NeEntry, error) {
	buf, err := src.ReadExact(3)
	if err != nil {
		return NeEntry{}, err
	}
	return NeEntry{
		Ordinal: ordinal,
		State:   NeEntryFixed,
		Segment: segID,
		Flags:   buf[0],
		Offset:  uint16(buf[1]) | uint16(buf[2])<<8,
	}, nil
}

// readNeMoveableEntry decodes a 6-byte moveable entry: flags, the INT-3F
// indirection magic, segment index, offset. A magic mismatch is a warning,
// not a structural error (§3, §8): the entry is still usable, it just
// didn't come from a well-formed linker.
func readNeMoveableEntry(src ByteSource, ordinal uint16, logger *log.Helper) (NeEntry, error) {
	buf, err := src.ReadExact(6)
	if err != nil {
		return NeEntry{}, err
	}
	magic := [2]byte{buf[1], buf[2]}
	if magic != neMoveableThunk {
		logger.Warnf("entry %d: moveable entry INT-3F magic = %02X%02X, want %02X%02X",
			ordinal, magic[0], magic[1], neMoveableThunk[0], neMoveableThunk[1])
	}
	return NeEntry{
		Ordinal:   ordinal,
		State:     NeEntryMoveable,
		MoveMagic: magic,
		Segment:   buf[3],
		Offset:    uint16(buf[4]) | uint16(buf[5])<<8,
		Flags:     buf[0],
	}, nil
}
