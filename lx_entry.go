// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

// LxBundleType is the LE/LX entry bundle's second header byte, selecting
// one of four fixed-width payload variants (§3, §4.8).
type LxBundleType int

const (
	LxBundleUnused LxBundleType = iota
	LxBundle16
	LxBundleCallGate
	LxBundle32
	LxBundleForwarder
)

func (t LxBundleType) String() string {
	switch t {
	case LxBundleUnused:
		return "Unused"
	case LxBundle16:
		return "Entry16"
	case LxBundleCallGate:
		return "CallGate"
	case LxBundle32:
		return "Entry32"
	case LxBundleForwarder:
		return "Forwarder"
	default:
		return "Unknown"
	}
}

// LxEntry is one decoded entry-table slot, irrespective of which bundle
// variant produced it. Fields not meaningful for the entry's Type are left
// zero.
type LxEntry struct {
	Ordinal uint32
	Object  uint16
	Type    LxBundleType

	Flags uint8

	Offset16 uint16 // Entry16
	Offset32 uint32 // Entry32
	CallGate uint16 // CallGate selector

	ModuleOrdinal   uint16 // Forwarder
	OffsetOrOrdinal uint32 // Forwarder
}

// readLxEntryTable decodes the bundle-at-a-time LE/LX entry table at
// base+entTabRel (§4.8), grounded on os2omf/exe386/enttab.rs's EntryTable.
func readLxEntryTable(src ByteSource, base int64, entTabRel uint32) ([]LxEntry, error) {
	if entTabRel == 0 {
		return nil, nil
	}
	if _, err := src.SeekAbsolute(base + int64(entTabRel)); err != nil {
		return nil, err
	}

	var entries []LxEntry
	var ordinal uint32 = 1

	for {
		countByte, err := src.ReadU8()
		if err != nil {
			return nil, err
		}
		count := countByte
		if count == 0 {
			break
		}

		typeByte, err := src.ReadU8()
		if err != nil {
			return nil, err
		}
		bundleType := LxBundleType(typeByte & 0x7F)

		var object uint16
		if bundleType != LxBundleUnused && bundleType != LxBundleForwarder {
			if object, err = src.ReadU16(); err != nil {
				return nil, err
			}
		}

		for i := 0; i < int(count); i++ {
			entry := LxEntry{Ordinal: ordinal, Object: object, Type: bundleType}
			switch bundleType {
			case LxBundleUnused:
				// no payload
			case LxBundle16:
				buf, err := src.ReadExact(3)
				if err != nil {
					return nil, err
				}
				entry.Flags = buf[0]
				entry.Offset16 = uint16(buf[1]) | uint16(buf[2])<<8
			case LxBundleCallGate:
				buf, err := src.ReadExact(5)
				if err != nil {
					return nil, err
				}
				entry.Flags = buf[0]
				entry.Offset16 = uint16(buf[1]) | uint16(buf[2])<<8
				entry.CallGate = uint16(buf[3]) | uint16(buf[4])<<8
			case LxBundle32:
				buf, err := src.ReadExact(5)
				if err != nil {
					return nil, err
				}
				entry.Flags = buf[0]
				entry.Offset32 = uint32(buf[1]) | uint32(buf[2])<<8 | uint32(buf[3])<<16 | uint32(buf[4])<<24
			case LxBundleForwarder:
				buf, err := src.ReadExact(9)
				if err != nil {
					return nil, err
				}
				// buf[0:2] is the leading reserved u16.
				entry.Flags = buf[2]
				entry.ModuleOrdinal = uint16(buf[3]) | uint16(buf[4])<<8
				entry.OffsetOrOrdinal = uint32(buf[5]) | uint32(buf[6])<<8 | uint32(buf[7])<<16 | uint32(buf[8])<<24
			default:
				return nil, newDecodeError(KindInvalidBundle, src.Position(), "unrecognised LE/LX bundle type 0x%02x", typeByte)
			}
			entries = append(entries, entry)
			ordinal++
		}
	}
	return entries, nil
}
