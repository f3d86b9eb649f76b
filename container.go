// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

// ContainerKind identifies which of the four container families an image
// was classified as.
type ContainerKind int

const (
	// KindMZ is a pure real-mode DOS executable with no inner header.
	KindMZ ContainerKind = iota
	// KindNE is a 16-bit segmented New Executable.
	KindNE
	// KindLE is a mixed 16/32-bit Linear Executable (VxD, early OS/2 2.0).
	KindLE
	// KindLX is a 32-bit Linear eXecutable (OS/2 2.x+).
	KindLX
)

func (k ContainerKind) String() string {
	switch k {
	case KindMZ:
		return "MZ"
	case KindNE:
		return "NE"
	case KindLE:
		return "LE"
	case KindLX:
		return "LX"
	default:
		return "Unknown"
	}
}

// Container is the result of C4's dispatch: which family the image belongs
// to, and the absolute file offset ("base") at which that family's inner
// header starts.
type Container struct {
	Dos  *MzHeader
	Base int64
	Kind ContainerKind
}

// dispatch implements the algorithm of §4.4: read (or tolerate the absence
// of) an MZ header, then peek two bytes at the computed base to classify
// the inner header.
func dispatch(src ByteSource) (Container, error) {
	if _, err := src.SeekAbsolute(0); err != nil {
		return Container{}, err
	}

	dos, dosErr := readMzHeader(src)

	// Some VxD and DOS-extender images skip the MZ stub entirely and start
	// straight off with "LE"/"LX" at offset 0 (§4.4 rationale).
	if dosErr != nil {
		if _, err := src.SeekAbsolute(0); err != nil {
			return Container{}, err
		}
		tag, err := src.ReadExact(2)
		if err != nil {
			return Container{}, err
		}
		if isLinearTag(tag) {
			kind, err := classifyLinearTag(tag, src.Position()-2)
			if err != nil {
				return Container{}, err
			}
			return Container{Dos: nil, Base: 0, Kind: kind}, nil
		}
		return Container{}, dosErr
	}

	base := int64(0)
	if dos.AddressOfNewExeHeader != 0 {
		base = int64(dos.AddressOfNewExeHeader)
	}

	if base == 0 {
		return Container{Dos: &dos, Base: 0, Kind: KindMZ}, nil
	}

	if _, err := src.SeekAbsolute(base); err != nil {
		return Container{}, err
	}
	tag, err := src.ReadExact(2)
	if err != nil {
		return Container{}, err
	}

	switch {
	case tag[0] == 'N' && tag[1] == 'E':
		return Container{Dos: &dos, Base: base, Kind: KindNE}, nil
	case isLinearTag(tag):
		kind, err := classifyLinearTag(tag, base)
		if err != nil {
			return Container{}, err
		}
		return Container{Dos: &dos, Base: base, Kind: kind}, nil
	default:
		return Container{}, newDecodeError(KindUnknownContainer, base, "unrecognised inner header tag %q", tag)
	}
}

func isLinearTag(tag []byte) bool {
	if len(tag) < 2 {
		return false
	}
	return (tag[0] == 'L' && (tag[1] == 'E' || tag[1] == 'X'))
}

func classifyLinearTag(tag []byte, offset int64) (ContainerKind, error) {
	switch {
	case tag[0] == 'L' && tag[1] == 'X':
		return KindLX, nil
	case tag[0] == 'L' && tag[1] == 'E':
		return KindLE, nil
	default:
		return 0, newDecodeError(KindUnknownContainer, offset, "unrecognised inner header tag %q", tag)
	}
}
