// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package legacyexe

import (
	"errors"
	"fmt"
)

// Kind identifies the taxonomy of a decode failure (§7).
type Kind int

const (
	// KindTruncated is returned on an I/O short read.
	KindTruncated Kind = iota

	// KindBadMagic is returned when a container tag doesn't match what was
	// expected at the current seek position.
	KindBadMagic

	// KindBadByteOrder is returned when a LE/LX header declares a non-zero
	// byte or word order (big-endian containers are not supported).
	KindBadByteOrder

	// KindInvalidBundle is returned when an entry-bundle size overruns its
	// declared table.
	KindInvalidBundle

	// KindInvalidFixup is returned for an unrecognised fixup target kind.
	KindInvalidFixup

	// KindInvalidModuleOrdinal is returned when an import record references
	// a module index outside [1, moduleCount].
	KindInvalidModuleOrdinal

	// KindImplausibleCount is returned when a header asserts a count past
	// the implementation's hard ceiling (§5).
	KindImplausibleCount

	// KindUnknownContainer is returned when the dispatcher cannot classify
	// the image.
	KindUnknownContainer
)

func (k Kind) String() string {
	switch k {
	case KindTruncated:
		return "Truncated"
	case KindBadMagic:
		return "BadMagic"
	case KindBadByteOrder:
		return "BadByteOrder"
	case KindInvalidBundle:
		return "InvalidBundle"
	case KindInvalidFixup:
		return "InvalidFixup"
	case KindInvalidModuleOrdinal:
		return "InvalidModuleOrdinal"
	case KindImplausibleCount:
		return "ImplausibleCount"
	case KindUnknownContainer:
		return "UnknownContainer"
	default:
		return "Unknown"
	}
}

// Sentinel errors, one per Kind, so callers can errors.Is against a family
// of failures without caring about the offset.
var (
	ErrTruncated            = errors.New("truncated read")
	ErrBadMagic             = errors.New("bad magic")
	ErrBadByteOrder         = errors.New("byte/word order not little-endian")
	ErrInvalidBundle        = errors.New("entry bundle size overruns table")
	ErrInvalidFixup         = errors.New("unrecognised fixup target kind")
	ErrInvalidModuleOrdinal = errors.New("module ordinal out of range")
	ErrImplausibleCount     = errors.New("count exceeds implementation ceiling")
	ErrUnknownContainer     = errors.New("container kind could not be determined")
)

func sentinelFor(k Kind) error {
	switch k {
	case KindTruncated:
		return ErrTruncated
	case KindBadMagic:
		return ErrBadMagic
	case KindBadByteOrder:
		return ErrBadByteOrder
	case KindInvalidBundle:
		return ErrInvalidBundle
	case KindInvalidFixup:
		return ErrInvalidFixup
	case KindInvalidModuleOrdinal:
		return ErrInvalidModuleOrdinal
	case KindImplausibleCount:
		return ErrImplausibleCount
	case KindUnknownContainer:
		return ErrUnknownContainer
	default:
		return errors.New("unknown decode error")
	}
}

// DecodeError is the error type every decoder returns on the first
// structural problem it hits. It carries the byte offset at which the
// problem was observed, per §7 ("Errors carry a byte offset").
type DecodeError struct {
	Kind   Kind
	Offset int64
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s at offset 0x%x: %s", e.Kind, e.Offset, e.Detail)
	}
	return fmt.Sprintf("%s at offset 0x%x", e.Kind, e.Offset)
}

// Unwrap exposes the sentinel error for the Kind so callers can use
// errors.Is(err, ErrInvalidFixup) without caring about the offset/detail.
func (e *DecodeError) Unwrap() error {
	return sentinelFor(e.Kind)
}

// newDecodeError builds a DecodeError, optionally formatting a detail string.
func newDecodeError(kind Kind, offset int64, format string, args ...interface{}) *DecodeError {
	d := &DecodeError{Kind: kind, Offset: offset}
	if format != "" {
		d.Detail = fmt.Sprintf(format, args...)
	}
	return d
}
