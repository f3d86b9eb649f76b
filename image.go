// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package legacyexe decodes the MZ, NE, LE, and LX legacy executable
// container formats, extracting segments/objects, relocations, imports,
// exports, and entry points for disassemblers, reverse-engineering tools,
// and format-conversion pipelines. It is read-only: nothing here modifies,
// relocates, or executes an image.
package legacyexe

import (
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/saferwall/legacyexe/log"
)

// Hard ceilings on table sizes (§5), defending against hostile headers
// demanding implausible allocations.
const (
	MaxDefaultObjectCount      = 0xFFFF   // object/segment count ceiling
	MaxDefaultPageCount        = 1 << 20  // object page map ceiling
	MaxDefaultFixupRecordCount = 1 << 24  // fixup record ceiling
)

// TinyImageSize is the smallest buffer that could possibly hold a valid MZ
// header.
const TinyImageSize = 64

// Options configures a decode, mirroring the teacher's pe.Options shape.
type Options struct {
	// Fast parses only the container header, skipping every table (§1.3).
	Fast bool

	// MaxObjectCount bounds NE segment / LX-LE object counts, by default
	// MaxDefaultObjectCount.
	MaxObjectCount uint32

	// MaxPageCount bounds the LE/LX object page map, by default
	// MaxDefaultPageCount.
	MaxPageCount uint32

	// MaxFixupRecordCount bounds the LE/LX fixup record stream, by default
	// MaxDefaultFixupRecordCount.
	MaxFixupRecordCount uint32

	// Logger is a custom logger; defaults to a stdout logger filtered to
	// LevelError.
	Logger log.Logger
}

func (o *Options) withDefaults() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.MaxObjectCount == 0 {
		out.MaxObjectCount = MaxDefaultObjectCount
	}
	if out.MaxPageCount == 0 {
		out.MaxPageCount = MaxDefaultPageCount
	}
	if out.MaxFixupRecordCount == 0 {
		out.MaxFixupRecordCount = MaxDefaultFixupRecordCount
	}
	return &out
}

func (o Options) helper() *log.Helper {
	if o.Logger == nil {
		return log.NewHelper(log.NewFilter(log.NewStdLogger(os.Stdout), log.FilterLevel(log.LevelError)))
	}
	return log.NewHelper(o.Logger)
}

// checkCount enforces the object/segment §5 hard ceiling, failing with
// ImplausibleCount.
func (o Options) checkCount(n int, what string) error {
	return o.checkCountAgainst(n, o.MaxObjectCount, what)
}

// checkCountAgainst enforces an arbitrary §5 hard ceiling, used where the
// relevant table (page map, fixup record stream) isn't bounded by
// MaxObjectCount.
func (o Options) checkCountAgainst(n int, max uint32, what string) error {
	if n < 0 || uint32(n) > max {
		return newDecodeError(KindImplausibleCount, 0, "%s count %d exceeds ceiling %d", what, n, max)
	}
	return nil
}

// Image is the top-level decode result (C9): the detected container plus
// whichever table family it dispatched to. At most one of NE or LX is
// populated, selected by Container.Kind; a plain MZ image populates neither.
type Image struct {
	Container Container
	NE        *NeLayout
	LX        *LxLayout

	logger *log.Helper
	closer closerFunc
}

// closerFunc releases resources acquired by Open.
type closerFunc func() error

// Open memory-maps the named file and decodes it.
func Open(name string, opts *Options) (*Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	img, err := parse(data, opts)
	if err != nil {
		_ = data.Unmap()
		f.Close()
		return nil, err
	}
	img.closer = func() error {
		if uerr := data.Unmap(); uerr != nil {
			return uerr
		}
		return f.Close()
	}
	return img, nil
}

// NewBytes decodes an in-memory buffer.
func NewBytes(data []byte, opts *Options) (*Image, error) {
	return parse(data, opts)
}

// NewReader drains r into memory and decodes it. Unlike Open it never
// mmaps, so it works against any io.Reader — a network stream, an
// archive member, stdin — at the cost of buffering the whole image.
func NewReader(r io.Reader, opts *Options) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return parse(data, opts)
}

func parse(data []byte, opts *Options) (*Image, error) {
	o := opts.withDefaults()
	src := newSliceSource(data)

	container, err := dispatch(src)
	if err != nil {
		return nil, err
	}

	img := &Image{Container: container, logger: o.helper()}

	base := container.Base
	switch container.Kind {
	case KindMZ:
		// No inner header: nothing further to decode.
	case KindNE:
		layout, err := readNeLayout(src, base, *o)
		if err != nil {
			return nil, err
		}
		img.NE = &layout
	case KindLE, KindLX:
		layout, err := readLxLayout(src, base, container.Kind, *o)
		if err != nil {
			return nil, err
		}
		img.LX = &layout
	}
	return img, nil
}

// Close releases any resources Open acquired (the mmap and file handle).
// It is a no-op for an Image built with NewBytes.
func (img *Image) Close() error {
	if img.closer == nil {
		return nil
	}
	if err := img.closer(); err != nil {
		img.logger.Errorf("close: %v", err)
		return err
	}
	return nil
}
