// Package cache stores parsed record buffers in an lz4 frame so later passes skip text parsing
package cache

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/neurlang/fwlearn/feature"
)

const (
	// MagicNumber identifies record caches (ASCII: "FWRC")
	MagicNumber = 0x46575243
	// Version is the current cache format version
	Version = 1

	// records longer than this are treated as corruption
	maxRecordLen = 1 << 26
)

var (
	ErrInvalidMagic   = errors.New("invalid cache magic number")
	ErrInvalidVersion = errors.New("unsupported cache version")
	ErrNamespaces     = errors.New("cache built for a different namespace map")
	ErrCorrupt        = errors.New("corrupt record cache")
)

type header struct {
	Magic      uint32
	Version    uint32
	Namespaces uint32
}

// Writer appends records to a cache
type Writer struct {
	zw  *lz4.Writer
	bw  *bufio.Writer
	buf []byte
}

// NewWriter starts a cache for records with the given number of namespaces.
// Close must be called to flush the frame, it does not close w.
func NewWriter(w io.Writer, namespaces int) (*Writer, error) {
	var zw = lz4.NewWriter(w)
	if err := zw.Apply(lz4.CompressionLevelOption(lz4.Fast)); err != nil {
		return nil, err
	}
	var cw = &Writer{zw: zw, bw: bufio.NewWriterSize(zw, 1<<16)}
	var h = header{Magic: MagicNumber, Version: Version, Namespaces: uint32(namespaces)}
	if err := binary.Write(cw.bw, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	return cw, nil
}

// Write appends one record
func (w *Writer) Write(r feature.Record) error {
	w.buf = binary.LittleEndian.AppendUint32(w.buf[:0], uint32(len(r)))
	for _, v := range r {
		w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	}
	_, err := w.bw.Write(w.buf)
	return err
}

// Close flushes the buffered records and the lz4 frame
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		return err
	}
	return w.zw.Close()
}

// Reader returns the records of a cache in the order they were written
type Reader struct {
	br     *bufio.Reader
	buf    []byte
	record feature.Record
}

// NewReader opens a cache holding records with the given number of namespaces
func NewReader(r io.Reader, namespaces int) (*Reader, error) {
	var cr = &Reader{br: bufio.NewReaderSize(lz4.NewReader(r), 1<<16)}
	var h header
	if err := binary.Read(cr.br, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if h.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVersion, h.Version)
	}
	if int(h.Namespaces) != namespaces {
		return nil, fmt.Errorf("%w: cache has %d namespaces, map has %d", ErrNamespaces, h.Namespaces, namespaces)
	}
	return cr, nil
}

// Next returns the next record, or io.EOF after the last one. The record
// is reused by the following call.
func (r *Reader) Next() (feature.Record, error) {
	var lenBytes [4]byte
	if _, err := io.ReadFull(r.br, lenBytes[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	var n = binary.LittleEndian.Uint32(lenBytes[:])
	if n > maxRecordLen {
		return nil, fmt.Errorf("%w: record length %d", ErrCorrupt, n)
	}
	if cap(r.buf) < int(4*n) {
		r.buf = make([]byte, 4*n)
	}
	r.buf = r.buf[:4*n]
	if _, err := io.ReadFull(r.br, r.buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	r.record = r.record[:0]
	for i := 0; i < len(r.buf); i += 4 {
		r.record = append(r.record, binary.LittleEndian.Uint32(r.buf[i:]))
	}
	return r.record, nil
}
