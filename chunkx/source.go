// Package chunkx provides chunk-at-a-time access to request body
// sources. A Source is the shape the rest client consumes when
// transmitting a body, whether the total size is known up front or not.
package chunkx

import (
	"fmt"
	"io"
)

// Source yields successive byte chunks of a body. Next returns io.EOF
// once the source is exhausted. Returned chunks are only valid until
// the following Next call.
type Source interface {
	// Next returns the next chunk containing at most max bytes.
	Next(max int) ([]byte, error)
}

// Sizer is implemented by sources whose total size is known up front.
// The client uses it to pick Content-Length framing over chunked
// transfer.
type Sizer interface {
	Len() int64
}

type bytesSource struct {
	buf []byte
	off int64
}

var _ Source = (*bytesSource)(nil)
var _ Sizer = (*bytesSource)(nil)
var _ io.Seeker = (*bytesSource)(nil)

// Bytes returns a Source over a byte slice. The source reports its
// length and is seekable, so failed attempts can rewind it.
func Bytes(buf []byte) Source {
	return &bytesSource{buf: buf}
}

// String returns a Source over the bytes of s.
func String(s string) Source {
	return Bytes([]byte(s))
}

func (s *bytesSource) Len() int64 {
	return int64(len(s.buf))
}

func (s *bytesSource) Next(max int) ([]byte, error) {
	if max <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", max)
	}

	if s.off >= int64(len(s.buf)) {
		return nil, io.EOF
	}

	end := s.off + int64(max)
	if end > int64(len(s.buf)) {
		end = int64(len(s.buf))
	}

	chunk := s.buf[s.off:end]
	s.off = end
	return chunk, nil
}

func (s *bytesSource) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += s.off
	case io.SeekEnd:
		offset += int64(len(s.buf))
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}

	if offset < 0 {
		return 0, fmt.Errorf("negative seek position %d", offset)
	}

	s.off = offset
	return offset, nil
}

type readerSource struct {
	rdr io.Reader
	buf []byte
}

var _ Source = (*readerSource)(nil)

// Reader returns a Source that chunks an arbitrary io.Reader. The
// source has no determinable size; if the reader is seekable the
// returned source is too, which lets failed attempts rewind it.
func Reader(rdr io.Reader) Source {
	if _, ok := rdr.(io.Seeker); ok {
		return &seekableReaderSource{readerSource{rdr: rdr}}
	}
	return &readerSource{rdr: rdr}
}

func (s *readerSource) Next(max int) ([]byte, error) {
	if max <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", max)
	}

	if cap(s.buf) < max {
		s.buf = make([]byte, max)
	}

	n, err := io.ReadFull(s.rdr, s.buf[:max])
	if n > 0 {
		// A short final read is still a valid chunk, EOF comes out on
		// the next call.
		return s.buf[:n], nil
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return nil, err
}

type seekableReaderSource struct {
	readerSource
}

var _ io.Seeker = (*seekableReaderSource)(nil)

func (s *seekableReaderSource) Seek(offset int64, whence int) (int64, error) {
	return s.rdr.(io.Seeker).Seek(offset, whence)
}
