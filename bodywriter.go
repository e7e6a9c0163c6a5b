package gorestx

import (
	"fmt"
	"io"

	"github.com/restxlabs/gorestx/chunkx"
)

const defaultChunkSize = 65535

// writeRequestBody transmits a request body over the connection. A
// known size means the declared Content-Length governs the boundary
// and the source must produce exactly that many bytes; an unknown
// size (negative) means chunked transfer framing terminated by a
// zero-length chunk.
func writeRequestBody(conn RestConn, body chunkx.Source, size int64, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	if size < 0 {
		return writeChunkedBody(conn, body, chunkSize)
	}
	return writeSizedBody(conn, body, size, chunkSize)
}

func writeSizedBody(conn RestConn, body chunkx.Source, size int64, chunkSize int) error {
	var written int64
	for {
		chunk, err := body.Next(chunkSize)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			continue
		}

		// Bytes past the declared Content-Length would be parsed as
		// the start of the next request, so stop before writing them.
		if written+int64(len(chunk)) > size {
			return &BodySizeError{
				Declared: size,
				Produced: written + int64(len(chunk)),
			}
		}

		if err := conn.WriteBody(chunk); err != nil {
			return err
		}
		written += int64(len(chunk))
	}

	if written != size {
		return &BodySizeError{
			Declared: size,
			Produced: written,
		}
	}
	return nil
}

func writeChunkedBody(conn RestConn, body chunkx.Source, chunkSize int) error {
	for {
		chunk, err := body.Next(chunkSize)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			// A zero-length chunk would terminate the body early.
			continue
		}

		if err := conn.WriteBody([]byte(fmt.Sprintf("%x\r\n", len(chunk)))); err != nil {
			return err
		}
		if err := conn.WriteBody(chunk); err != nil {
			return err
		}
		if err := conn.WriteBody([]byte("\r\n")); err != nil {
			return err
		}
	}

	return conn.WriteBody([]byte("0\r\n\r\n"))
}
