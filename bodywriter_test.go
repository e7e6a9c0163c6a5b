package gorestx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restxlabs/gorestx/chunkx"
)

func TestWriteSizedBodyChunkBoundaries(t *testing.T) {
	var frames [][]byte
	conn := &RestConnMock{
		WriteBodyFunc: func(chunk []byte) error {
			frames = append(frames, bytes.Clone(chunk))
			return nil
		},
	}

	payload := []byte("0123456789")
	err := writeRequestBody(conn, chunkx.Bytes(payload), int64(len(payload)), 4)
	require.NoError(t, err)

	require.Len(t, frames, 3)
	assert.Equal(t, "0123", string(frames[0]))
	assert.Equal(t, "4567", string(frames[1]))
	assert.Equal(t, "89", string(frames[2]))
}

func TestWriteSizedBodyShortSource(t *testing.T) {
	conn := &RestConnMock{}

	err := writeRequestBody(conn, chunkx.Bytes([]byte("abc")), 5, 4)
	require.Error(t, err)

	var sizeErr *BodySizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, int64(5), sizeErr.Declared)
	assert.Equal(t, int64(3), sizeErr.Produced)
}

func TestWriteSizedBodyOversizedSource(t *testing.T) {
	var wire bytes.Buffer
	conn := &RestConnMock{
		WriteBodyFunc: func(chunk []byte) error {
			wire.Write(chunk)
			return nil
		},
	}

	err := writeRequestBody(conn, chunkx.Bytes([]byte("abcdefgh")), 5, 4)
	require.Error(t, err)

	var sizeErr *BodySizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, int64(5), sizeErr.Declared)
	assert.Equal(t, int64(8), sizeErr.Produced)

	// Nothing past the declared length reaches the wire.
	assert.Equal(t, "abcd", wire.String())
}

func TestWriteChunkedBodyFraming(t *testing.T) {
	var wire bytes.Buffer
	conn := &RestConnMock{
		WriteBodyFunc: func(chunk []byte) error {
			wire.Write(chunk)
			return nil
		},
	}

	err := writeRequestBody(conn, chunkx.Bytes([]byte("abcdefghij")), -1, 4)
	require.NoError(t, err)

	assert.Equal(t, "4\r\nabcd\r\n4\r\nefgh\r\n2\r\nij\r\n0\r\n\r\n", wire.String())
}

func TestWriteChunkedBodyEmptySource(t *testing.T) {
	var wire bytes.Buffer
	conn := &RestConnMock{
		WriteBodyFunc: func(chunk []byte) error {
			wire.Write(chunk)
			return nil
		},
	}

	err := writeRequestBody(conn, chunkx.Bytes(nil), -1, 4)
	require.NoError(t, err)

	// Only the terminator goes out.
	assert.Equal(t, "0\r\n\r\n", wire.String())
}

func TestWriteRequestBodyDefaultChunkSize(t *testing.T) {
	payload := make([]byte, defaultChunkSize+1)

	var frames [][]byte
	conn := &RestConnMock{
		WriteBodyFunc: func(chunk []byte) error {
			frames = append(frames, bytes.Clone(chunk))
			return nil
		},
	}

	err := writeRequestBody(conn, chunkx.Bytes(payload), int64(len(payload)), 0)
	require.NoError(t, err)

	require.Len(t, frames, 2)
	assert.Len(t, frames[0], defaultChunkSize)
	assert.Len(t, frames[1], 1)
}
