package http

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainBody = "the quick brown fox jumps over the lazy dog"

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zlibBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func flateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func TestDecodeBody(t *testing.T) {
	plain := []byte(plainBody)

	tests := []struct {
		name     string
		data     []byte
		encoding string
	}{
		{name: "no encoding", data: plain, encoding: ""},
		{name: "identity", data: plain, encoding: "identity"},
		{name: "gzip", data: gzipBytes(t, plain), encoding: "gzip"},
		{name: "x-gzip upper case", data: gzipBytes(t, plain), encoding: "X-GZIP"},
		{name: "deflate zlib wrapped", data: zlibBytes(t, plain), encoding: "deflate"},
		{name: "deflate raw", data: flateBytes(t, plain), encoding: "deflate"},
		{name: "zstd", data: zstdBytes(t, plain), encoding: "zstd"},
		{name: "stacked codings", data: gzipBytes(t, zstdBytes(t, plain)), encoding: "zstd, gzip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := decodeBody(tt.data, tt.encoding)
			require.NoError(t, err)
			assert.Equal(t, plainBody, string(out))
		})
	}
}

func TestDecodeBody_Errors(t *testing.T) {
	_, err := decodeBody([]byte("x"), "br")

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, CodeBadContentEncoding, te.Code)
	assert.Contains(t, te.Message, "br")

	_, err = decodeBody([]byte("definitely not gzip"), "gzip")
	require.True(t, errors.As(err, &te))
	assert.Equal(t, CodeBadContentEncoding, te.Code)
}
