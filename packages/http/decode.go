package http

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// SupportedEncodings is advertised when a transfer asks for every encoding
const SupportedEncodings = "gzip, deflate, zstd"

// decodeBody undoes a Content-Encoding header value. Codings are listed in the
// order they were applied, so they are removed from last to first.
func decodeBody(data []byte, contentEncoding string) ([]byte, error) {
	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))

		var err error
		switch coding {
		case "", "identity":
			continue
		case "gzip", "x-gzip":
			data, err = decodeGzip(data)
		case "deflate":
			data, err = decodeDeflate(data)
		case "zstd":
			data, err = decodeZstd(data)
		default:
			return nil, newTransportError(CodeBadContentEncoding, nil, "Unrecognized content encoding type: %s", coding)
		}
		if err != nil {
			return nil, newTransportError(CodeBadContentEncoding, err, "Error while processing content unencoding: %v", err)
		}
	}
	return data, nil
}

func decodeGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// decodeDeflate accepts both zlib-wrapped and raw deflate streams, servers
// send either under the same name.
func decodeDeflate(data []byte) ([]byte, error) {
	if r, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
		defer r.Close()
		if out, err := io.ReadAll(r); err == nil {
			return out, nil
		}
	}

	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return out, nil
}

func decodeZstd(data []byte) ([]byte, error) {
	d, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.DecodeAll(data, nil)
}
