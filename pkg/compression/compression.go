// Package compression encodes and decodes KENUTS bodies for the optional
// Content-Encoding negotiation between client and server.
package compression

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io"
	"strings"

	"github.com/WhileEndless/go-kenuts/pkg/errors"
	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// CompressionType represents supported compression algorithms
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionGzip
	CompressionDeflate
	CompressionBrotli
	CompressionZstd
)

// Preference is the order in which encodings are offered and chosen
var Preference = []CompressionType{CompressionBrotli, CompressionGzip, CompressionZstd, CompressionDeflate}

// DetectCompression detects compression type from a Content-Encoding value.
// Supports: gzip, x-gzip, deflate, br, brotli, zstd, identity
func DetectCompression(contentEncoding string) CompressionType {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		return CompressionGzip
	case "deflate", "x-deflate":
		return CompressionDeflate
	case "br", "brotli":
		return CompressionBrotli
	case "zstd", "zstandard":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// String converts a CompressionType to its Content-Encoding token
func (ct CompressionType) String() string {
	switch ct {
	case CompressionGzip:
		return "gzip"
	case CompressionDeflate:
		return "deflate"
	case CompressionBrotli:
		return "br"
	case CompressionZstd:
		return "zstd"
	default:
		return ""
	}
}

// IsSupported checks if a Content-Encoding value is supported
func IsSupported(contentEncoding string) bool {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))
	return encoding == "" || encoding == "identity" || DetectCompression(encoding) != CompressionNone
}

// AcceptEncoding renders Preference as an Accept-Encoding header value
func AcceptEncoding() string {
	tokens := make([]string, 0, len(Preference))
	for _, ct := range Preference {
		tokens = append(tokens, ct.String())
	}
	return strings.Join(tokens, ", ")
}

// Negotiate picks the preferred encoding among those listed in an Accept-Encoding value.
// Quality parameters are ignored except q=0, which excludes the token.
func Negotiate(acceptEncoding string) CompressionType {
	offered := make(map[CompressionType]bool)
	for _, part := range strings.Split(acceptEncoding, ",") {
		token, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if q := strings.ReplaceAll(params, " ", ""); q == "q=0" || q == "q=0.0" {
			continue
		}
		if ct := DetectCompression(token); ct != CompressionNone {
			offered[ct] = true
		}
	}

	for _, ct := range Preference {
		if offered[ct] {
			return ct
		}
	}
	return CompressionNone
}

// Decompress decompresses data based on the compression type
func Decompress(data []byte, compressionType CompressionType) ([]byte, error) {
	if len(data) == 0 || compressionType == CompressionNone {
		return data, nil
	}

	reader, err := NewDecompressReader(bytes.NewReader(data), compressionType)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewError(errors.ErrorTypeCompressionError,
			"failed to decompress "+compressionType.String()+" data: "+err.Error(), "decompress", data)
	}
	return decompressed, nil
}

// Compress compresses data using the specified algorithm
func Compress(data []byte, compressionType CompressionType) ([]byte, error) {
	if compressionType == CompressionNone {
		return data, nil
	}

	var buf bytes.Buffer
	writer, err := NewCompressWriter(&buf, compressionType)
	if err != nil {
		return nil, err
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, errors.NewError(errors.ErrorTypeCompressionError,
			"failed to compress "+compressionType.String()+" data: "+err.Error(), "compress", nil)
	}
	if err := writer.Close(); err != nil {
		return nil, errors.NewError(errors.ErrorTypeCompressionError,
			"failed to finish "+compressionType.String()+" stream: "+err.Error(), "compress", nil)
	}
	return buf.Bytes(), nil
}

// NewDecompressReader creates a streaming decompression reader.
// Returns the original reader unchanged if compressionType is CompressionNone
func NewDecompressReader(r io.Reader, compressionType CompressionType) (io.ReadCloser, error) {
	switch compressionType {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		reader, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.NewError(errors.ErrorTypeCompressionError,
				"failed to create gzip reader: "+err.Error(), "newDecompressReader", nil)
		}
		return reader, nil
	case CompressionDeflate:
		return flate.NewReader(r), nil
	case CompressionBrotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	case CompressionZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.NewError(errors.ErrorTypeCompressionError,
				"failed to create zstd reader: "+err.Error(), "newDecompressReader", nil)
		}
		return decoder.IOReadCloser(), nil
	default:
		return nil, errors.NewError(errors.ErrorTypeCompressionError,
			"unsupported compression type", "newDecompressReader", nil)
	}
}

// NewCompressWriter creates a streaming compression writer.
// Always call Close() when done to flush and finalize the stream
func NewCompressWriter(w io.Writer, compressionType CompressionType) (io.WriteCloser, error) {
	switch compressionType {
	case CompressionNone:
		return nopCloserWriter{w}, nil
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionDeflate:
		writer, err := flate.NewWriter(w, flate.DefaultCompression)
		if err != nil {
			return nil, errors.NewError(errors.ErrorTypeCompressionError,
				"failed to create deflate writer: "+err.Error(), "newCompressWriter", nil)
		}
		return writer, nil
	case CompressionBrotli:
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(w)
		if err != nil {
			return nil, errors.NewError(errors.ErrorTypeCompressionError,
				"failed to create zstd writer: "+err.Error(), "newCompressWriter", nil)
		}
		return encoder, nil
	default:
		return nil, errors.NewError(errors.ErrorTypeCompressionError,
			"unsupported compression type", "newCompressWriter", nil)
	}
}

type nopCloserWriter struct {
	io.Writer
}

func (nopCloserWriter) Close() error { return nil }
