package stegapy

import (
	"bytes"
	"compress/gzip"
	"io"
)

// gzipMagic is the RFC 1952 two-byte prefix checked before attempting to
// decompress, so a pipeline mismatch surfaces as CORRUPT_DATA instead of a
// deflate parse error deep inside the reader.
var gzipMagic = []byte{0x1F, 0x8B}

func compressPayload(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressPayload(data []byte) ([]byte, error) {
	if len(data) < 2 || !bytes.Equal(data[:2], gzipMagic) {
		return nil, NewError(KindCorruptData, Namespace,
			"payload is not a gzip stream; compression settings likely differ from the embedding side")
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, WrapError(KindCorruptData, Namespace, "gzip stream rejected", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, WrapError(KindCorruptData, Namespace, "gzip decompression failed", err)
	}
	return out, nil
}
