package respcache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"

	"github.com/zeywox/veyronix-core/pkg/catalog"
)

// Encoded is a payload after the encoding pipeline: canonical serialized
// bytes, their gzip form, and a weak content hash usable as a fallback
// validator. The hash is collision-tolerant change detection, not integrity.
type Encoded struct {
	Raw      []byte
	Gzipped  []byte
	WeakHash string
}

// EncodeProduct serializes and compresses a single product.
func EncodeProduct(p catalog.Product) (Encoded, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Encoded{}, fmt.Errorf("serialize product: %w", err)
	}
	return finishEncode(raw)
}

// EncodeList serializes and compresses a product page. A nil slice encodes
// as an empty JSON array so the payload shape is stable.
func EncodeList(products []catalog.Product) (Encoded, error) {
	if products == nil {
		products = []catalog.Product{}
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return Encoded{}, fmt.Errorf("serialize list: %w", err)
	}
	return finishEncode(raw)
}

func finishEncode(raw []byte) (Encoded, error) {
	gz, err := Gzip(raw)
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{Raw: raw, Gzipped: gz, WeakHash: WeakHash(raw)}, nil
}

// WeakHash computes the weak validator for a raw payload:
// W/"<xxhash64 hex>".
func WeakHash(raw []byte) string {
	return fmt.Sprintf("W/%q", fmt.Sprintf("%x", xxhash.Sum64(raw)))
}

// Gzip compresses a byte stream.
func Gzip(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Gunzip decompresses a byte stream, for clients that do not accept gzip.
func Gunzip(gz []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(gz))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	return raw, nil
}
