package respcache

import (
	"context"
	"strconv"
	"time"

	"github.com/zeywox/veyronix-core/pkg/catalog"
)

// Meta carries the validators and content metadata of a cached response.
type Meta struct {
	// ETag is the entry's validator: the version-counter text for the
	// queried scope when one exists, otherwise the weak content hash.
	ETag string

	// LastModified is when the entry was computed.
	LastModified time.Time

	// ContentType of the decoded body.
	ContentType string
}

// Entry is one cached response: the compressed body plus metadata.
// Immutable once constructed; refresh replaces it wholesale.
type Entry struct {
	// Body is the gzipped payload.
	Body []byte

	Meta Meta
}

// Weight is the entry's cache cost: the compressed body size.
func (e *Entry) Weight() int64 { return int64(len(e.Body)) }

// ListQuery describes one distinct list cache key: the query shape plus the
// fetch used to (re)compute its payload. Created once per key on first
// observation and retained to support later refreshes.
type ListQuery struct {
	Category string
	InStock  *bool
	Page     int
	Size     int
	Fetch    func(ctx context.Context) ([]catalog.Product, error)
}

// CacheKey derives the deterministic cache key for a list query shape.
func (q *ListQuery) CacheKey() string {
	key := "products:category=" + q.Category
	if q.InStock != nil {
		if *q.InStock {
			key += ":inStock=true"
		} else {
			key += ":inStock=false"
		}
	}
	return key + ":page=" + strconv.Itoa(q.Page) + ":size=" + strconv.Itoa(q.Size)
}
