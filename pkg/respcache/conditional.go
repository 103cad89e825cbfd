package respcache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// WeakETagEqual compares two entity tags under weak comparison: a leading
// "W/" marker on either side is ignored, the rest must match exactly.
func WeakETagEqual(a, b string) bool {
	return strings.TrimPrefix(a, "W/") == strings.TrimPrefix(b, "W/")
}

// AnyWeakMatch reports whether any candidate in a comma-separated
// If-None-Match value weakly matches the entry tag.
func AnyWeakMatch(ifNoneMatch, tag string) bool {
	if ifNoneMatch == "" || tag == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		if WeakETagEqual(strings.TrimSpace(candidate), tag) {
			return true
		}
	}
	return false
}

// IsNotModified evaluates inbound validators against an entry's metadata:
// any weakly matching entity tag, or an If-Modified-Since timestamp not
// earlier than the entry's last modification.
func IsNotModified(r *http.Request, meta Meta) bool {
	if AnyWeakMatch(r.Header.Get("If-None-Match"), meta.ETag) {
		return true
	}
	if ims := strings.TrimSpace(r.Header.Get("If-Modified-Since")); ims != "" {
		if t, err := http.ParseTime(ims); err == nil {
			// HTTP dates have second precision.
			if !meta.LastModified.Truncate(time.Second).After(t) {
				return true
			}
		}
	}
	return false
}

// AcceptsGzip reports whether the client advertised gzip support.
func AcceptsGzip(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Accept-Encoding")), "gzip")
}

// applyCacheHeaders writes the freshness and validator headers shared by
// full and not-modified responses.
func applyCacheHeaders(h http.Header, meta Meta, maxAge time.Duration) {
	h.Set("ETag", meta.ETag)
	h.Set("Last-Modified", meta.LastModified.UTC().Format(http.TimeFormat))
	h.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(maxAge.Seconds())))
	h.Set("Vary", "Accept-Encoding")
}

// WriteNotModified writes a 304 carrying only validator and cache-control
// headers, no body.
func WriteNotModified(w http.ResponseWriter, e *Entry, maxAge time.Duration) {
	applyCacheHeaders(w.Header(), e.Meta, maxAge)
	notModifiedTotal.Inc()
	w.WriteHeader(http.StatusNotModified)
}

// WriteEntry writes the full response. Clients that accept gzip get the
// compressed body as-is; others get the decompressed payload.
func WriteEntry(w http.ResponseWriter, r *http.Request, e *Entry, maxAge time.Duration) error {
	h := w.Header()
	applyCacheHeaders(h, e.Meta, maxAge)
	h.Set("Content-Type", e.Meta.ContentType)

	body := e.Body
	if AcceptsGzip(r) {
		h.Set("Content-Encoding", "gzip")
	} else {
		raw, err := Gunzip(e.Body)
		if err != nil {
			http.Error(w, "encoding failure", http.StatusInternalServerError)
			return err
		}
		body = raw
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(body)
	return err
}
