package catalog

import (
	"regexp"
	"strings"
)

// Redis key namespace. The layout is shared with the index maintenance
// scripts and must stay bit-exact with any data already in the store.
//
//	product:<id>                    hash    entity fields
//	idx:all                         set     global membership
//	idx:category:<norm>             set     category membership
//	idx:category:in:<norm>          set     in-stock bucket
//	idx:category:out:<norm>         set     out-of-stock bucket
//	zidx:category:<norm>            zset    pagination order (score 0)
//	zidx:category:in:<norm>         zset
//	zidx:category:out:<norm>        zset
//	idx:nk:product                  hash    natural-key -> id
//	ver:product:<id>                counter entity version
//	ver:category:<norm>             counter category version
//	ver:category:in:<norm>          counter in-stock bucket version
//	ver:category:out:<norm>         counter out-of-stock bucket version

// DefaultCategory is the sentinel used when a category is absent or blank.
const DefaultCategory = "uncategorized"

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeCategory produces the canonical category form used in keys:
// trimmed, lower-cased, internal whitespace collapsed to a single hyphen.
// Blank input maps to DefaultCategory. Lowering is ASCII-only to match the
// Lua norm() in the index scripts, which derives the same form in-store
// with string.lower.
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultCategory
	}
	return whitespaceRun.ReplaceAllString(asciiLower(s), "-")
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func keyProduct(id string) string { return "product:" + id }

func keyIdxAll() string { return "idx:all" }

func keyIdxCategory(norm string) string         { return "idx:category:" + norm }
func keyIdxCategoryIn(norm string) string       { return "idx:category:in:" + norm }
func keyIdxCategoryOut(norm string) string      { return "idx:category:out:" + norm }
func keyZidxCategory(norm string) string        { return "zidx:category:" + norm }
func keyZidxCategoryIn(norm string) string      { return "zidx:category:in:" + norm }
func keyZidxCategoryOut(norm string) string     { return "zidx:category:out:" + norm }

func keyNaturalKeyRegistry() string { return "idx:nk:product" }

func keyVerProduct(id string) string        { return "ver:product:" + id }
func keyVerCategory(norm string) string     { return "ver:category:" + norm }
func keyVerCategoryIn(norm string) string   { return "ver:category:in:" + norm }
func keyVerCategoryOut(norm string) string  { return "ver:category:out:" + norm }
