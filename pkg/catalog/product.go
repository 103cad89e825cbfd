// Package catalog implements the catalog entity store on Redis: the product
// model, the atomic index-maintenance transactions, the version counters used
// for cheap change detection, and the natural-key registry that assigns
// stable surrogate ids.
package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// canonicalPrice matches the stored price form: digits with an optional
// two-digit fraction. Anything else in the hash is treated as absent.
var canonicalPrice = regexp.MustCompile(`^\d+(?:\.\d{2})?$`)

// Product is the catalog entity. ID is immutable once assigned.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       *float64 `json:"price"`
	Description string   `json:"description"`
	Stock       int      `json:"stock"`
}

// RoundPrice normalizes a price to at most two fractional digits, rounded
// half-up on the shortest decimal representation. Rounding the binary float
// directly would misplace values like 9.995, whose float64 form sits just
// below the halfway point. Idempotent.
func RoundPrice(v float64) float64 {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	for len(frac) < 3 {
		frac += "0"
	}
	cents, err := strconv.ParseInt(intPart+frac[:2], 10, 64)
	if err != nil {
		return v
	}
	if frac[2] >= '5' {
		cents++
	}
	r := float64(cents) / 100
	if neg {
		r = -r
	}
	return r
}

// FormatPrice renders a price in the canonical stored form ("10.00").
func FormatPrice(v float64) string {
	return strconv.FormatFloat(RoundPrice(v), 'f', 2, 64)
}

// FromRedis builds a Product from a stored hash. Field coercion is lenient:
// blank names become empty, a blank category falls back to the sentinel,
// a non-canonical price is dropped, unparsable stock becomes 0.
func FromRedis(m map[string]string) Product {
	p := Product{
		ID:          m["id"],
		Name:        strings.TrimSpace(m["name"]),
		Category:    strings.TrimSpace(m["category"]),
		Description: m["description"],
	}
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	if s := strings.TrimSpace(m["price"]); canonicalPrice.MatchString(s) {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			p.Price = &v
		}
	}
	if n, err := strconv.Atoi(strings.TrimSpace(m["stock"])); err == nil && n >= 0 {
		p.Stock = n
	}
	return p
}

// ToRedis renders the full stored field set for the product hash.
func (p Product) ToRedis() map[string]string {
	price := ""
	if p.Price != nil {
		price = FormatPrice(*p.Price)
	}
	return map[string]string{
		"id":          p.ID,
		"name":        p.Name,
		"category":    p.Category,
		"price":       price,
		"description": p.Description,
		"stock":       strconv.Itoa(p.Stock),
	}
}

// redisFieldOrder fixes the field/value pair order handed to the upsert
// script so transactions are reproducible.
var redisFieldOrder = []string{"id", "name", "category", "price", "description", "stock"}

// toRedisPairs flattens the stored field set into alternating field/value
// script arguments.
func (p Product) toRedisPairs() []string {
	m := p.ToRedis()
	pairs := make([]string, 0, len(redisFieldOrder)*2)
	for _, f := range redisFieldOrder {
		pairs = append(pairs, f, m[f])
	}
	return pairs
}

// InStock reports which stock bucket the product belongs to.
func (p Product) InStock() bool { return p.Stock > 0 }
