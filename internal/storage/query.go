package storage

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const earthRadiusMetres = 6378100.0

// Builder assembles a bson filter from optional conditions. Zero values are
// skipped by the *If helpers so callers can pass request parameters through
// unchanged.
type Builder struct {
	filter bson.M
}

func NewBuilder() *Builder {
	return &Builder{filter: bson.M{}}
}

func (b *Builder) Where(key string, value interface{}) *Builder {
	b.filter[key] = value
	return b
}

// WhereIf sets key only when ok is true.
func (b *Builder) WhereIf(ok bool, key string, value interface{}) *Builder {
	if ok {
		b.filter[key] = value
	}
	return b
}

func (b *Builder) WhereIn(key string, values []interface{}) *Builder {
	b.filter[key] = bson.M{"$in": values}
	return b
}

// WhereRegex matches key case-insensitively against the literal text.
func (b *Builder) WhereRegex(key, text string) *Builder {
	if text == "" {
		return b
	}
	b.filter[key] = bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"}
	return b
}

// SearchAny matches text against any of keys.
func (b *Builder) SearchAny(text string, keys ...string) *Builder {
	if text == "" || len(keys) == 0 {
		return b
	}
	or := make(bson.A, 0, len(keys))
	for _, k := range keys {
		or = append(or, bson.M{k: bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"}})
	}
	b.filter["$or"] = or
	return b
}

// Between restricts key to [from, to]; either bound may be nil.
func (b *Builder) Between(key string, from, to *time.Time) *Builder {
	if from == nil && to == nil {
		return b
	}
	cond := bson.M{}
	if from != nil {
		cond["$gte"] = *from
	}
	if to != nil {
		cond["$lte"] = *to
	}
	b.filter[key] = cond
	return b
}

// Near restricts a 2dsphere-indexed key to radius metres around lat/lng.
// $geoWithin is used rather than $nearSphere so the filter also works with
// CountDocuments.
func (b *Builder) Near(key string, lat, lng, radius float64) *Builder {
	b.filter[key] = bson.M{
		"$geoWithin": bson.M{
			"$centerSphere": bson.A{bson.A{lng, lat}, radius / earthRadiusMetres},
		},
	}
	return b
}

func (b *Builder) Build() bson.M {
	return b.filter
}

// Page is a 1-based page request.
type Page struct {
	Page  int64
	Limit int64
}

// Normalize clamps p to sane bounds.
func (p Page) Normalize(def, max int64) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	return p
}

func (p Page) Skip() int64 {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// FindOptions returns skip/limit options sorted by sortKey (descending when
// desc is set).
func (p Page) FindOptions(sortKey string, desc bool) *options.FindOptions {
	dir := 1
	if desc {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: sortKey, Value: dir}, {Key: "_id", Value: dir}})
	if p.Limit > 0 {
		opts.SetSkip(p.Skip()).SetLimit(p.Limit)
	}
	return opts
}

// PagedResult is the envelope returned by list endpoints.
type PagedResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
	Pages int64 `json:"pages"`
}

// NewPagedResult fills in page counts. A nil items slice becomes empty.
func NewPagedResult[T any](items []T, total int64, p Page) PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	var pages int64
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return PagedResult[T]{Items: items, Total: total, Page: p.Page, Limit: p.Limit, Pages: pages}
}
