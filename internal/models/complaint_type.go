package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubType is one entry of a complaint type's taxonomy. Keys are assigned
// once and never reused or renumbered; removing a subtype only retires it,
// so a stored key always resolves to the sub-issue it was filed under.
type SubType struct {
	Key     int    `bson:"key" json:"key"`
	Name    string `bson:"name" json:"name"`
	Retired bool   `bson:"retired,omitempty" json:"retired,omitempty"`
}

// ComplaintType is the first level of the complaint taxonomy.
type ComplaintType struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	DepartmentID *primitive.ObjectID `bson:"department,omitempty" json:"department,omitempty"`
	SubTypes     []SubType           `bson:"subTypes" json:"subTypes"`
	CreatedBy    *primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedBy    *primitive.ObjectID `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// NewSubTypes assigns keys 0..n-1 in list order, skipping blank names.
func NewSubTypes(names []string) []SubType {
	out := make([]SubType, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, SubType{Key: len(out), Name: n})
	}
	return out
}

// SubType returns the subtype with the given key, including retired ones.
func (t *ComplaintType) SubType(key int) (SubType, bool) {
	for _, st := range t.SubTypes {
		if st.Key == key {
			return st, true
		}
	}
	return SubType{}, false
}

// ActiveSubType returns the subtype with the given key unless it is retired.
func (t *ComplaintType) ActiveSubType(key int) (SubType, bool) {
	st, ok := t.SubType(key)
	if !ok || st.Retired {
		return SubType{}, false
	}
	return st, true
}

// ActiveSubTypes lists subtypes that can still be filed against.
func (t *ComplaintType) ActiveSubTypes() []SubType {
	out := make([]SubType, 0, len(t.SubTypes))
	for _, st := range t.SubTypes {
		if !st.Retired {
			out = append(out, st)
		}
	}
	return out
}

// NextSubTypeKey is one past the highest key ever assigned.
func (t *ComplaintType) NextSubTypeKey() int {
	next := 0
	for _, st := range t.SubTypes {
		if st.Key >= next {
			next = st.Key + 1
		}
	}
	return next
}

// AppendSubType adds a new subtype with a fresh key and returns it.
func (t *ComplaintType) AppendSubType(name string) SubType {
	st := SubType{Key: t.NextSubTypeKey(), Name: strings.TrimSpace(name)}
	t.SubTypes = append(t.SubTypes, st)
	return st
}

// RetireSubType marks key as retired. It reports false if key is unknown.
func (t *ComplaintType) RetireSubType(key int) bool {
	for i := range t.SubTypes {
		if t.SubTypes[i].Key == key {
			t.SubTypes[i].Retired = true
			return true
		}
	}
	return false
}
