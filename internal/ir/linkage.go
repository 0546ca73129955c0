package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Linkage is the data member of a relationship.
//
// The zero value is an absent linkage: the relationship was sent without a
// data member (a links-only stub). A present linkage is either null, a
// single resource (to-one) or an ordered array of resources (to-many).
type Linkage struct {
	present bool
	many    bool
	one     *Resource
	items   []*Resource
}

// NullLinkage returns a present, empty to-one linkage.
func NullLinkage() Linkage {
	return Linkage{present: true}
}

// ToOneLinkage returns a to-one linkage. A nil resource yields NullLinkage.
func ToOneLinkage(r *Resource) Linkage {
	return Linkage{present: true, one: r}
}

// ToManyLinkage returns a to-many linkage preserving the order of items.
func ToManyLinkage(items []*Resource) Linkage {
	if items == nil {
		items = []*Resource{}
	}
	return Linkage{present: true, many: true, items: items}
}

// Present reports whether the data member exists.
func (l Linkage) Present() bool { return l.present }

// IsNull reports whether the linkage is an explicit null.
func (l Linkage) IsNull() bool { return l.present && !l.many && l.one == nil }

// IsMany reports whether the linkage is an array.
func (l Linkage) IsMany() bool { return l.many }

// One returns the to-one resource, or nil.
func (l Linkage) One() *Resource { return l.one }

// Items returns the to-many resources in order. For a to-one linkage it
// returns a single-element slice, for null or absent it returns nil.
func (l Linkage) Items() []*Resource {
	if l.many {
		return l.items
	}
	if l.one != nil {
		return []*Resource{l.one}
	}
	return nil
}

// MarshalJSON implements json.Marshaler for Linkage.
func (l Linkage) MarshalJSON() ([]byte, error) {
	switch {
	case l.many:
		return json.Marshal(l.items)
	case l.one != nil:
		return json.Marshal(l.one)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler for Linkage.
func (l *Linkage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty linkage")
	}

	switch data[0] {
	case 'n':
		*l = NullLinkage()
		return nil
	case '[':
		var items []*Resource
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = ToManyLinkage(items)
		return nil
	case '{':
		var r Resource
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		*l = ToOneLinkage(&r)
		return nil
	default:
		return fmt.Errorf("linkage must be null, an object or an array: %s", string(data))
	}
}
