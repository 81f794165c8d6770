// Package cart owns the shopping cart: identity and merge rules over line
// items, the per-session store that persists them, and the facade the HTTP
// layer mutates them through.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Micevski239/dysnomia-website-sub001/internal/domain"
)

// The functions below never modify the slice they are given. Each returns a
// fresh slice so a previously taken snapshot stays valid.

// Add merges item into items by identity key. An existing row keeps its own
// fields, including its unit price, and only gains quantity. New rows go to
// the end.
func Add(items []domain.LineItem, item domain.LineItem, quantity int) []domain.LineItem {
	out := clone(items)
	if quantity < 1 {
		return out
	}
	key := item.Key()
	for i := range out {
		if out[i].Key() == key {
			out[i].Quantity += quantity
			return out
		}
	}
	item.Quantity = quantity
	return append(out, item)
}

func Remove(items []domain.LineItem, key domain.Key) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		if it.Key() != key {
			out = append(out, it)
		}
	}
	return out
}

// SetQuantity updates the matching row in place. A quantity of zero or less
// removes the row.
func SetQuantity(items []domain.LineItem, key domain.Key, quantity int) []domain.LineItem {
	if quantity <= 0 {
		return Remove(items, key)
	}
	out := clone(items)
	for i := range out {
		if out[i].Key() == key {
			out[i].Quantity = quantity
			break
		}
	}
	return out
}

// Subtract takes the quantities of ordered away from the matching rows of
// items. Rows that reach zero are removed; rows absent from ordered are kept.
func Subtract(items, ordered []domain.LineItem) []domain.LineItem {
	taken := make(map[domain.Key]int, len(ordered))
	for _, it := range ordered {
		taken[it.Key()] += it.Quantity
	}
	out := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		it.Quantity -= taken[it.Key()]
		if it.Quantity > 0 {
			out = append(out, it)
		}
	}
	return out
}

func Find(items []domain.LineItem, key domain.Key) (domain.LineItem, bool) {
	for _, it := range items {
		if it.Key() == key {
			return it, true
		}
	}
	return domain.LineItem{}, false
}

func ItemCount(items []domain.LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func TotalPrice(items []domain.LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.LineTotal()
	}
	return total
}

func clone(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	copy(out, items)
	return out
}

var errMalformed = errors.New("malformed cart payload")

func encodeItems(items []domain.LineItem) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	return json.Marshal(items)
}

// decodeItems accepts only a JSON array of well-formed line items with
// unique keys. Anything else is rejected as a whole.
func decodeItems(data []byte) ([]domain.LineItem, error) {
	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	if items == nil {
		return nil, fmt.Errorf("%w: not an array", errMalformed)
	}

	seen := make(map[domain.Key]struct{}, len(items))
	for i, it := range items {
		switch {
		case it.ProductID == "" || it.SizeID == "":
			return nil, fmt.Errorf("%w: item %d missing identity", errMalformed, i)
		case !it.PrintType.Valid():
			return nil, fmt.Errorf("%w: item %d has print type %q", errMalformed, i, it.PrintType)
		case it.Quantity < 1:
			return nil, fmt.Errorf("%w: item %d has quantity %d", errMalformed, i, it.Quantity)
		case it.UnitPrice < 0:
			return nil, fmt.Errorf("%w: item %d has negative price", errMalformed, i)
		}
		if _, dup := seen[it.Key()]; dup {
			return nil, fmt.Errorf("%w: item %d duplicates an earlier key", errMalformed, i)
		}
		seen[it.Key()] = struct{}{}
	}
	return items, nil
}
