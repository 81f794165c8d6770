package cart

import (
	"errors"
	"fmt"

	"github.com/Micevski239/dysnomia-website-sub001/internal/domain"
	"github.com/Micevski239/dysnomia-website-sub001/internal/pricing"
)

// MaxQuantity caps the quantity of a single cart row.
const MaxQuantity = 99

var (
	ErrUnknownVariant  = errors.New("unknown print variant")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")
)

// AddInput describes a product the shopper wants in the cart. Quantity
// defaults to 1 when zero.
type AddInput struct {
	ProductID    string
	ProductTitle string
	ProductSlug  string
	ImageURL     string
	PrintType    domain.PrintType
	SizeID       string
	Quantity     int
}

// Facade turns product-level intent into Store mutations. It is the only
// path by which new line items enter a cart, so every stored item carries a
// price snapshot and a size label.
type Facade struct {
	store  *Store
	prices pricing.Pricer
}

func NewFacade(store *Store, prices pricing.Pricer) *Facade {
	return &Facade{store: store, prices: prices}
}

func (f *Facade) AddToCart(in AddInput) (Snapshot, error) {
	quantity := in.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 || quantity > MaxQuantity {
		return Snapshot{}, ErrInvalidQuantity
	}
	if in.ProductID == "" || !in.PrintType.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %s/%s", ErrUnknownVariant, in.PrintType, in.SizeID)
	}

	label, ok := pricing.SizeLabel(in.SizeID)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: size %q", ErrUnknownVariant, in.SizeID)
	}
	price := f.prices.Price(in.PrintType, in.SizeID)
	if price <= 0 {
		return Snapshot{}, fmt.Errorf("%w: %s/%s is not priced", ErrUnknownVariant, in.PrintType, in.SizeID)
	}

	item := domain.LineItem{
		ProductID:    in.ProductID,
		ProductTitle: in.ProductTitle,
		ProductSlug:  in.ProductSlug,
		ImageURL:     in.ImageURL,
		PrintType:    in.PrintType,
		SizeID:       in.SizeID,
		SizeLabel:    label,
		UnitPrice:    price,
	}

	var capErr error
	snap := f.store.Update(func(items []domain.LineItem) []domain.LineItem {
		if current, ok := Find(items, item.Key()); ok && current.Quantity+quantity > MaxQuantity {
			capErr = fmt.Errorf("%w: row already holds %d", ErrInvalidQuantity, current.Quantity)
			return clone(items)
		}
		return Add(items, item, quantity)
	})
	if capErr != nil {
		return Snapshot{}, capErr
	}
	return snap, nil
}

// IncrementQuantity and DecrementQuantity step the stored quantity of the
// item's row. Decrementing a quantity-1 row removes it; incrementing a row
// at MaxQuantity leaves it unchanged.
func (f *Facade) IncrementQuantity(item domain.LineItem) Snapshot {
	return f.step(item.Key(), 1)
}

func (f *Facade) DecrementQuantity(item domain.LineItem) Snapshot {
	return f.step(item.Key(), -1)
}

func (f *Facade) step(key domain.Key, delta int) Snapshot {
	return f.store.Update(func(items []domain.LineItem) []domain.LineItem {
		current, ok := Find(items, key)
		if !ok || current.Quantity+delta > MaxQuantity {
			return clone(items)
		}
		return SetQuantity(items, key, current.Quantity+delta)
	})
}

func (f *Facade) RemoveFromCart(item domain.LineItem) Snapshot {
	return f.store.Remove(item.Key())
}

func (f *Facade) IsInCart(productID string, printType domain.PrintType, sizeID string) bool {
	_, ok := Find(f.store.Snapshot().Items, domain.Key{
		ProductID: productID,
		PrintType: printType,
		SizeID:    sizeID,
	})
	return ok
}

func (f *Facade) Clear() Snapshot {
	return f.store.Clear()
}

func (f *Facade) Snapshot() Snapshot {
	return f.store.Snapshot()
}
