// Package pricing holds the variant price matrix (print type × size) and the
// size catalog. Prices are in the smallest currency unit.
package pricing

import "github.com/Micevski239/dysnomia-website-sub001/internal/domain"

type Size struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var sizes = []Size{
	{ID: "30x40", Label: "30 × 40 cm"},
	{ID: "40x50", Label: "40 × 50 cm"},
	{ID: "50x70", Label: "50 × 70 cm"},
	{ID: "60x90", Label: "60 × 90 cm"},
	{ID: "70x100", Label: "70 × 100 cm"},
}

var defaultPrices = map[domain.PrintType]map[string]int64{
	domain.PrintTypeCanvas: {
		"30x40":  1290,
		"40x50":  1690,
		"50x70":  2640,
		"60x90":  3490,
		"70x100": 4290,
	},
	domain.PrintTypeRoll: {
		"30x40":  590,
		"40x50":  790,
		"50x70":  1190,
		"60x90":  1590,
		"70x100": 1990,
	},
	domain.PrintTypeFramed: {
		"30x40":  2190,
		"40x50":  2890,
		"50x70":  3990,
		"60x90":  5190,
		"70x100": 6150,
	},
}

// Pricer resolves the unit price of a variant.
type Pricer interface {
	Price(printType domain.PrintType, sizeID string) int64
}

// Table is a price matrix. The zero value prices everything at 0.
type Table map[domain.PrintType]map[string]int64

// Default returns an independent copy of the storefront's price matrix.
func Default() Table {
	t := make(Table, len(defaultPrices))
	for printType, bySize := range defaultPrices {
		row := make(map[string]int64, len(bySize))
		for sizeID, price := range bySize {
			row[sizeID] = price
		}
		t[printType] = row
	}
	return t
}

// Price returns the unit price of the variant, or 0 when the pair is not in
// the table.
func (t Table) Price(printType domain.PrintType, sizeID string) int64 {
	return t[printType][sizeID]
}

func (t Table) Set(printType domain.PrintType, sizeID string, price int64) {
	row, ok := t[printType]
	if !ok {
		row = make(map[string]int64)
		t[printType] = row
	}
	row[sizeID] = price
}

type Entry struct {
	PrintType domain.PrintType `json:"printType"`
	SizeID    string           `json:"sizeId"`
	SizeLabel string           `json:"sizeLabel"`
	Price     int64            `json:"price"`
}

// Matrix flattens the table over every declared print type and size.
func (t Table) Matrix() []Entry {
	entries := make([]Entry, 0, len(domain.PrintTypes())*len(sizes))
	for _, printType := range domain.PrintTypes() {
		for _, size := range sizes {
			entries = append(entries, Entry{
				PrintType: printType,
				SizeID:    size.ID,
				SizeLabel: size.Label,
				Price:     t.Price(printType, size.ID),
			})
		}
	}
	return entries
}

// Sizes returns the declared sizes in display order.
func Sizes() []Size {
	out := make([]Size, len(sizes))
	copy(out, sizes)
	return out
}

func SizeLabel(sizeID string) (string, bool) {
	for _, s := range sizes {
		if s.ID == sizeID {
			return s.Label, true
		}
	}
	return "", false
}
