package domain

import (
	"errors"
	"fmt"
)

type PrintType string

const (
	PrintTypeCanvas PrintType = "canvas"
	PrintTypeRoll   PrintType = "roll"
	PrintTypeFramed PrintType = "framed"
)

var ErrUnknownPrintType = errors.New("unknown print type")

// PrintTypes lists every print type the storefront sells, in display order.
func PrintTypes() []PrintType {
	return []PrintType{PrintTypeCanvas, PrintTypeRoll, PrintTypeFramed}
}

func (p PrintType) Valid() bool {
	switch p {
	case PrintTypeCanvas, PrintTypeRoll, PrintTypeFramed:
		return true
	}
	return false
}

func (p PrintType) String() string {
	return string(p)
}

func ParsePrintType(s string) (PrintType, error) {
	p := PrintType(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrintType, s)
	}
	return p, nil
}

// Key identifies a line item inside a cart. Two items with the same key are
// the same purchasable variant and are merged.
type Key struct {
	ProductID string
	PrintType PrintType
	SizeID    string
}

type LineItem struct {
	ProductID    string    `json:"productId"`
	ProductTitle string    `json:"productTitle"`
	ProductSlug  string    `json:"productSlug"`
	ImageURL     string    `json:"imageUrl"`
	PrintType    PrintType `json:"printType"`
	SizeID       string    `json:"sizeId"`
	SizeLabel    string    `json:"sizeLabel"`
	Quantity     int       `json:"quantity"`
	UnitPrice    int64     `json:"unitPrice"`
}

func (i LineItem) Key() Key {
	return Key{ProductID: i.ProductID, PrintType: i.PrintType, SizeID: i.SizeID}
}

func (i LineItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}
