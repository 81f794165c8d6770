package domain

import "time"

// CheckoutSubmission is a contact and shipping form that already passed
// validation. Only the checkout validator produces it.
type CheckoutSubmission struct {
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Notes      string `json:"notes,omitempty"`
}

type Customer struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	FullName string `json:"full_name"`
}

type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type OrderItem struct {
	ProductID    string    `json:"product_id"`
	ProductTitle string    `json:"product_title"`
	PrintType    PrintType `json:"print_type"`
	SizeID       string    `json:"size_id"`
	SizeLabel    string    `json:"size_label"`
	Quantity     int       `json:"quantity"`
	UnitPrice    int64     `json:"unit_price"`
}

// OrderRequest is sent to the order service. Prices and totals in it are what
// the shopper saw; the order service recomputes them before settlement.
type OrderRequest struct {
	Customer        Customer        `json:"customer"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	Items           []OrderItem     `json:"items"`
	Subtotal        int64           `json:"subtotal"`
	ShippingCost    int64           `json:"shipping_cost"`
	TotalAmount     int64           `json:"total_amount"`
	Notes           string          `json:"notes,omitempty"`
}

type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	Customer        Customer        `json:"customer"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	Items           []OrderItem     `json:"items"`
	Subtotal        int64           `json:"subtotal"`
	ShippingCost    int64           `json:"shipping_cost"`
	TotalAmount     int64           `json:"total_amount"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
