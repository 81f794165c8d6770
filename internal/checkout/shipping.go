package checkout

// ShippingPolicy charges a flat fee unless the subtotal reaches
// FreeThreshold. A zero FreeThreshold disables free shipping.
type ShippingPolicy struct {
	FlatFee       int64
	FreeThreshold int64
}

func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{FlatFee: 350, FreeThreshold: 5000}
}

func (p ShippingPolicy) Cost(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	if p.FreeThreshold > 0 && subtotal >= p.FreeThreshold {
		return 0
	}
	return p.FlatFee
}
