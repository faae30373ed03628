package domain

import "github.com/google/uuid"

// CatalogEntry is the current price and availability of a purchasable item.
type CatalogEntry struct {
	ItemType  ItemType
	ItemID    uuid.UUID
	Price     int64
	Available bool
}

// ChargeIntent is what the payment gateway hands back for a new charge.
type ChargeIntent struct {
	Reference    string
	ClientSecret string
}

// PaymentOutcome is an authenticated payment callback.
type PaymentOutcome struct {
	Reference string
	Succeeded bool
	Reason    string
}
