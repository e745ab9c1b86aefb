package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSample represents one persisted price observation.
type PriceSample struct {
	ObservedAt  time.Time
	Price       decimal.Decimal
	BlockNumber *int64
	State       string
	CreatedAt   time.Time
}

// AlertRecord captures an emitted alert for auditing.
type AlertRecord struct {
	ID         int64
	ObservedAt time.Time
	Price      decimal.Decimal
	LowerLimit decimal.Decimal
	UpperLimit decimal.Decimal
	CreatedAt  time.Time
}
