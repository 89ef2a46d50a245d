// Package store provides persistence for computed risk results.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ResultRecord is one journaled risk result.
type ResultRecord struct {
	ID              int64
	InstrumentToken string
	InstrumentType  string
	Provider        string
	Measure         string
	PricingDate     time.Time
	MarketType      string
	Quantity        decimal.Decimal
	Value           float64
	ValueText       string
	IsError         bool
	ErrorMessage    string
	ComputedAt      time.Time
}

// RecordFilter narrows journal queries.
type RecordFilter struct {
	InstrumentToken string
	Provider        string
	Measure         string
	From            time.Time
	To              time.Time
	Limit           int
}

// Journal records computed risk results after successful flushes.
type Journal interface {
	Record(ctx context.Context, records []ResultRecord) error
	Query(ctx context.Context, filter RecordFilter) ([]ResultRecord, error)
	Recent(ctx context.Context, limit int) ([]ResultRecord, error)
	Close() error
}
