package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// DimensionKind identifies which catalog a human-typed code belongs to.
type DimensionKind string

const (
	KindAccount      DimensionKind = "account"
	KindCostCenter   DimensionKind = "cost_center"
	KindBusinessLine DimensionKind = "business_line"
	KindBranch       DimensionKind = "branch"
	KindItem         DimensionKind = "item"
	KindTax          DimensionKind = "tax"
	KindCounterparty DimensionKind = "counterparty"
)

// Account models a chart of accounts node. Only leaf nodes are postable.
type Account struct {
	ID    int64  `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// CostCenter is an auxiliary dimension catalog entry.
type CostCenter struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// BusinessLine is an auxiliary dimension catalog entry.
type BusinessLine struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Branch is an auxiliary dimension catalog entry.
type Branch struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Item is a stock keeping unit referenced from journal lines.
type Item struct {
	ID   int64  `json:"id"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

// Tax groups the configured active rates under one tax code.
type Tax struct {
	ID    int64             `json:"id"`
	Code  string            `json:"code"`
	Name  string            `json:"name"`
	Rates []decimal.Decimal `json:"rates"`
}

// Counterparty identifies the external party on a journal line.
type Counterparty struct {
	ID         int64     `json:"id"`
	Identifier string    `json:"identifier"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
}

// ImputationPolicy flags which dimensions an account makes mandatory.
// The zero value means no additional dimension is required.
type ImputationPolicy struct {
	RequireCC           bool `json:"require_cc"`
	RequireCU           bool `json:"require_cu"`
	RequireBranch       bool `json:"require_branch"`
	RequireItem         bool `json:"require_item"`
	RequireCounterparty bool `json:"require_counterparty"`
}

// Settings carries the company-level accounting parameters the editor needs.
type Settings struct {
	MoneyDecimals    int32           `json:"money_decimals"`
	PostingTolerance decimal.Decimal `json:"posting_tolerance"`
}

// NewCounterpartyInput carries the fields for an explicit create-and-attach.
type NewCounterpartyInput struct {
	Identifier string
	Name       string
	Type       string
	Email      string
}
