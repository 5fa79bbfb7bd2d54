package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a household expense, optionally recurring over a date range
// and optionally backed by an asset (loan payments, upkeep).
type Expense struct {
	ID          string          `json:"id" db:"id"`
	HouseholdID string          `json:"household_id" db:"household_id"`
	Title       string          `json:"title" db:"title"`
	Category    string          `json:"category,omitempty" db:"category"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Currency    string          `json:"currency" db:"currency"`
	StartDate   time.Time       `json:"start_date" db:"start_date"`
	EndDate     *time.Time      `json:"end_date,omitempty" db:"end_date"`
	AssetID     string          `json:"asset_id,omitempty" db:"asset_id"`
	CreatedBy   string          `json:"created_by" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// ExpenseFilter narrows linked-expense queries by date range and category.
type ExpenseFilter struct {
	From     *time.Time
	To       *time.Time
	Category string
}

// Income is a household income record. Income cannot be tagged to
// external persons; the linked-data surface for it is a permanent
// empty placeholder.
type Income struct {
	ID          string          `json:"id" db:"id"`
	HouseholdID string          `json:"household_id" db:"household_id"`
	Title       string          `json:"title" db:"title"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Currency    string          `json:"currency" db:"currency"`
	ReceivedAt  time.Time       `json:"received_at" db:"received_at"`
	CreatedBy   string          `json:"created_by" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Asset is a household asset (property, vehicle, account).
type Asset struct {
	ID          string          `json:"id" db:"id"`
	HouseholdID string          `json:"household_id" db:"household_id"`
	Name        string          `json:"name" db:"name"`
	Category    string          `json:"category,omitempty" db:"category"`
	Value       decimal.Decimal `json:"value" db:"value"`
	Currency    string          `json:"currency" db:"currency"`
	CreatedBy   string          `json:"created_by" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// AssetOwnership records a fractional share of an asset held either by a
// household or by an external person. Exactly one of HouseholdID and
// ExternalPersonID is set.
type AssetOwnership struct {
	ID               string          `json:"id" db:"id"`
	AssetID          string          `json:"asset_id" db:"asset_id"`
	HouseholdID      string          `json:"household_id,omitempty" db:"household_id"`
	ExternalPersonID string          `json:"external_person_id,omitempty" db:"external_person_id"`
	Percentage       decimal.Decimal `json:"percentage" db:"percentage"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// LinkedExpense is an expense exposed through an accepted connection.
// The two derived fields are set on every row the gateway returns.
type LinkedExpense struct {
	Expense
	IsReadOnly       bool   `json:"is_read_only"`
	SharedFromUserID string `json:"shared_from_user_id"`
}

// LinkedIncome mirrors LinkedExpense for income records. The gateway
// currently never returns any; the type exists so the response shape is
// stable when income tagging ships.
type LinkedIncome struct {
	Income
	IsReadOnly       bool   `json:"is_read_only"`
	SharedFromUserID string `json:"shared_from_user_id"`
}

// LinkedAsset is an asset exposed through an accepted connection.
type LinkedAsset struct {
	Asset
	IsReadOnly       bool   `json:"is_read_only"`
	SharedFromUserID string `json:"shared_from_user_id"`
}

// SummaryBucket aggregates one linked-data category: row count plus
// currency-native sums keyed by currency code. No conversion is applied.
type SummaryBucket struct {
	Count  int                        `json:"count"`
	Totals map[string]decimal.Decimal `json:"totals"`
}

// LinkedDataSummary is the reduced view over the three linked categories.
type LinkedDataSummary struct {
	Expenses SummaryBucket `json:"expenses"`
	Income   SummaryBucket `json:"income"`
	Assets   SummaryBucket `json:"assets"`
}
