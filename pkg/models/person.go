package models

import "time"

// ExternalPerson is a household-scoped contact who does not necessarily
// hold a registered account (gift recipient, co-owner, relative).
// Expenses and assets can be tagged to it; if its email matches a
// registered account, a PersonConnection can be offered to that account.
type ExternalPerson struct {
	ID           string    `json:"id" db:"id"`
	HouseholdID  string    `json:"household_id" db:"household_id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email,omitempty" db:"email"`
	Relationship string    `json:"relationship,omitempty" db:"relationship"`
	Notes        string    `json:"notes,omitempty" db:"notes"`
	CreatedBy    string    `json:"created_by" db:"created_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
