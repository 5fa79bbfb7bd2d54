package models

import "time"

// Household represents a family unit sharing finances (owner + members)
type Household struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Currency  string    `json:"currency,omitempty" db:"currency"` // default display currency
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type HouseholdRole string

const (
	HouseholdRoleOwner  HouseholdRole = "owner"
	HouseholdRoleMember HouseholdRole = "member"
)

// HouseholdMembership relates users to households with a role
type HouseholdMembership struct {
	ID          string        `json:"id" db:"id"`
	HouseholdID string        `json:"household_id" db:"household_id"`
	UserID      string        `json:"user_id" db:"user_id"`
	Role        HouseholdRole `json:"role" db:"role"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}
