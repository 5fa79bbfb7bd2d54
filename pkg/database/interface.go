package database

import (
	"errors"
	"time"

	"github.com/cOsMiCTr/famhub-backend/pkg/models"
)

// ErrNotFound reports that the requested row does not exist. Lookups
// wrap it so callers can use errors.Is to tell a missing row apart
// from a storage failure, which must stay retryable.
var ErrNotFound = errors.New("not found")

// DatabaseInterface is the storage contract for the whole backend.
// State transitions on connections are conditional writes: they only take
// effect when the row is still in one of the expected prior states, and
// report whether they did. That is the only concurrency control in the
// system; callers never lock.
type DatabaseInterface interface {
	// Users
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	// FindUserByEmailFold matches case-insensitively and returns
	// (nil, nil) when no account matches. An error always means the
	// lookup itself failed, never "no match".
	FindUserByEmailFold(email string) (*models.User, error)
	UpdateUser(user *models.User) error

	// Households & memberships
	CreateHousehold(h *models.Household) error
	GetHousehold(id string) (*models.Household, error)
	ListUserHouseholds(userID string) ([]models.Household, error)
	AddHouseholdMember(m *models.HouseholdMembership) error
	ListHouseholdMembers(householdID string) ([]models.HouseholdMembership, error)
	IsHouseholdMember(householdID, userID string) (bool, error)

	// External persons
	CreateExternalPerson(p *models.ExternalPerson) error
	GetExternalPerson(id string) (*models.ExternalPerson, error)
	ListExternalPersons(householdID string) ([]models.ExternalPerson, error)
	UpdateExternalPerson(p *models.ExternalPerson) error
	// DeleteExternalPerson fails when a pending or accepted connection
	// still references the person.
	DeleteExternalPerson(id string) error

	// Person connections
	CreateConnection(c *models.PersonConnection) error
	GetConnection(id string) (*models.PersonConnection, error)
	// GetActiveConnection returns the single pending or accepted
	// connection for the pair, or (nil, nil) when there is none.
	GetActiveConnection(personID, invitedUserID string) (*models.PersonConnection, error)
	ListConnectionsForUser(userID string, statuses []models.ConnectionStatus) ([]models.PersonConnection, error)
	// TransitionConnection flips the row to the target status and stamps
	// responded_at, but only if its current status is one of `from`.
	// Returns false when the row is missing or no longer in an expected
	// state (another writer won).
	TransitionConnection(id string, from []models.ConnectionStatus, to models.ConnectionStatus, respondedAt time.Time) (bool, error)
	// ExpireDueConnections expires every pending connection whose
	// deadline has passed, returning only the rows actually transitioned.
	ExpireDueConnections(now time.Time) ([]models.PersonConnection, error)

	// Expenses
	CreateExpense(e *models.Expense) error
	LinkExpenseToPerson(expenseID, personID string) error
	ListExpensesByHousehold(householdID string) ([]models.Expense, error)
	// ListExpensesByPerson returns expenses tagged to the person across
	// all households, start date descending.
	ListExpensesByPerson(personID string, filter models.ExpenseFilter) ([]models.Expense, error)

	// Income
	CreateIncome(i *models.Income) error
	ListIncomeByHousehold(householdID string) ([]models.Income, error)

	// Assets
	CreateAsset(a *models.Asset) error
	GetAssetsByIDs(ids []string) ([]models.Asset, error)
	ListAssetsByHousehold(householdID string) ([]models.Asset, error)
	AddAssetOwnership(o *models.AssetOwnership) error
	// ListAssetsSharedWithPerson returns assets in which any of the given
	// households holds a fractional share alongside the external person.
	ListAssetsSharedWithPerson(householdIDs []string, personID string) ([]models.Asset, error)

	// Notifications
	CreateNotification(n *models.Notification) error
	ListNotificationsByUser(userID string) ([]models.Notification, error)
	MarkNotificationRead(id, userID string) error

	HealthCheck() error
	Close() error
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	PostgresDSN string
	UseMemoryDB bool
	Debug       bool
}

// NewDatabase picks the storage implementation from config.
func NewDatabase(config DatabaseConfig) DatabaseInterface {
	if config.PostgresDSN != "" {
		return NewPostgresDatabase(config.PostgresDSN)
	}
	if config.UseMemoryDB {
		return NewMemoryDatabase()
	}
	panic("No valid database configuration found. Please configure POSTGRES_DSN or set USE_MEMORY_DB=true")
}
