package database

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cOsMiCTr/famhub-backend/pkg/models"

	"github.com/google/uuid"
)

// MemoryDatabase is an in-memory implementation of DatabaseInterface used
// by tests and local development. All operations run under one mutex, so
// conditional transitions have the same winner-takes-all semantics as the
// SQL implementation.
type MemoryDatabase struct {
	mu sync.Mutex

	users       map[string]models.User
	households  map[string]models.Household
	memberships map[string]models.HouseholdMembership
	persons     map[string]models.ExternalPerson
	connections map[string]models.PersonConnection
	expenses    map[string]models.Expense
	// expense id -> person ids
	expenseLinks  map[string]map[string]bool
	income        map[string]models.Income
	assets        map[string]models.Asset
	ownerships    map[string]models.AssetOwnership
	notifications map[string]models.Notification
}

// NewMemoryDatabase creates an empty in-memory database.
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		users:         make(map[string]models.User),
		households:    make(map[string]models.Household),
		memberships:   make(map[string]models.HouseholdMembership),
		persons:       make(map[string]models.ExternalPerson),
		connections:   make(map[string]models.PersonConnection),
		expenses:      make(map[string]models.Expense),
		expenseLinks:  make(map[string]map[string]bool),
		income:        make(map[string]models.Income),
		assets:        make(map[string]models.Asset),
		ownerships:    make(map[string]models.AssetOwnership),
		notifications: make(map[string]models.Notification),
	}
}

// ================= Users =================

func (db *MemoryDatabase) CreateUser(user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, u := range db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("email already registered")
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	db.users[user.ID] = *user
	return nil
}

func (db *MemoryDatabase) GetUserByEmail(email string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, u := range db.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %w", ErrNotFound)
}

func (db *MemoryDatabase) FindUserByEmailFold(email string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	email = strings.TrimSpace(email)
	for _, u := range db.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (db *MemoryDatabase) GetUserByID(id string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %w", ErrNotFound)
	}
	return &u, nil
}

func (db *MemoryDatabase) UpdateUser(user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.users[user.ID]; !ok {
		return fmt.Errorf("user %w", ErrNotFound)
	}
	user.UpdatedAt = time.Now()
	db.users[user.ID] = *user
	return nil
}

// ================= Households & memberships =================

func (db *MemoryDatabase) CreateHousehold(h *models.Household) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.Currency == "" {
		h.Currency = "EUR"
	}
	h.CreatedAt = time.Now()
	h.UpdatedAt = time.Now()
	db.households[h.ID] = *h
	m := models.HouseholdMembership{
		ID:          uuid.New().String(),
		HouseholdID: h.ID,
		UserID:      h.OwnerID,
		Role:        models.HouseholdRoleOwner,
		CreatedAt:   time.Now(),
	}
	db.memberships[m.ID] = m
	return nil
}

func (db *MemoryDatabase) GetHousehold(id string) (*models.Household, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	h, ok := db.households[id]
	if !ok {
		return nil, fmt.Errorf("household %w", ErrNotFound)
	}
	return &h, nil
}

func (db *MemoryDatabase) ListUserHouseholds(userID string) ([]models.Household, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	seen := make(map[string]bool)
	var result []models.Household
	for _, m := range db.memberships {
		if m.UserID == userID && !seen[m.HouseholdID] {
			seen[m.HouseholdID] = true
			if h, ok := db.households[m.HouseholdID]; ok {
				result = append(result, h)
			}
		}
	}
	for _, h := range db.households {
		if h.OwnerID == userID && !seen[h.ID] {
			seen[h.ID] = true
			result = append(result, h)
		}
	}
	return result, nil
}

func (db *MemoryDatabase) AddHouseholdMember(m *models.HouseholdMembership) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for id, existing := range db.memberships {
		if existing.HouseholdID == m.HouseholdID && existing.UserID == m.UserID {
			existing.Role = m.Role
			db.memberships[id] = existing
			m.ID = existing.ID
			return nil
		}
	}
	m.ID = uuid.New().String()
	m.CreatedAt = time.Now()
	db.memberships[m.ID] = *m
	return nil
}

func (db *MemoryDatabase) ListHouseholdMembers(householdID string) ([]models.HouseholdMembership, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []models.HouseholdMembership
	for _, m := range db.memberships {
		if m.HouseholdID == householdID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (db *MemoryDatabase) IsHouseholdMember(householdID, userID string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, m := range db.memberships {
		if m.HouseholdID == householdID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// ================= External persons =================

func (db *MemoryDatabase) CreateExternalPerson(p *models.ExternalPerson) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	db.persons[p.ID] = *p
	return nil
}

func (db *MemoryDatabase) GetExternalPerson(id string) (*models.ExternalPerson, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	p, ok := db.persons[id]
	if !ok {
		return nil, fmt.Errorf("external person %w", ErrNotFound)
	}
	return &p, nil
}

func (db *MemoryDatabase) ListExternalPersons(householdID string) ([]models.ExternalPerson, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []models.ExternalPerson
	for _, p := range db.persons {
		if p.HouseholdID == householdID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (db *MemoryDatabase) UpdateExternalPerson(p *models.ExternalPerson) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.persons[p.ID]; !ok {
		return fmt.Errorf("external person %w", ErrNotFound)
	}
	p.UpdatedAt = time.Now()
	db.persons[p.ID] = *p
	return nil
}

func (db *MemoryDatabase) DeleteExternalPerson(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.persons[id]; !ok {
		return fmt.Errorf("external person not found or still has an active connection")
	}
	for _, c := range db.connections {
		if c.ExternalPersonID == id && c.IsActive() {
			return fmt.Errorf("external person not found or still has an active connection")
		}
	}
	delete(db.persons, id)
	return nil
}

// ================= Person connections =================

func (db *MemoryDatabase) CreateConnection(c *models.PersonConnection) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	// same partial-unique guarantee as the SQL index
	for _, existing := range db.connections {
		if existing.ExternalPersonID == c.ExternalPersonID &&
			existing.InvitedUserID == c.InvitedUserID && existing.IsActive() {
			return fmt.Errorf("active connection already exists")
		}
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	db.connections[c.ID] = *c
	return nil
}

func (db *MemoryDatabase) GetConnection(id string) (*models.PersonConnection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.connections[id]
	if !ok {
		return nil, fmt.Errorf("connection %w", ErrNotFound)
	}
	return &c, nil
}

func (db *MemoryDatabase) GetActiveConnection(personID, invitedUserID string) (*models.PersonConnection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, c := range db.connections {
		if c.ExternalPersonID == personID && c.InvitedUserID == invitedUserID && c.IsActive() {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (db *MemoryDatabase) ListConnectionsForUser(userID string, statuses []models.ConnectionStatus) ([]models.PersonConnection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []models.PersonConnection
	for _, c := range db.connections {
		if c.InvitedUserID != userID && c.InvitedByUserID != userID {
			continue
		}
		if len(statuses) > 0 {
			matched := false
			for _, s := range statuses {
				if c.Status == s {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].InvitedAt.After(result[j].InvitedAt) })
	return result, nil
}

func (db *MemoryDatabase) TransitionConnection(id string, from []models.ConnectionStatus, to models.ConnectionStatus, respondedAt time.Time) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.connections[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, s := range from {
		if c.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	c.Status = to
	t := respondedAt
	c.RespondedAt = &t
	db.connections[id] = c
	return true, nil
}

func (db *MemoryDatabase) ExpireDueConnections(now time.Time) ([]models.PersonConnection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []models.PersonConnection
	for id, c := range db.connections {
		if c.Status == models.ConnectionPending && !c.ExpiresAt.After(now) {
			c.Status = models.ConnectionExpired
			t := now
			c.RespondedAt = &t
			db.connections[id] = c
			result = append(result, c)
		}
	}
	return result, nil
}

// ================= Expenses =================

func (db *MemoryDatabase) CreateExpense(e *models.Expense) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = time.Now()
	db.expenses[e.ID] = *e
	return nil
}

func (db *MemoryDatabase) LinkExpenseToPerson(expenseID, personID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.expenses[expenseID]; !ok {
		return fmt.Errorf("expense %w", ErrNotFound)
	}
	if db.expenseLinks[expenseID] == nil {
		db.expenseLinks[expenseID] = make(map[string]bool)
	}
	db.expenseLinks[expenseID][personID] = true
	return nil
}

func (db *MemoryDatabase) ListExpensesByHousehold(householdID string) ([]models.Expense, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []models.Expense
	for _, e := range db.expenses {
		if e.HouseholdID == householdID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.After(result[j].StartDate) })
	return result, nil
}

func (db *MemoryDatabase) ListExpensesByPerson(personID string, filter models.ExpenseFilter) ([]models.Expense, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []models.Expense
	for expenseID, persons := range db.expenseLinks {
		if !persons[personID] {
			continue
		}
		e, ok := db.expenses[expenseID]
		if !ok {
			continue
		}
		if filter.From != nil && e.StartDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.StartDate.After(*filter.To) {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.After(result[j].StartDate) })
	return result, nil
}

// ================= Income =================

func (db *MemoryDatabase) CreateIncome(i *models.Income) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	i.CreatedAt = time.Now()
	db.income[i.ID] = *i
	return nil
}

func (db *MemoryDatabase) ListIncomeByHousehold(householdID string) ([]models.Income, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []models.Income
	for _, i := range db.income {
		if i.HouseholdID == householdID {
			result = append(result, i)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ReceivedAt.After(result[j].ReceivedAt) })
	return result, nil
}

// ================= Assets =================

func (db *MemoryDatabase) CreateAsset(a *models.Asset) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	db.assets[a.ID] = *a
	return nil
}

func (db *MemoryDatabase) GetAssetsByIDs(ids []string) ([]models.Asset, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []models.Asset
	for _, id := range ids {
		if a, ok := db.assets[id]; ok {
			result = append(result, a)
		}
	}
	return result, nil
}

func (db *MemoryDatabase) ListAssetsByHousehold(householdID string) ([]models.Asset, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []models.Asset
	for _, a := range db.assets {
		if a.HouseholdID == householdID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (db *MemoryDatabase) AddAssetOwnership(o *models.AssetOwnership) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.assets[o.AssetID]; !ok {
		return fmt.Errorf("asset %w", ErrNotFound)
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.CreatedAt = time.Now()
	db.ownerships[o.ID] = *o
	return nil
}

func (db *MemoryDatabase) ListAssetsSharedWithPerson(householdIDs []string, personID string) ([]models.Asset, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	households := make(map[string]bool, len(householdIDs))
	for _, id := range householdIDs {
		households[id] = true
	}
	personAssets := make(map[string]bool)
	householdAssets := make(map[string]bool)
	for _, o := range db.ownerships {
		if o.ExternalPersonID == personID {
			personAssets[o.AssetID] = true
		}
		if o.HouseholdID != "" && households[o.HouseholdID] {
			householdAssets[o.AssetID] = true
		}
	}
	var result []models.Asset
	for id := range personAssets {
		if householdAssets[id] {
			if a, ok := db.assets[id]; ok {
				result = append(result, a)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ================= Notifications =================

func (db *MemoryDatabase) CreateNotification(n *models.Notification) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now()
	db.notifications[n.ID] = *n
	return nil
}

func (db *MemoryDatabase) ListNotificationsByUser(userID string) ([]models.Notification, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []models.Notification
	for _, n := range db.notifications {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (db *MemoryDatabase) MarkNotificationRead(id, userID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	n, ok := db.notifications[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification %w", ErrNotFound)
	}
	n.Read = true
	db.notifications[id] = n
	return nil
}

// HealthCheck always succeeds for the in-memory database.
func (db *MemoryDatabase) HealthCheck() error {
	return nil
}

// Close is a no-op for the in-memory database.
func (db *MemoryDatabase) Close() error {
	return nil
}
