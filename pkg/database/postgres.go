package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cOsMiCTr/famhub-backend/pkg/models"

	"github.com/lib/pq"
)

// PostgresDatabase is the PostgreSQL implementation of DatabaseInterface.
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase opens and verifies a PostgreSQL connection.
func NewPostgresDatabase(dsn string) DatabaseInterface {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		panic(fmt.Sprintf("Failed to open PostgreSQL connection: %v", err))
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		panic(fmt.Sprintf("Failed to ping PostgreSQL: %v", err))
	}

	fmt.Printf("✅ PostgreSQL connection established\n")
	return &PostgresDatabase{db: db}
}

func nullIfEmpty(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func statusStrings(statuses []models.ConnectionStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

// ================= Users =================

func (db *PostgresDatabase) CreateUser(user *models.User) error {
	query := `
        INSERT INTO users (email, password_hash, name, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, user.Email, user.Password, user.Name).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetUserByEmail(email string) (*models.User, error) {
	query := `
        SELECT id, email, COALESCE(name,''), COALESCE(password_hash,''), created_at, updated_at
        FROM users
        WHERE email = $1
    `
	var u models.User
	err := db.db.QueryRow(query, email).Scan(
		&u.ID, &u.Email, &u.Name, &u.Password, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

// FindUserByEmailFold matches emails case-insensitively. Unlike
// GetUserByEmail, a missing row is (nil, nil): the caller needs to tell
// "no registered account" apart from a lookup failure.
func (db *PostgresDatabase) FindUserByEmailFold(email string) (*models.User, error) {
	query := `
        SELECT id, email, COALESCE(name,''), created_at, updated_at
        FROM users
        WHERE LOWER(email) = LOWER($1)
    `
	var u models.User
	err := db.db.QueryRow(query, strings.TrimSpace(email)).Scan(
		&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &u, nil
}

func (db *PostgresDatabase) GetUserByID(id string) (*models.User, error) {
	query := `
        SELECT id, email, COALESCE(name,''), created_at, updated_at
        FROM users
        WHERE id = $1
    `
	var u models.User
	err := db.db.QueryRow(query, id).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (db *PostgresDatabase) UpdateUser(user *models.User) error {
	if user.ID == "" {
		return fmt.Errorf("user ID is required for update")
	}
	_, err := db.db.Exec(`
        UPDATE users SET name = $1, updated_at = NOW() WHERE id = $2
    `, user.Name, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// ================= Households & memberships =================

func (db *PostgresDatabase) CreateHousehold(h *models.Household) error {
	query := `
        INSERT INTO households (name, owner_id, currency, created_at, updated_at)
        VALUES ($1, $2, COALESCE($3,'EUR'), NOW(), NOW())
        RETURNING id, currency, created_at, updated_at
    `
	err := db.db.QueryRow(query, h.Name, h.OwnerID, nullIfEmpty(h.Currency)).
		Scan(&h.ID, &h.Currency, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create household: %w", err)
	}
	// owner membership
	_, err = db.db.Exec(`
        INSERT INTO household_memberships (household_id, user_id, role, created_at)
        VALUES ($1, $2, 'owner', NOW())
        ON CONFLICT (household_id, user_id) DO NOTHING
    `, h.ID, h.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to add owner membership: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetHousehold(id string) (*models.Household, error) {
	query := `SELECT id, name, owner_id, currency, created_at, updated_at FROM households WHERE id = $1`
	var h models.Household
	err := db.db.QueryRow(query, id).Scan(&h.ID, &h.Name, &h.OwnerID, &h.Currency, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("household %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get household: %w", err)
	}
	return &h, nil
}

func (db *PostgresDatabase) ListUserHouseholds(userID string) ([]models.Household, error) {
	query := `
        SELECT DISTINCT h.id, h.name, h.owner_id, h.currency, h.created_at, h.updated_at
        FROM households h
        LEFT JOIN household_memberships m ON m.household_id = h.id
        WHERE h.owner_id = $1 OR m.user_id = $1
        ORDER BY h.created_at DESC
    `
	rows, err := db.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list households: %w", err)
	}
	defer rows.Close()
	var result []models.Household
	for rows.Next() {
		var h models.Household
		if err := rows.Scan(&h.ID, &h.Name, &h.OwnerID, &h.Currency, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

func (db *PostgresDatabase) AddHouseholdMember(m *models.HouseholdMembership) error {
	query := `
        INSERT INTO household_memberships (household_id, user_id, role, created_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (household_id, user_id) DO UPDATE SET role = EXCLUDED.role
        RETURNING id
    `
	return db.db.QueryRow(query, m.HouseholdID, m.UserID, string(m.Role)).Scan(&m.ID)
}

func (db *PostgresDatabase) ListHouseholdMembers(householdID string) ([]models.HouseholdMembership, error) {
	query := `
        SELECT id, household_id, user_id, role, created_at
        FROM household_memberships
        WHERE household_id = $1
        ORDER BY created_at ASC
    `
	rows, err := db.db.Query(query, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()
	var result []models.HouseholdMembership
	for rows.Next() {
		var m models.HouseholdMembership
		var role string
		if err := rows.Scan(&m.ID, &m.HouseholdID, &m.UserID, &role, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = models.HouseholdRole(role)
		result = append(result, m)
	}
	return result, rows.Err()
}

func (db *PostgresDatabase) IsHouseholdMember(householdID, userID string) (bool, error) {
	var exists bool
	err := db.db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM household_memberships WHERE household_id = $1 AND user_id = $2
        )
    `, householdID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

// ================= External persons =================

func (db *PostgresDatabase) CreateExternalPerson(p *models.ExternalPerson) error {
	query := `
        INSERT INTO external_persons (household_id, name, email, relationship, notes, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, p.HouseholdID, p.Name, nullIfEmpty(p.Email),
		nullIfEmpty(p.Relationship), nullIfEmpty(p.Notes), p.CreatedBy).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create external person: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetExternalPerson(id string) (*models.ExternalPerson, error) {
	query := `
        SELECT id, household_id, name, COALESCE(email,''), COALESCE(relationship,''), COALESCE(notes,''), created_by, created_at, updated_at
        FROM external_persons WHERE id = $1
    `
	var p models.ExternalPerson
	err := db.db.QueryRow(query, id).Scan(
		&p.ID, &p.HouseholdID, &p.Name, &p.Email, &p.Relationship, &p.Notes, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("external person %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get external person: %w", err)
	}
	return &p, nil
}

func (db *PostgresDatabase) ListExternalPersons(householdID string) ([]models.ExternalPerson, error) {
	query := `
        SELECT id, household_id, name, COALESCE(email,''), COALESCE(relationship,''), COALESCE(notes,''), created_by, created_at, updated_at
        FROM external_persons WHERE household_id = $1 ORDER BY name ASC
    `
	rows, err := db.db.Query(query, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list external persons: %w", err)
	}
	defer rows.Close()
	var result []models.ExternalPerson
	for rows.Next() {
		var p models.ExternalPerson
		if err := rows.Scan(&p.ID, &p.HouseholdID, &p.Name, &p.Email, &p.Relationship, &p.Notes, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (db *PostgresDatabase) UpdateExternalPerson(p *models.ExternalPerson) error {
	_, err := db.db.Exec(`
        UPDATE external_persons
        SET name = $1, email = $2, relationship = $3, notes = $4, updated_at = NOW()
        WHERE id = $5
    `, p.Name, nullIfEmpty(p.Email), nullIfEmpty(p.Relationship), nullIfEmpty(p.Notes), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update external person: %w", err)
	}
	return nil
}

// DeleteExternalPerson refuses to delete a person that still has a
// pending or accepted connection; the guard and the delete are one
// statement so the check cannot go stale.
func (db *PostgresDatabase) DeleteExternalPerson(id string) error {
	res, err := db.db.Exec(`
        DELETE FROM external_persons
        WHERE id = $1
          AND NOT EXISTS (
              SELECT 1 FROM person_connections
              WHERE external_person_id = $1 AND status IN ('pending','accepted')
          )
    `, id)
	if err != nil {
		return fmt.Errorf("failed to delete external person: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("external person not found or still has an active connection")
	}
	return nil
}

// ================= Person connections =================

const connectionColumns = `id, external_person_id, invited_user_id, invited_by_user_id, status, invited_at, responded_at, expires_at`

func scanConnection(row interface{ Scan(...interface{}) error }) (*models.PersonConnection, error) {
	var c models.PersonConnection
	var status string
	err := row.Scan(&c.ID, &c.ExternalPersonID, &c.InvitedUserID, &c.InvitedByUserID,
		&status, &c.InvitedAt, &c.RespondedAt, &c.ExpiresAt)
	if err != nil {
		return nil, err
	}
	c.Status = models.ConnectionStatus(status)
	return &c, nil
}

func (db *PostgresDatabase) CreateConnection(c *models.PersonConnection) error {
	query := `
        INSERT INTO person_connections (external_person_id, invited_user_id, invited_by_user_id, status, invited_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	err := db.db.QueryRow(query, c.ExternalPersonID, c.InvitedUserID, c.InvitedByUserID,
		string(c.Status), c.InvitedAt, c.ExpiresAt).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetConnection(id string) (*models.PersonConnection, error) {
	c, err := scanConnection(db.db.QueryRow(
		`SELECT `+connectionColumns+` FROM person_connections WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("connection %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return c, nil
}

func (db *PostgresDatabase) GetActiveConnection(personID, invitedUserID string) (*models.PersonConnection, error) {
	c, err := scanConnection(db.db.QueryRow(`
        SELECT `+connectionColumns+` FROM person_connections
        WHERE external_person_id = $1 AND invited_user_id = $2 AND status IN ('pending','accepted')
        LIMIT 1
    `, personID, invitedUserID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active connection: %w", err)
	}
	return c, nil
}

func (db *PostgresDatabase) ListConnectionsForUser(userID string, statuses []models.ConnectionStatus) ([]models.PersonConnection, error) {
	query := `
        SELECT ` + connectionColumns + ` FROM person_connections
        WHERE (invited_user_id = $1 OR invited_by_user_id = $1)
    `
	args := []interface{}{userID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(statusStrings(statuses)))
	}
	query += ` ORDER BY invited_at DESC`

	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()
	var result []models.PersonConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

// TransitionConnection is the single conditional write that every state
// change goes through. Zero rows affected means another writer already
// moved the row out of the expected state.
func (db *PostgresDatabase) TransitionConnection(id string, from []models.ConnectionStatus, to models.ConnectionStatus, respondedAt time.Time) (bool, error) {
	res, err := db.db.Exec(`
        UPDATE person_connections
        SET status = $1, responded_at = $2
        WHERE id = $3 AND status = ANY($4)
    `, string(to), respondedAt, id, pq.Array(statusStrings(from)))
	if err != nil {
		return false, fmt.Errorf("failed to transition connection: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ExpireDueConnections is one atomic bulk update; RETURNING yields only
// the rows this call transitioned, so concurrent sweeps never
// double-report a row.
func (db *PostgresDatabase) ExpireDueConnections(now time.Time) ([]models.PersonConnection, error) {
	rows, err := db.db.Query(`
        UPDATE person_connections
        SET status = 'expired', responded_at = $1
        WHERE status = 'pending' AND expires_at <= $1
        RETURNING `+connectionColumns+`
    `, now)
	if err != nil {
		return nil, fmt.Errorf("failed to expire connections: %w", err)
	}
	defer rows.Close()
	var result []models.PersonConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

// ================= Expenses =================

const expenseColumns = `id, household_id, title, COALESCE(category,''), amount, currency, start_date, end_date, asset_id, created_by, created_at, updated_at`

func scanExpense(row interface{ Scan(...interface{}) error }) (*models.Expense, error) {
	var e models.Expense
	var assetID sql.NullString
	err := row.Scan(&e.ID, &e.HouseholdID, &e.Title, &e.Category, &e.Amount, &e.Currency,
		&e.StartDate, &e.EndDate, &assetID, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.AssetID = assetID.String
	return &e, nil
}

func (db *PostgresDatabase) CreateExpense(e *models.Expense) error {
	query := `
        INSERT INTO expenses (household_id, title, category, amount, currency, start_date, end_date, asset_id, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, e.HouseholdID, e.Title, nullIfEmpty(e.Category), e.Amount, e.Currency,
		e.StartDate, e.EndDate, nullIfEmpty(e.AssetID), e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) LinkExpenseToPerson(expenseID, personID string) error {
	_, err := db.db.Exec(`
        INSERT INTO expense_person_links (expense_id, external_person_id, created_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (expense_id, external_person_id) DO NOTHING
    `, expenseID, personID)
	if err != nil {
		return fmt.Errorf("failed to link expense to person: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) ListExpensesByHousehold(householdID string) ([]models.Expense, error) {
	rows, err := db.db.Query(`SELECT `+expenseColumns+` FROM expenses WHERE household_id = $1 ORDER BY start_date DESC`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

func (db *PostgresDatabase) ListExpensesByPerson(personID string, filter models.ExpenseFilter) ([]models.Expense, error) {
	query := `
        SELECT ` + qualifyColumns("e", expenseColumns) + `
        FROM expenses e
        JOIN expense_person_links l ON l.expense_id = e.id
        WHERE l.external_person_id = $1
    `
	args := []interface{}{personID}
	idx := 2
	if filter.From != nil {
		query += fmt.Sprintf(" AND e.start_date >= $%d", idx)
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND e.start_date <= $%d", idx)
		args = append(args, *filter.To)
		idx++
	}
	if strings.TrimSpace(filter.Category) != "" {
		query += fmt.Sprintf(" AND e.category = $%d", idx)
		args = append(args, filter.Category)
		idx++
	}
	query += " ORDER BY e.start_date DESC"

	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by person: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

func collectExpenses(rows *sql.Rows) ([]models.Expense, error) {
	var result []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

// qualifyColumns prefixes each column expression with a table alias.
func qualifyColumns(alias, cols string) string {
	parts := strings.Split(cols, ", ")
	for i, p := range parts {
		if strings.HasPrefix(p, "COALESCE(") {
			inner := strings.TrimPrefix(p, "COALESCE(")
			parts[i] = "COALESCE(" + alias + "." + inner
		} else {
			parts[i] = alias + "." + p
		}
	}
	return strings.Join(parts, ", ")
}

// ================= Income =================

func (db *PostgresDatabase) CreateIncome(i *models.Income) error {
	query := `
        INSERT INTO income (household_id, title, amount, currency, received_at, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING id, created_at
    `
	err := db.db.QueryRow(query, i.HouseholdID, i.Title, i.Amount, i.Currency, i.ReceivedAt, i.CreatedBy).
		Scan(&i.ID, &i.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create income: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) ListIncomeByHousehold(householdID string) ([]models.Income, error) {
	rows, err := db.db.Query(`
        SELECT id, household_id, title, amount, currency, received_at, created_by, created_at
        FROM income WHERE household_id = $1 ORDER BY received_at DESC
    `, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list income: %w", err)
	}
	defer rows.Close()
	var result []models.Income
	for rows.Next() {
		var i models.Income
		if err := rows.Scan(&i.ID, &i.HouseholdID, &i.Title, &i.Amount, &i.Currency, &i.ReceivedAt, &i.CreatedBy, &i.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, i)
	}
	return result, rows.Err()
}

// ================= Assets =================

const assetColumns = `id, household_id, name, COALESCE(category,''), value, currency, created_by, created_at, updated_at`

func scanAsset(row interface{ Scan(...interface{}) error }) (*models.Asset, error) {
	var a models.Asset
	err := row.Scan(&a.ID, &a.HouseholdID, &a.Name, &a.Category, &a.Value, &a.Currency,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *PostgresDatabase) CreateAsset(a *models.Asset) error {
	query := `
        INSERT INTO assets (household_id, name, category, value, currency, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, a.HouseholdID, a.Name, nullIfEmpty(a.Category), a.Value, a.Currency, a.CreatedBy).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetAssetsByIDs(ids []string) ([]models.Asset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.db.Query(`SELECT `+assetColumns+` FROM assets WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get assets: %w", err)
	}
	defer rows.Close()
	return collectAssets(rows)
}

func (db *PostgresDatabase) ListAssetsByHousehold(householdID string) ([]models.Asset, error) {
	rows, err := db.db.Query(`SELECT `+assetColumns+` FROM assets WHERE household_id = $1 ORDER BY name ASC`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()
	return collectAssets(rows)
}

func (db *PostgresDatabase) AddAssetOwnership(o *models.AssetOwnership) error {
	query := `
        INSERT INTO asset_ownerships (asset_id, household_id, external_person_id, percentage, created_at)
        VALUES ($1, $2, $3, $4, NOW())
        RETURNING id, created_at
    `
	err := db.db.QueryRow(query, o.AssetID, nullIfEmpty(o.HouseholdID), nullIfEmpty(o.ExternalPersonID), o.Percentage).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add asset ownership: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) ListAssetsSharedWithPerson(householdIDs []string, personID string) ([]models.Asset, error) {
	if len(householdIDs) == 0 {
		return nil, nil
	}
	rows, err := db.db.Query(`
        SELECT DISTINCT `+qualifyColumns("a", assetColumns)+`
        FROM assets a
        JOIN asset_ownerships po ON po.asset_id = a.id AND po.external_person_id = $1
        JOIN asset_ownerships ho ON ho.asset_id = a.id AND ho.household_id = ANY($2)
    `, personID, pq.Array(householdIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list shared assets: %w", err)
	}
	defer rows.Close()
	return collectAssets(rows)
}

func collectAssets(rows *sql.Rows) ([]models.Asset, error) {
	var result []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// ================= Notifications =================

func (db *PostgresDatabase) CreateNotification(n *models.Notification) error {
	query := `
        INSERT INTO notifications (user_id, type, title, message, related_entity_type, related_entity_id, read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, false, NOW())
        RETURNING id, created_at
    `
	err := db.db.QueryRow(query, n.UserID, n.Type, n.Title, n.Message,
		nullIfEmpty(n.RelatedEntityType), nullIfEmpty(n.RelatedEntityID)).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) ListNotificationsByUser(userID string) ([]models.Notification, error) {
	rows, err := db.db.Query(`
        SELECT id, user_id, type, title, message, COALESCE(related_entity_type,''), COALESCE(related_entity_id,''), read, created_at
        FROM notifications WHERE user_id = $1 ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()
	var result []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.RelatedEntityType, &n.RelatedEntityID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (db *PostgresDatabase) MarkNotificationRead(id, userID string) error {
	res, err := db.db.Exec(`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("notification %w", ErrNotFound)
	}
	return nil
}

// HealthCheck pings the database.
func (db *PostgresDatabase) HealthCheck() error {
	return db.db.Ping()
}

// Close closes the connection pool.
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
