package services

import (
	"errors"
	"testing"
	"time"

	"github.com/cOsMiCTr/famhub-backend/pkg/models"

	"github.com/shopspring/decimal"
)

type linkedEnv struct {
	*testEnv
	linked *LinkedDataService
	conn   *models.PersonConnection
}

// newLinkedEnv extends the base fixture with an accepted connection,
// two linked expenses (one asset-backed) and an asset co-owned by the
// person and the invitee's own household.
func newLinkedEnv(t *testing.T) *linkedEnv {
	t.Helper()
	env := newTestEnv(t)

	conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := env.connections.Accept(env.invitee.ID, conn.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	conn.Status = models.ConnectionAccepted

	loanAsset := &models.Asset{
		HouseholdID: env.household.ID,
		Name:        "Family Car",
		Value:       decimal.NewFromInt(18000),
		Currency:    "EUR",
		CreatedBy:   env.inviter.ID,
	}
	if err := env.db.CreateAsset(loanAsset); err != nil {
		t.Fatal(err)
	}

	carPayment := &models.Expense{
		HouseholdID: env.household.ID,
		Title:       "Car payment",
		Category:    "transport",
		Amount:      decimal.NewFromInt(350),
		Currency:    "EUR",
		StartDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		AssetID:     loanAsset.ID,
		CreatedBy:   env.inviter.ID,
	}
	groceries := &models.Expense{
		HouseholdID: env.household.ID,
		Title:       "Groceries",
		Category:    "food",
		Amount:      decimal.NewFromInt(80),
		Currency:    "USD",
		StartDate:   time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		CreatedBy:   env.inviter.ID,
	}
	for _, e := range []*models.Expense{carPayment, groceries} {
		if err := env.db.CreateExpense(e); err != nil {
			t.Fatal(err)
		}
		if err := env.db.LinkExpenseToPerson(e.ID, env.person.ID); err != nil {
			t.Fatal(err)
		}
	}

	// asset held jointly by the external person and the invitee's household
	inviteeHousehold := &models.Household{Name: "Alice's Household", OwnerID: env.invitee.ID}
	if err := env.db.CreateHousehold(inviteeHousehold); err != nil {
		t.Fatal(err)
	}
	summerHouse := &models.Asset{
		HouseholdID: env.household.ID,
		Name:        "Summer House",
		Value:       decimal.NewFromInt(250000),
		Currency:    "EUR",
		CreatedBy:   env.inviter.ID,
	}
	if err := env.db.CreateAsset(summerHouse); err != nil {
		t.Fatal(err)
	}
	for _, o := range []*models.AssetOwnership{
		{AssetID: summerHouse.ID, ExternalPersonID: env.person.ID, Percentage: decimal.NewFromInt(50)},
		{AssetID: summerHouse.ID, HouseholdID: inviteeHousehold.ID, Percentage: decimal.NewFromInt(50)},
	} {
		if err := env.db.AddAssetOwnership(o); err != nil {
			t.Fatal(err)
		}
	}

	return &linkedEnv{
		testEnv: env,
		linked:  NewLinkedDataService(env.db),
		conn:    conn,
	}
}

func TestLinkedExpensesAnnotated(t *testing.T) {
	env := newLinkedEnv(t)

	for _, userID := range []string{env.inviter.ID, env.invitee.ID} {
		expenses, err := env.linked.Expenses(userID, env.conn.ID, models.ExpenseFilter{})
		if err != nil {
			t.Fatalf("expenses for %s: %v", userID, err)
		}
		if len(expenses) != 2 {
			t.Fatalf("got %d expenses, want 2", len(expenses))
		}
		for _, e := range expenses {
			if !e.IsReadOnly {
				t.Errorf("expense %q not marked read-only", e.Title)
			}
			if e.SharedFromUserID != env.inviter.ID {
				t.Errorf("expense %q shared_from = %s, want inviter", e.Title, e.SharedFromUserID)
			}
		}
	}
}

func TestLinkedExpensesFilter(t *testing.T) {
	env := newLinkedEnv(t)

	byCategory, err := env.linked.Expenses(env.invitee.ID, env.conn.ID, models.ExpenseFilter{Category: "food"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byCategory) != 1 || byCategory[0].Title != "Groceries" {
		t.Errorf("category filter returned %d rows, want only Groceries", len(byCategory))
	}

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	byDate, err := env.linked.Expenses(env.invitee.ID, env.conn.ID, models.ExpenseFilter{From: &from})
	if err != nil {
		t.Fatal(err)
	}
	if len(byDate) != 1 || byDate[0].Title != "Groceries" {
		t.Errorf("date filter returned %d rows, want only Groceries", len(byDate))
	}
}

func TestLinkedIncomeAlwaysEmpty(t *testing.T) {
	env := newLinkedEnv(t)

	// even with household income on the books, nothing is shareable
	if err := env.db.CreateIncome(&models.Income{
		HouseholdID: env.household.ID,
		Title:       "Salary",
		Amount:      decimal.NewFromInt(4000),
		Currency:    "EUR",
		ReceivedAt:  time.Now(),
		CreatedBy:   env.inviter.ID,
	}); err != nil {
		t.Fatal(err)
	}

	income, err := env.linked.Income(env.invitee.ID, env.conn.ID)
	if err != nil {
		t.Fatalf("income: %v", err)
	}
	if income == nil || len(income) != 0 {
		t.Errorf("income = %v, want empty non-nil list", income)
	}
}

func TestLinkedAssetsUnion(t *testing.T) {
	env := newLinkedEnv(t)

	assets, err := env.linked.Assets(env.invitee.ID, env.conn.ID)
	if err != nil {
		t.Fatalf("assets: %v", err)
	}

	names := make(map[string]bool)
	for _, a := range assets {
		names[a.Name] = true
		if !a.IsReadOnly || a.SharedFromUserID != env.inviter.ID {
			t.Errorf("asset %q missing read-only annotation", a.Name)
		}
	}
	if len(assets) != 2 || !names["Family Car"] || !names["Summer House"] {
		t.Errorf("assets = %v, want Family Car (expense-referenced) and Summer House (co-owned)", names)
	}
}

func TestLinkedSummary(t *testing.T) {
	env := newLinkedEnv(t)

	summary, err := env.linked.Summary(env.invitee.ID, env.conn.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.Expenses.Count != 2 {
		t.Errorf("expense count = %d, want 2", summary.Expenses.Count)
	}
	if got := summary.Expenses.Totals["EUR"]; !got.Equal(decimal.NewFromInt(350)) {
		t.Errorf("EUR expense total = %s, want 350", got)
	}
	if got := summary.Expenses.Totals["USD"]; !got.Equal(decimal.NewFromInt(80)) {
		t.Errorf("USD expense total = %s, want 80", got)
	}

	if summary.Income.Count != 0 || len(summary.Income.Totals) != 0 {
		t.Errorf("income bucket = %+v, want empty", summary.Income)
	}

	if summary.Assets.Count != 2 {
		t.Errorf("asset count = %d, want 2", summary.Assets.Count)
	}
	if got := summary.Assets.Totals["EUR"]; !got.Equal(decimal.NewFromInt(268000)) {
		t.Errorf("EUR asset total = %s, want 268000", got)
	}
}

func TestGatewayDeniesAfterRevoke(t *testing.T) {
	env := newLinkedEnv(t)

	if _, err := env.linked.Expenses(env.invitee.ID, env.conn.ID, models.ExpenseFilter{}); err != nil {
		t.Fatalf("expenses before revoke: %v", err)
	}

	if _, err := env.connections.Revoke(env.inviter.ID, env.conn.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if _, err := env.linked.Expenses(env.invitee.ID, env.conn.ID, models.ExpenseFilter{}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expenses after revoke err = %v, want ErrAccessDenied", err)
	}
	if _, err := env.linked.Summary(env.invitee.ID, env.conn.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("summary after revoke err = %v, want ErrAccessDenied", err)
	}
}

func TestGatewayDeniesNonParty(t *testing.T) {
	env := newLinkedEnv(t)

	outsider := &models.User{Email: "outsider@famhub.test"}
	if err := env.db.CreateUser(outsider); err != nil {
		t.Fatal(err)
	}

	if _, err := env.linked.Assets(outsider.ID, env.conn.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("err = %v, want ErrAccessDenied", err)
	}
}

func TestGatewayDeniesPendingConnection(t *testing.T) {
	env := newTestEnv(t)
	linked := NewLinkedDataService(env.db)

	conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := linked.Expenses(env.invitee.ID, conn.ID, models.ExpenseFilter{}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("pending connection err = %v, want ErrAccessDenied", err)
	}
}
