package services

import (
	"errors"
	"fmt"

	"github.com/cOsMiCTr/famhub-backend/pkg/database"
	"github.com/cOsMiCTr/famhub-backend/pkg/models"

	"github.com/shopspring/decimal"
)

// LinkedDataService is the read-only gateway over an accepted
// connection. Authorization is re-evaluated on every call against the
// connection's current status; a revoke or expiry between two requests
// denies the second one. Nothing here ever writes financial data.
type LinkedDataService struct {
	db database.DatabaseInterface
}

func NewLinkedDataService(db database.DatabaseInterface) *LinkedDataService {
	return &LinkedDataService{db: db}
}

// authorize loads the connection and checks that it is currently
// accepted and that userID is one of its two parties.
func (s *LinkedDataService) authorize(userID, connectionID string) (*models.PersonConnection, error) {
	conn, err := s.db.GetConnection(connectionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	if conn.Status != models.ConnectionAccepted || !conn.IsParty(userID) {
		return nil, ErrAccessDenied
	}
	return conn, nil
}

// Expenses returns the expenses tagged to the connection's external
// person, filtered by date range and category. Every row is annotated
// read-only with the inviter as the sharing source.
func (s *LinkedDataService) Expenses(userID, connectionID string, filter models.ExpenseFilter) ([]models.LinkedExpense, error) {
	conn, err := s.authorize(userID, connectionID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.db.ListExpensesByPerson(conn.ExternalPersonID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load linked expenses: %w", err)
	}

	linked := make([]models.LinkedExpense, 0, len(expenses))
	for _, e := range expenses {
		linked = append(linked, models.LinkedExpense{
			Expense:          e,
			IsReadOnly:       true,
			SharedFromUserID: conn.InvitedByUserID,
		})
	}
	return linked, nil
}

// Income returns the linked income for the connection. Income records
// cannot be tagged to external persons, so after the authorization
// check this is always an empty list, never an error.
func (s *LinkedDataService) Income(userID, connectionID string) ([]models.LinkedIncome, error) {
	if _, err := s.authorize(userID, connectionID); err != nil {
		return nil, err
	}
	return []models.LinkedIncome{}, nil
}

// Assets returns the union of assets referenced by the person's linked
// expenses and assets co-owned by the person together with any of the
// invitee's households, deduplicated by id.
func (s *LinkedDataService) Assets(userID, connectionID string) ([]models.LinkedAsset, error) {
	conn, err := s.authorize(userID, connectionID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var assets []models.Asset

	expenses, err := s.db.ListExpensesByPerson(conn.ExternalPersonID, models.ExpenseFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load linked expenses: %w", err)
	}
	var assetIDs []string
	for _, e := range expenses {
		if e.AssetID != "" && !seen[e.AssetID] {
			seen[e.AssetID] = true
			assetIDs = append(assetIDs, e.AssetID)
		}
	}
	if len(assetIDs) > 0 {
		referenced, err := s.db.GetAssetsByIDs(assetIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load referenced assets: %w", err)
		}
		assets = append(assets, referenced...)
	}

	households, err := s.db.ListUserHouseholds(conn.InvitedUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load households: %w", err)
	}
	if len(households) > 0 {
		ids := make([]string, 0, len(households))
		for _, h := range households {
			ids = append(ids, h.ID)
		}
		shared, err := s.db.ListAssetsSharedWithPerson(ids, conn.ExternalPersonID)
		if err != nil {
			return nil, fmt.Errorf("failed to load co-owned assets: %w", err)
		}
		for _, a := range shared {
			if !seen[a.ID] {
				seen[a.ID] = true
				assets = append(assets, a)
			}
		}
	}

	linked := make([]models.LinkedAsset, 0, len(assets))
	for _, a := range assets {
		linked = append(linked, models.LinkedAsset{
			Asset:            a,
			IsReadOnly:       true,
			SharedFromUserID: conn.InvitedByUserID,
		})
	}
	return linked, nil
}

// Summary aggregates the three linked categories into counts and
// currency-native totals. The categories are computed independently: a
// failure in one degrades that bucket to zero instead of failing the
// whole call.
func (s *LinkedDataService) Summary(userID, connectionID string) (*models.LinkedDataSummary, error) {
	if _, err := s.authorize(userID, connectionID); err != nil {
		return nil, err
	}

	summary := &models.LinkedDataSummary{
		Expenses: emptyBucket(),
		Income:   emptyBucket(),
		Assets:   emptyBucket(),
	}

	if expenses, err := s.Expenses(userID, connectionID, models.ExpenseFilter{}); err == nil {
		for _, e := range expenses {
			summary.Expenses.Count++
			summary.Expenses.Totals[e.Currency] = summary.Expenses.Totals[e.Currency].Add(e.Amount)
		}
	} else {
		fmt.Printf("⚠️ Summary: expense bucket degraded: %v\n", err)
	}

	if income, err := s.Income(userID, connectionID); err == nil {
		for _, i := range income {
			summary.Income.Count++
			summary.Income.Totals[i.Currency] = summary.Income.Totals[i.Currency].Add(i.Amount)
		}
	} else {
		fmt.Printf("⚠️ Summary: income bucket degraded: %v\n", err)
	}

	if assets, err := s.Assets(userID, connectionID); err == nil {
		for _, a := range assets {
			summary.Assets.Count++
			summary.Assets.Totals[a.Currency] = summary.Assets.Totals[a.Currency].Add(a.Value)
		}
	} else {
		fmt.Printf("⚠️ Summary: asset bucket degraded: %v\n", err)
	}

	return summary, nil
}

func emptyBucket() models.SummaryBucket {
	return models.SummaryBucket{Totals: make(map[string]decimal.Decimal)}
}
