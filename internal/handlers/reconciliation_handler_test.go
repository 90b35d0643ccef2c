package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/models"
	"homeledger/internal/services"
)

type mockReconciliationService struct {
	calculateFn      func(userID, householdID uint, monthKey string) (*services.ReconciliationResult, error)
	settleFn         func(userID, householdID uint, monthKey string) (*models.Settlement, error)
	unsettleFn       func(userID, householdID uint, monthKey string) error
	listFn           func(userID, householdID uint) ([]models.Settlement, error)
	isMonthSettledFn func(householdID uint, monthKey string) (bool, error)
}

func (m *mockReconciliationService) CalculateReconciliation(userID, householdID uint, monthKey string) (*services.ReconciliationResult, error) {
	if m.calculateFn != nil {
		return m.calculateFn(userID, householdID, monthKey)
	}
	return &services.ReconciliationResult{}, nil
}

func (m *mockReconciliationService) Settle(userID, householdID uint, monthKey string) (*models.Settlement, error) {
	if m.settleFn != nil {
		return m.settleFn(userID, householdID, monthKey)
	}
	return &models.Settlement{}, nil
}

func (m *mockReconciliationService) Unsettle(userID, householdID uint, monthKey string) error {
	if m.unsettleFn != nil {
		return m.unsettleFn(userID, householdID, monthKey)
	}
	return nil
}

func (m *mockReconciliationService) ListSettlements(userID, householdID uint) ([]models.Settlement, error) {
	if m.listFn != nil {
		return m.listFn(userID, householdID)
	}
	return nil, nil
}

func (m *mockReconciliationService) IsMonthSettled(householdID uint, monthKey string) (bool, error) {
	if m.isMonthSettledFn != nil {
		return m.isMonthSettledFn(householdID, monthKey)
	}
	return false, nil
}

func setupReconciliationRouter(handler *ReconciliationHandler) *gin.Engine {
	r := gin.New()
	grp := r.Group("/households/:household_id", injectUserID(1))
	grp.GET("/reconciliation/:month", handler.GetReconciliation)
	grp.GET("/settlements", handler.ListSettlements)
	grp.POST("/settlements/:month", handler.SettleMonth)
	grp.DELETE("/settlements/:month", handler.UnsettleMonth)
	return r
}

func TestReconciliationHandler_GetReconciliation(t *testing.T) {
	t.Run("returns 200 with the report", func(t *testing.T) {
		svc := &mockReconciliationService{
			calculateFn: func(userID, householdID uint, monthKey string) (*services.ReconciliationResult, error) {
				if userID != 1 || householdID != 5 || monthKey != "2026-01" {
					t.Errorf("unexpected args %d %d %s", userID, householdID, monthKey)
				}
				return &services.ReconciliationResult{
					MonthKey: monthKey,
					Currency: models.CurrencyUSD,
					Message:  "Bob owes Alice $5.00",
				}, nil
			},
		}
		handler := NewReconciliationHandler(svc, &mockAuditService{})
		r := setupReconciliationRouter(handler)

		rec := doRequest(r, "GET", "/households/5/reconciliation/2026-01", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		report := result["reconciliation"].(map[string]interface{})
		if report["settlement_message"] != "Bob owes Alice $5.00" {
			t.Errorf("unexpected message %v", report["settlement_message"])
		}
	})

	t.Run("returns 400 on invalid month key", func(t *testing.T) {
		svc := &mockReconciliationService{
			calculateFn: func(_, _ uint, _ string) (*services.ReconciliationResult, error) {
				return nil, apperrors.ErrInvalidMonthKey
			},
		}
		handler := NewReconciliationHandler(svc, &mockAuditService{})
		r := setupReconciliationRouter(handler)

		rec := doRequest(r, "GET", "/households/5/reconciliation/2026-13", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_MONTH_KEY")
	})

	t.Run("returns 400 on bad household id", func(t *testing.T) {
		handler := NewReconciliationHandler(&mockReconciliationService{}, &mockAuditService{})
		r := setupReconciliationRouter(handler)

		rec := doRequest(r, "GET", "/households/abc/reconciliation/2026-01", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestReconciliationHandler_SettleMonth(t *testing.T) {
	t.Run("returns 201 with the settlement", func(t *testing.T) {
		svc := &mockReconciliationService{
			settleFn: func(_, _ uint, monthKey string) (*models.Settlement, error) {
				return &models.Settlement{
					Base:     models.Base{ID: 3},
					MonthKey: monthKey,
					Amount:   decimal.RequireFromString("5.00"),
				}, nil
			},
		}
		handler := NewReconciliationHandler(svc, &mockAuditService{})
		r := setupReconciliationRouter(handler)

		rec := doRequest(r, "POST", "/households/5/settlements/2026-01", "")

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		settlement := result["settlement"].(map[string]interface{})
		if settlement["month_key"] != "2026-01" {
			t.Errorf("unexpected month key %v", settlement["month_key"])
		}
	})

	t.Run("returns 409 when already settled", func(t *testing.T) {
		svc := &mockReconciliationService{
			settleFn: func(_, _ uint, _ string) (*models.Settlement, error) {
				return nil, apperrors.ErrSettlementExists
			},
		}
		handler := NewReconciliationHandler(svc, &mockAuditService{})
		r := setupReconciliationRouter(handler)

		rec := doRequest(r, "POST", "/households/5/settlements/2026-01", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SETTLEMENT_EXISTS")
	})

	t.Run("returns 400 on empty month", func(t *testing.T) {
		svc := &mockReconciliationService{
			settleFn: func(_, _ uint, _ string) (*models.Settlement, error) {
				return nil, apperrors.ErrNoTransactions
			},
		}
		handler := NewReconciliationHandler(svc, &mockAuditService{})
		r := setupReconciliationRouter(handler)

		rec := doRequest(r, "POST", "/households/5/settlements/2026-01", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NO_TRANSACTIONS_IN_MONTH")
	})
}

func TestReconciliationHandler_UnsettleMonth(t *testing.T) {
	t.Run("returns 200", func(t *testing.T) {
		handler := NewReconciliationHandler(&mockReconciliationService{}, &mockAuditService{})
		r := setupReconciliationRouter(handler)

		rec := doRequest(r, "DELETE", "/households/5/settlements/2026-01", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when not settled", func(t *testing.T) {
		svc := &mockReconciliationService{
			unsettleFn: func(_, _ uint, _ string) error {
				return apperrors.ErrSettlementNotFound
			},
		}
		handler := NewReconciliationHandler(svc, &mockAuditService{})
		r := setupReconciliationRouter(handler)

		rec := doRequest(r, "DELETE", "/households/5/settlements/2026-01", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
