package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/inventory/service"
)

type mockStockAdjuster struct {
	AdjustStockFunc func(ctx context.Context, adj service.Adjustment) (*domain.LedgerEntry, error)
}

func (m *mockStockAdjuster) AdjustStock(ctx context.Context, adj service.Adjustment) (*domain.LedgerEntry, error) {
	return m.AdjustStockFunc(ctx, adj)
}

type mockIngredientService struct {
	HistoryFunc          func(ctx context.Context, ingredientID int64, limit int) ([]domain.LedgerEntry, error)
	GetIngredientFunc    func(ctx context.Context, ingredientID int64) (*domain.Ingredient, error)
	ListIngredientsFunc  func(ctx context.Context) ([]domain.Ingredient, error)
	CreateIngredientFunc func(ctx context.Context, in service.NewIngredient) (*domain.Ingredient, error)
}

func (m *mockIngredientService) History(ctx context.Context, ingredientID int64, limit int) ([]domain.LedgerEntry, error) {
	return m.HistoryFunc(ctx, ingredientID, limit)
}

func (m *mockIngredientService) GetIngredient(ctx context.Context, ingredientID int64) (*domain.Ingredient, error) {
	return m.GetIngredientFunc(ctx, ingredientID)
}

func (m *mockIngredientService) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	return m.ListIngredientsFunc(ctx)
}

func (m *mockIngredientService) CreateIngredient(ctx context.Context, in service.NewIngredient) (*domain.Ingredient, error) {
	return m.CreateIngredientFunc(ctx, in)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestRouter(adjuster StockAdjuster, ingredients IngredientService) http.Handler {
	ctrl := NewInventoryController(adjuster, ingredients, zap.NewNop())
	r := chi.NewRouter()
	r.Route("/ingredients", ctrl.RegisterRoutes)
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAdjustStock_OK(t *testing.T) {
	var got service.Adjustment
	adjuster := &mockStockAdjuster{
		AdjustStockFunc: func(ctx context.Context, adj service.Adjustment) (*domain.LedgerEntry, error) {
			got = adj
			return &domain.LedgerEntry{
				ID:            11,
				IngredientID:  adj.IngredientID,
				Operation:     adj.Operation,
				Quantity:      adj.Quantity,
				PreviousStock: d("1.5"),
				NewStock:      d("3.75"),
				Actor:         adj.Actor,
				CreatedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			}, nil
		},
	}

	rec := serve(newTestRouter(adjuster, &mockIngredientService{}), http.MethodPost, "/ingredients/4/adjustments",
		`{"quantity":"2.25","operation":"restock","actor":"manager"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(4), got.IngredientID)
	assert.True(t, d("2.25").Equal(got.Quantity))
	assert.Equal(t, domain.OperationRestock, got.Operation)

	var body struct {
		TraceID string `json:"traceId"`
		Entry   struct {
			NewStock string `json:"newStock"`
		} `json:"entry"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.TraceID)
	assert.Equal(t, "3.75", body.Entry.NewStock)
}

func TestAdjustStock_BadRequests(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		body      string
		wantField string
	}{
		{name: "bad id", path: "/ingredients/x/adjustments", body: `{}`, wantField: "ingredientId"},
		{name: "bad json", path: "/ingredients/4/adjustments", body: `{`, wantField: "body"},
		{name: "bad quantity", path: "/ingredients/4/adjustments", body: `{"quantity":"lots","operation":"restock"}`, wantField: "quantity"},
		{name: "zero quantity", path: "/ingredients/4/adjustments", body: `{"quantity":"0","operation":"restock"}`, wantField: "quantity"},
		{name: "bad operation", path: "/ingredients/4/adjustments", body: `{"quantity":"1","operation":"theft"}`, wantField: "operation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adjuster := &mockStockAdjuster{
				AdjustStockFunc: func(ctx context.Context, adj service.Adjustment) (*domain.LedgerEntry, error) {
					t.Fatal("adjuster must not be called")
					return nil, nil
				},
			}

			rec := serve(newTestRouter(adjuster, &mockIngredientService{}), http.MethodPost, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body struct {
				Details []apperrors.ValidationDetail `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.NotEmpty(t, body.Details)
			assert.Equal(t, tt.wantField, body.Details[0].Field)
		})
	}
}

func TestAdjustStock_InsufficientStock(t *testing.T) {
	adjuster := &mockStockAdjuster{
		AdjustStockFunc: func(ctx context.Context, adj service.Adjustment) (*domain.LedgerEntry, error) {
			return nil, apperrors.NewInsufficientStockError(4, "Beef", d("1"), d("3"))
		},
	}

	rec := serve(newTestRouter(adjuster, &mockIngredientService{}), http.MethodPost, "/ingredients/4/adjustments",
		`{"quantity":"-3","operation":"spoilage","actor":"chef"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"requested":"3"`)
}

func TestHistory(t *testing.T) {
	var gotLimit int
	ingredients := &mockIngredientService{
		HistoryFunc: func(ctx context.Context, ingredientID int64, limit int) ([]domain.LedgerEntry, error) {
			gotLimit = limit
			if ingredientID == 9 {
				return nil, apperrors.NewNotFoundError("ingredient 9 not found")
			}
			return []domain.LedgerEntry{
				{ID: 1, IngredientID: ingredientID, Operation: domain.OperationRestock, Quantity: d("2"), NewStock: d("2")},
			}, nil
		},
	}
	h := newTestRouter(&mockStockAdjuster{}, ingredients)

	rec := serve(h, http.MethodGet, "/ingredients/4/history?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, gotLimit)
	assert.Contains(t, rec.Body.String(), `"operation":"restock"`)

	rec = serve(h, http.MethodGet, "/ingredients/4/history?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodGet, "/ingredients/9/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngredientQueries(t *testing.T) {
	beef := domain.Ingredient{ID: 4, Name: "Beef", Unit: "kg", CurrentStock: d("0.5"), MinimumStock: d("1"), IsActive: true}
	ingredients := &mockIngredientService{
		GetIngredientFunc: func(ctx context.Context, ingredientID int64) (*domain.Ingredient, error) {
			return &beef, nil
		},
		ListIngredientsFunc: func(ctx context.Context) ([]domain.Ingredient, error) {
			return nil, nil
		},
	}
	h := newTestRouter(&mockStockAdjuster{}, ingredients)

	rec := serve(h, http.MethodGet, "/ingredients/4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lowStock":true`)

	rec = serve(h, http.MethodGet, "/ingredients", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateIngredient(t *testing.T) {
	var got service.NewIngredient
	ingredients := &mockIngredientService{
		CreateIngredientFunc: func(ctx context.Context, in service.NewIngredient) (*domain.Ingredient, error) {
			got = in
			return &domain.Ingredient{ID: 12, Name: in.Name, Unit: in.Unit, CurrentStock: in.InitialStock, IsActive: true}, nil
		},
	}
	h := newTestRouter(&mockStockAdjuster{}, ingredients)

	rec := serve(h, http.MethodPost, "/ingredients", `{"name":"Cheese","unit":"kg","initialStock":"3.5"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, d("3.5").Equal(got.InitialStock))
	assert.Equal(t, "api", got.Actor)

	rec = serve(h, http.MethodPost, "/ingredients", `{"name":"Cheese","unit":"kg","unitCost":"cheap"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
