package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"alltech-erp/internal/app"
	"alltech-erp/internal/core"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testSecret = "test-secret"

// fakeApp implements the routes under test; everything else panics via the
// nil embedded interface and surfaces as a 500 from Recoverer.
type fakeApp struct {
	app.ApplicationService

	dashboardReq app.DashboardRequest
	createPO     app.CreatePurchaseOrderRequest
	createInv    app.CreateInvoiceRequest
	invSide      string
	updatePO     app.UpdatePurchaseOrderRequest
	err          error
}

func (f *fakeApp) GetDashboard(_ context.Context, req app.DashboardRequest) (*core.DashboardPage, error) {
	f.dashboardReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &core.DashboardPage{
		Rows:       []core.CombinedRow{{CatalogKey: core.CatalogKey{ProjectNo: "PRJ-1"}}},
		AsOfDate:   "2026-04-15",
		Pagination: core.NewPage(1, 50, 1),
	}, nil
}

func (f *fakeApp) ExportDashboard(_ context.Context, req app.DashboardRequest) (*excelize.File, string, error) {
	wb, err := core.BuildDashboardWorkbook(nil)
	return wb, "dashboard_2026-04-15.xlsx", err
}

func (f *fakeApp) CreatePurchaseOrder(_ context.Context, req app.CreatePurchaseOrderRequest) (*core.PurchaseOrder, error) {
	f.createPO = req
	if f.err != nil {
		return nil, f.err
	}
	return &core.PurchaseOrder{ID: 1, PONumber: req.PONumber, Status: core.StatusApproved}, nil
}

func (f *fakeApp) UpdatePurchaseOrder(_ context.Context, id int, req app.UpdatePurchaseOrderRequest) (*core.PurchaseOrder, error) {
	f.updatePO = req
	return &core.PurchaseOrder{ID: id}, nil
}

func (f *fakeApp) GetPurchaseOrder(_ context.Context, id int) (*core.PurchaseOrder, error) {
	return nil, fmt.Errorf("purchase order %d: %w", id, core.ErrNotFound)
}

func (f *fakeApp) GetPurchaseOrderByNumber(_ context.Context, poNumber string) (*core.PurchaseOrder, error) {
	return &core.PurchaseOrder{ID: 3, PONumber: poNumber}, nil
}

func (f *fakeApp) RecomputeOrderStatus(_ context.Context, id int) (*app.RecomputeResult, error) {
	return &app.RecomputeResult{OrderID: id, Status: core.StatusPartiallyDelivered}, nil
}

func (f *fakeApp) CreateInvoice(_ context.Context, side string, req app.CreateInvoiceRequest) (*core.Invoice, error) {
	f.invSide, f.createInv = side, req
	return &core.Invoice{ID: 9, Side: side, InvoiceNumber: req.InvoiceNumber}, nil
}

func (f *fakeApp) DeleteInvoiceItem(_ context.Context, side string, invoiceID, itemID int) error {
	f.invSide = side
	return nil
}

func token(t *testing.T, secret string, userID int, ttl time.Duration) string {
	return tokenWithRole(t, secret, userID, RoleAdmin, ttl)
}

func tokenWithRole(t *testing.T, secret string, userID int, role string, ttl time.Duration) string {
	t.Helper()
	claims := &jwtClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, h http.Handler, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+token(t, testSecret, 42, time.Hour))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func TestHealthIsPublic(t *testing.T) {
	h := NewHandler(&fakeApp{}, nil, "", testSecret)
	rec := do(t, h, http.MethodGet, "/api/health", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequireAuth(t *testing.T) {
	h := NewHandler(&fakeApp{}, nil, "", testSecret)

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + token(t, "other", 1, time.Hour), "", http.StatusUnauthorized},
		{"expired", "Bearer " + token(t, testSecret, 1, -time.Minute), "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", "", http.StatusUnauthorized},
		{"bearer", "Bearer " + token(t, testSecret, 1, time.Hour), "", http.StatusOK},
		{"cookie", "", token(t, testSecret, 1, time.Hour), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "auth_token", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
			}
		})
	}
}

func TestDashboard_PassesQuery(t *testing.T) {
	fake := &fakeApp{}
	h := NewHandler(fake, nil, "", testSecret)

	rec := do(t, h, http.MethodGet, "/api/dashboard?search=bolt&as_of_date=2026-04-15&page=2&limit=abc", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, app.DashboardRequest{Search: "bolt", AsOfDate: "2026-04-15", Page: 2, Limit: 0}, fake.dashboardReq)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	rows := body["rows"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "PRJ-1", row["project_no"])
	assert.Nil(t, row["supplier_approved"])
	assert.Equal(t, float64(1), body["pagination"].(map[string]any)["total"])
}

func TestDashboard_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("bad date: %w", core.ErrValidation), http.StatusBadRequest, "BAD_REQUEST"},
		{fmt.Errorf("gone: %w", core.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("dup: %w", core.ErrConflict), http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := NewHandler(&fakeApp{err: tt.err}, nil, "", testSecret)
			rec := do(t, h, http.MethodGet, "/api/dashboard", "", true)
			assert.Equal(t, tt.status, rec.Code)
			e := decodeError(t, rec)
			assert.Equal(t, tt.code, e.Code)
			assert.NotEmpty(t, e.RequestID)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, e.Error, "connection refused", "internal detail is not leaked")
			}
		})
	}
}

func TestDashboardExport(t *testing.T) {
	h := NewHandler(&fakeApp{}, nil, "", testSecret)
	rec := do(t, h, http.MethodGet, "/api/dashboard/export", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "dashboard_2026-04-15.xlsx")

	wb, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer wb.Close()
	v, err := wb.GetCellValue("Dashboard", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Project No", v)
}

func TestCreatePurchaseOrder_AcceptsStringAndNumberAmounts(t *testing.T) {
	fake := &fakeApp{}
	h := NewHandler(fake, nil, "", testSecret)

	rec := do(t, h, http.MethodPost, "/api/purchase-orders", `{
		"po_number": "PO-100",
		"order_type": "customer",
		"customer_supplier_id": 3,
		"items": [
			{"project_no": "PRJ-1", "quantity": 10, "unit_price": "25.50", "due_date": "2026-05-01"},
			{"project_no": "PRJ-2", "quantity": "oops", "unit_price": null}
		]
	}`, true)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 42, fake.createPO.UserID)
	require.Len(t, fake.createPO.Items, 2)
	assert.Equal(t, "10", fake.createPO.Items[0].Quantity)
	assert.Equal(t, "25.50", fake.createPO.Items[0].UnitPrice)
	assert.Equal(t, "oops", fake.createPO.Items[1].Quantity)
	assert.Equal(t, "", fake.createPO.Items[1].UnitPrice)
}

func TestCreatePurchaseOrder_RequiresItems(t *testing.T) {
	h := NewHandler(&fakeApp{}, nil, "", testSecret)
	rec := do(t, h, http.MethodPost, "/api/purchase-orders", `{"po_number":"PO-1","items":[]}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/purchase-orders", `{not json`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePurchaseOrder_Conflict(t *testing.T) {
	h := NewHandler(&fakeApp{err: fmt.Errorf("po_number exists: %w", core.ErrConflict)}, nil, "", testSecret)
	rec := do(t, h, http.MethodPost, "/api/purchase-orders", `{"po_number":"PO-1","items":[{"quantity":1}]}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdatePurchaseOrder_OptionalFields(t *testing.T) {
	fake := &fakeApp{}
	h := NewHandler(fake, nil, "", testSecret)

	rec := do(t, h, http.MethodPut, "/api/purchase-orders/5", `{"penalty_percentage": ""}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, fake.updatePO.PenaltyPercentage)
	assert.Equal(t, "", *fake.updatePO.PenaltyPercentage)
	assert.Nil(t, fake.updatePO.Status)
	assert.Nil(t, fake.updatePO.Items)
}

func TestGetPurchaseOrder(t *testing.T) {
	h := NewHandler(&fakeApp{}, nil, "", testSecret)

	rec := do(t, h, http.MethodGet, "/api/purchase-orders/abc", "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/purchase-orders/77", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestGetPurchaseOrderByNumber(t *testing.T) {
	h := NewHandler(&fakeApp{}, nil, "", testSecret)
	rec := do(t, h, http.MethodGet, "/api/purchase-orders/by-number/PO-100%2FA", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var po core.PurchaseOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &po))
	assert.Equal(t, "PO-100/A", po.PONumber)
}

func TestRecomputePurchaseOrder(t *testing.T) {
	h := NewHandler(&fakeApp{}, nil, "", testSecret)
	rec := do(t, h, http.MethodPost, "/api/purchase-orders/7/recompute", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"order_id":7,"status":"partially_delivered"}`, rec.Body.String())
}

func TestInvoiceRoutes_SelectSide(t *testing.T) {
	fake := &fakeApp{}
	h := NewHandler(fake, nil, "", testSecret)

	rec := do(t, h, http.MethodPost, "/api/purchase-invoices", `{
		"invoice_number": "PI-1", "linked_po_number": "SPO-1",
		"items": [{"quantity": 4, "unit_price": 2.5}]
	}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "purchase", fake.invSide)
	require.Len(t, fake.createInv.Items, 1)
	assert.Equal(t, "4", fake.createInv.Items[0].Quantity)
	assert.Equal(t, "2.5", fake.createInv.Items[0].UnitPrice)

	rec = do(t, h, http.MethodDelete, "/api/sales-invoices/3/items/11", "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "sales", fake.invSide)
}

func TestRecovererReturnsJSON500(t *testing.T) {
	h := NewHandler(&fakeApp{}, nil, "", testSecret)
	// ListParties is not implemented by the fake and panics.
	rec := do(t, h, http.MethodGet, "/api/parties", "", true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestCORS(t *testing.T) {
	h := NewHandler(&fakeApp{}, nil, "https://erp.example.com", testSecret)

	req := httptest.NewRequest(http.MethodOptions, "/api/dashboard", nil)
	req.Header.Set("Origin", "https://erp.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://erp.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestBodyLimit(t *testing.T) {
	h := NewHandler(&fakeApp{}, nil, "", testSecret)
	body := `{"name":"` + strings.Repeat("a", 2<<20) + `"}`
	rec := do(t, h, http.MethodPost, "/api/parties", body, true)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "REQUEST_TOO_LARGE", decodeError(t, rec).Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	h := NewHandler(&fakeApp{}, nil, "", testSecret)
	clerk := "Bearer " + tokenWithRole(t, testSecret, 5, "clerk", time.Hour)

	for _, tt := range []struct{ method, path, body string }{
		{http.MethodPost, "/api/purchase-orders/7/recompute", ""},
		{http.MethodPut, "/api/purchase-orders/7", `{"status":"approved"}`},
	} {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		req.Header.Set("Authorization", clerk)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, tt.path)
		assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Code)
	}

	// Non-admin callers can still read.
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", clerk)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
