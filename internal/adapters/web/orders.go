package web

import (
	"net/http"
	"net/url"

	"alltech-erp/internal/app"

	"github.com/go-chi/chi/v5"
)

// apiListParties handles GET /api/parties?type=customer|supplier.
func (h *Handler) apiListParties(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListParties(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateParty handles POST /api/parties.
func (h *Handler) apiCreateParty(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Type  string `json:"type"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	party, err := h.svc.CreateParty(r.Context(), app.CreatePartyRequest(body))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, party)
}

// orderItemBody is one purchase order line as sent by clients.
type orderItemBody struct {
	ProjectNo         string     `json:"project_no"`
	PartNo            string     `json:"part_no"`
	MaterialNo        string     `json:"material_no"`
	Description       string     `json:"description"`
	UOM               string     `json:"uom"`
	Quantity          flexNumber `json:"quantity"`
	UnitPrice         flexNumber `json:"unit_price"`
	LeadTime          string     `json:"lead_time"`
	DueDate           string     `json:"due_date"`
	PenaltyPercentage flexNumber `json:"penalty_percentage"`
}

func toOrderItemRequests(body []orderItemBody) []app.PurchaseOrderItemRequest {
	if body == nil {
		return nil
	}
	out := make([]app.PurchaseOrderItemRequest, 0, len(body))
	for _, b := range body {
		out = append(out, app.PurchaseOrderItemRequest{
			ProjectNo:         b.ProjectNo,
			PartNo:            b.PartNo,
			MaterialNo:        b.MaterialNo,
			Description:       b.Description,
			UOM:               b.UOM,
			Quantity:          string(b.Quantity),
			UnitPrice:         string(b.UnitPrice),
			LeadTime:          b.LeadTime,
			DueDate:           b.DueDate,
			PenaltyPercentage: string(b.PenaltyPercentage),
		})
	}
	return out
}

// apiListPurchaseOrders handles GET /api/purchase-orders.
func (h *Handler) apiListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.svc.ListPurchaseOrders(r.Context(), app.ListPurchaseOrdersRequest{
		OrderType: q.Get("order_type"),
		Status:    q.Get("status"),
		Search:    q.Get("search"),
		Page:      queryInt(r, "page"),
		Limit:     queryInt(r, "limit"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreatePurchaseOrder handles POST /api/purchase-orders.
func (h *Handler) apiCreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PONumber           string          `json:"po_number"`
		OrderType          string          `json:"order_type"`
		CustomerSupplierID int             `json:"customer_supplier_id"`
		PenaltyPercentage  flexNumber      `json:"penalty_percentage"`
		Items              []orderItemBody `json:"items"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if body.PONumber == "" {
		writeError(w, r, "po_number is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if len(body.Items) == 0 {
		writeError(w, r, "at least one item is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	po, err := h.svc.CreatePurchaseOrder(r.Context(), app.CreatePurchaseOrderRequest{
		UserID:             userID(r),
		PONumber:           body.PONumber,
		OrderType:          body.OrderType,
		CustomerSupplierID: body.CustomerSupplierID,
		PenaltyPercentage:  string(body.PenaltyPercentage),
		Items:              toOrderItemRequests(body.Items),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, po)
}

// apiGetPurchaseOrder handles GET /api/purchase-orders/{id}.
func (h *Handler) apiGetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	po, err := h.svc.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, po)
}

// apiGetPurchaseOrderByNumber handles GET /api/purchase-orders/by-number/{poNumber}.
func (h *Handler) apiGetPurchaseOrderByNumber(w http.ResponseWriter, r *http.Request) {
	// chi matches on RawPath when the number contains escaped characters.
	poNumber, err := url.PathUnescape(chi.URLParam(r, "poNumber"))
	if err != nil {
		writeError(w, r, "invalid po_number", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	po, err := h.svc.GetPurchaseOrderByNumber(r.Context(), poNumber)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, po)
}

// apiUpdatePurchaseOrder handles PUT /api/purchase-orders/{id}.
// An empty penalty_percentage string clears the penalty.
func (h *Handler) apiUpdatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		PenaltyPercentage *flexNumber     `json:"penalty_percentage"`
		Status            *string         `json:"status"`
		Items             []orderItemBody `json:"items"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	req := app.UpdatePurchaseOrderRequest{
		Status: body.Status,
		Items:  toOrderItemRequests(body.Items),
	}
	if body.PenaltyPercentage != nil {
		pct := string(*body.PenaltyPercentage)
		req.PenaltyPercentage = &pct
	}

	po, err := h.svc.UpdatePurchaseOrder(r.Context(), id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, po)
}

// apiDeletePurchaseOrder handles DELETE /api/purchase-orders/{id}.
func (h *Handler) apiDeletePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeletePurchaseOrder(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiRecomputePurchaseOrder handles POST /api/purchase-orders/{id}/recompute.
func (h *Handler) apiRecomputePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.RecomputeOrderStatus(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
