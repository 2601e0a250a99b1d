package web

import (
	"net/http"

	"alltech-erp/internal/app"

	"github.com/go-chi/chi/v5"
)

// invoiceRoutes mounts the CRUD routes for one invoice side.
func (h *Handler) invoiceRoutes(side string) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.apiListInvoices(side))
		r.Post("/", h.apiCreateInvoice(side))
		r.Get("/{id}", h.apiGetInvoice(side))
		r.Put("/{id}", h.apiUpdateInvoice(side))
		r.Delete("/{id}", h.apiDeleteInvoice(side))
		r.Post("/{id}/items", h.apiAddInvoiceItem(side))
		r.Put("/{id}/items/{itemId}", h.apiUpdateInvoiceItem(side))
		r.Delete("/{id}/items/{itemId}", h.apiDeleteInvoiceItem(side))
	}
}

// invoiceItemBody is one invoice line as sent by clients.
type invoiceItemBody struct {
	ProjectNo   string     `json:"project_no"`
	PartNo      string     `json:"part_no"`
	MaterialNo  string     `json:"material_no"`
	Description string     `json:"description"`
	UOM         string     `json:"uom"`
	Quantity    flexNumber `json:"quantity"`
	UnitPrice   flexNumber `json:"unit_price"`
}

func (b invoiceItemBody) request() app.InvoiceItemRequest {
	return app.InvoiceItemRequest{
		ProjectNo:   b.ProjectNo,
		PartNo:      b.PartNo,
		MaterialNo:  b.MaterialNo,
		Description: b.Description,
		UOM:         b.UOM,
		Quantity:    string(b.Quantity),
		UnitPrice:   string(b.UnitPrice),
	}
}

func (h *Handler) apiListInvoices(side string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		result, err := h.svc.ListInvoices(r.Context(), side, app.ListInvoicesRequest{
			LinkedPONumber: q.Get("po_number"),
			Search:         q.Get("search"),
			Page:           queryInt(r, "page"),
			Limit:          queryInt(r, "limit"),
		})
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, result)
	}
}

func (h *Handler) apiCreateInvoice(side string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			InvoiceNumber  string            `json:"invoice_number"`
			PartyID        *int              `json:"party_id"`
			LinkedPONumber string            `json:"linked_po_number"`
			InvoiceDate    string            `json:"invoice_date"`
			Items          []invoiceItemBody `json:"items"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if body.InvoiceNumber == "" {
			writeError(w, r, "invoice_number is required", "BAD_REQUEST", http.StatusBadRequest)
			return
		}

		req := app.CreateInvoiceRequest{
			UserID:         userID(r),
			InvoiceNumber:  body.InvoiceNumber,
			PartyID:        body.PartyID,
			LinkedPONumber: body.LinkedPONumber,
			InvoiceDate:    body.InvoiceDate,
		}
		for _, it := range body.Items {
			req.Items = append(req.Items, it.request())
		}

		inv, err := h.svc.CreateInvoice(r.Context(), side, req)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, inv)
	}
}

func (h *Handler) apiGetInvoice(side string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		inv, err := h.svc.GetInvoice(r.Context(), side, id)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, inv)
	}
}

func (h *Handler) apiUpdateInvoice(side string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var body struct {
			InvoiceNumber  *string `json:"invoice_number"`
			PartyID        *int    `json:"party_id"`
			LinkedPONumber *string `json:"linked_po_number"`
			InvoiceDate    *string `json:"invoice_date"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}

		inv, err := h.svc.UpdateInvoice(r.Context(), side, id, app.UpdateInvoiceRequest(body))
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, inv)
	}
}

func (h *Handler) apiDeleteInvoice(side string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if err := h.svc.DeleteInvoice(r.Context(), side, id); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) apiAddInvoiceItem(side string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var body invoiceItemBody
		if !decodeJSON(w, r, &body) {
			return
		}
		it, err := h.svc.AddInvoiceItem(r.Context(), side, id, body.request())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, it)
	}
}

func (h *Handler) apiUpdateInvoiceItem(side string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		itemID, ok := pathID(w, r, "itemId")
		if !ok {
			return
		}
		var body invoiceItemBody
		if !decodeJSON(w, r, &body) {
			return
		}
		it, err := h.svc.UpdateInvoiceItem(r.Context(), side, id, itemID, body.request())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, it)
	}
}

func (h *Handler) apiDeleteInvoiceItem(side string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		itemID, ok := pathID(w, r, "itemId")
		if !ok {
			return
		}
		if err := h.svc.DeleteInvoiceItem(r.Context(), side, id, itemID); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
