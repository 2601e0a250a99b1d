package web

import (
	"net/http"

	"alltech-erp/internal/app"

	"go.uber.org/zap"
)

func dashboardRequest(r *http.Request) app.DashboardRequest {
	q := r.URL.Query()
	return app.DashboardRequest{
		Search:   q.Get("search"),
		AsOfDate: q.Get("as_of_date"),
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
	}
}

// apiDashboard handles GET /api/dashboard.
func (h *Handler) apiDashboard(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.GetDashboard(r.Context(), dashboardRequest(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, page)
}

// apiExportDashboard handles GET /api/dashboard/export.
func (h *Handler) apiExportDashboard(w http.ResponseWriter, r *http.Request) {
	f, filename, err := h.svc.ExportDashboard(r.Context(), dashboardRequest(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.Header().Set("Content-Transfer-Encoding", "binary")

	if err := f.Write(w); err != nil {
		h.log.Error("write dashboard export", zapRequestID(r), zap.Error(err))
	}
}
