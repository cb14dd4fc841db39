package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/exotransit/internal/logging"
	"github.com/JonMunkholm/exotransit/internal/web/templates"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d := templates.DashboardParams{
		Observations: s.service.List(),
		History:      s.service.History(),
	}
	if q := r.URL.Query(); q.Has("imported") {
		d.Flash = fmt.Sprintf("%s imported, %s failed", q.Get("imported"), q.Get("failed"))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard(d).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render dashboard failed", "error", err)
	}
}

// handleDashboardImport handles the dashboard upload form and redirects
// back with a summary.
func (s *Server) handleDashboardImport(w http.ResponseWriter, r *http.Request) {
	res, err := s.importRequest(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	target := fmt.Sprintf("/?imported=%d&failed=%d", len(res.Successful), len(res.Failed))
	http.Redirect(w, r, target, http.StatusSeeOther)
}
