package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"wallet/internal/core"
	"wallet/internal/services"
	"wallet/internal/storage"
)

type categoryTotalResponse struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

func toCategoryTotals(totals []storage.CategoryTotal) []categoryTotalResponse {
	out := make([]categoryTotalResponse, 0, len(totals))
	for _, t := range totals {
		out = append(out, categoryTotalResponse{Category: t.Category, Total: t.Total.String()})
	}
	return out
}

type dashboardResponse struct {
	Period            string                  `json:"period"`
	StartDate         string                  `json:"start_date"`
	EndDate           string                  `json:"end_date"`
	IncomeTotal       string                  `json:"income_total"`
	ExpenseTotal      string                  `json:"expense_total"`
	IncomeCategories  []categoryTotalResponse `json:"income_categories,omitempty"`
	ExpenseCategories []categoryTotalResponse `json:"expense_categories,omitempty"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	key := reportCacheKey(uid, "dashboard", r.URL.RawQuery)

	if body, ok := s.reportCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	q := r.URL.Query()
	dashboard, err := s.reports.Dashboard(r.Context(), uid, services.DashboardQuery{
		Period:    q.Get("period"),
		Format:    q.Get("format"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := dashboardResponse{
		Period:       dashboard.Period,
		StartDate:    dashboard.Range.Start.String(),
		EndDate:      dashboard.Range.End.String(),
		IncomeTotal:  dashboard.IncomeTotal.String(),
		ExpenseTotal: dashboard.ExpenseTotal.String(),
	}
	if dashboard.IncomeCategories != nil {
		resp.IncomeCategories = toCategoryTotals(dashboard.IncomeCategories)
	}
	if dashboard.ExpenseCategories != nil {
		resp.ExpenseCategories = toCategoryTotals(dashboard.ExpenseCategories)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.reportCache.Set(key, body)
	slog.DebugContext(r.Context(), "Dashboard cached", "user_id", uid, "period", dashboard.Period)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type statisticsResponse struct {
	Period    string                  `json:"period"`
	StartDate string                  `json:"start_date"`
	EndDate   string                  `json:"end_date"`
	Income    []categoryTotalResponse `json:"income"`
	Expense   []categoryTotalResponse `json:"expense"`
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	key := reportCacheKey(uid, "statistics", r.URL.RawQuery)

	if body, ok := s.reportCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	stats, err := s.reports.Statistics(r.Context(), uid, r.URL.Query().Get("period"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	body, err := json.Marshal(statisticsResponse{
		Period:    stats.Period,
		StartDate: stats.Range.Start.String(),
		EndDate:   stats.Range.End.String(),
		Income:    toCategoryTotals(stats.Income),
		Expense:   toCategoryTotals(stats.Expense),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.reportCache.Set(key, body)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.SummaryFilter{
		PeriodType: core.Granularity(q.Get("period_type")),
		PeriodKey:  q.Get("period_key"),
	}
	if filter.PeriodType != "" {
		valid := false
		for _, g := range core.Granularities() {
			if filter.PeriodType == g {
				valid = true
				break
			}
		}
		if !valid {
			writeError(w, http.StatusBadRequest, "period_type must be daily, monthly or yearly")
			return
		}
	}

	summaries, err := s.reports.ListSummaries(r.Context(), userID(r), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]summaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, toSummaryResponse(sum))
	}
	writeJSON(w, http.StatusOK, out)
}
