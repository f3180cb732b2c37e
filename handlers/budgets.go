package handlers

import (
	"net/http"
	"strings"
	"time"

	"payflow/models"
)

const monthLayout = "2006-01"

// budgetMonth returns raw, or the current UTC month when raw is blank.
func (s *Server) budgetMonth(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.now().UTC().Format(monthLayout), true
	}
	if _, err := time.Parse(monthLayout, raw); err != nil {
		return "", false
	}
	return raw, true
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	month, ok := s.budgetMonth(r.URL.Query().Get("month"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "InvalidMonth")
		return
	}
	budgets, err := s.store.ListBudgets(r.Context(), userID(r), month)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

// upsertBudget creates the budget, or replaces the amount of the existing one
// for the same month and category.
func (s *Server) upsertBudget(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequestBody")
		return
	}
	month, ok := s.budgetMonth(in.str("month"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "InvalidMonth")
		return
	}
	b := models.Budget{
		UserID:   userID(r),
		Month:    month,
		Category: in.str("category"),
		Amount:   in.numberOr("amount", 0),
	}
	if b.Category == "" {
		writeError(w, r, http.StatusBadRequest, "CategoryRequired")
		return
	}
	if b.Amount < 0 {
		writeError(w, r, http.StatusBadRequest, "InvalidBudgetAmount")
		return
	}

	if err := s.store.UpsertBudget(r.Context(), &b); err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) deleteBudget(w http.ResponseWriter, r *http.Request) {
	deleteWith(w, r, func(uid, id int64) error { return s.store.DeleteBudget(r.Context(), uid, id) })
}
