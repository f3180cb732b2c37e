package handlers

import (
	"net/http"

	"payflow/models"
)

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.store.ListExpenses(r.Context(), userID(r))
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequestBody")
		return
	}
	e := models.Expense{
		UserID:      userID(r),
		Date:        in.str("date"),
		Category:    in.str("category"),
		Amount:      in.numberOr("amount", 0),
		Description: in.str("description"),
	}
	if e.Date == "" || e.Amount <= 0 {
		writeError(w, r, http.StatusBadRequest, "ExpenseFieldsRequired")
		return
	}
	if e.Category == "" {
		e.Category = models.DefaultExpenseCategory
	}

	if err := s.store.CreateExpense(r.Context(), &e); err != nil {
		serverError(w, r, err)
		return
	}
	success(w, http.StatusCreated, map[string]any{"id": e.ID})
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	deleteWith(w, r, func(uid, id int64) error { return s.store.DeleteExpense(r.Context(), uid, id) })
}
