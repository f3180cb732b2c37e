package handlers

import (
	"errors"
	"net/http"

	"payflow/auth"
	"payflow/models"
	"payflow/store"
)

func userID(r *http.Request) int64 {
	id, _ := auth.FromContext(r.Context())
	return id.UserID
}

// deleteWith runs del on the {id} path parameter and maps ErrNotFound to 404.
func deleteWith(w http.ResponseWriter, r *http.Request, del func(userID, id int64) error) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusNotFound, "NotFound")
		return
	}
	if err := del(userID(r), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "NotFound")
			return
		}
		serverError(w, r, err)
		return
	}
	success(w, http.StatusOK, nil)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs(r.Context(), userID(r))
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequestBody")
		return
	}
	job := models.Job{
		UserID:     userID(r),
		Name:       in.str("name"),
		HourlyWage: in.numberOr("hourly_wage", 0),
		Currency:   in.str("currency"),
		Color:      in.str("color"),
	}
	if job.Name == "" {
		writeError(w, r, http.StatusBadRequest, "JobNameRequired")
		return
	}
	if job.Currency == "" {
		job.Currency = models.DefaultCurrency
	}
	if job.Color == "" {
		job.Color = models.DefaultJobColor
	}

	if err := s.store.CreateJob(r.Context(), &job); err != nil {
		serverError(w, r, err)
		return
	}
	success(w, http.StatusCreated, map[string]any{"job": job})
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	deleteWith(w, r, func(uid, id int64) error { return s.store.DeleteJob(r.Context(), uid, id) })
}
