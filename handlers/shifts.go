package handlers

import (
	"errors"
	"net/http"

	"payflow/models"
	"payflow/store"
)

func (s *Server) listShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := s.store.ListShifts(r.Context(), userID(r))
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shifts)
}

// createShift stores the shift fields exactly as sent. Hours and wages are
// computed by the client.
func (s *Server) createShift(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequestBody")
		return
	}
	sh := models.Shift{
		UserID:     userID(r),
		Date:       in.raw("date"),
		ShiftType:  in.raw("shift_type"),
		StartTime:  in.raw("start_time"),
		EndTime:    in.raw("end_time"),
		BreakStart: in.raw("break_start"),
		BreakEnd:   in.raw("break_end"),
		TotalHours: in.raw("total_hours"),
		HourlyWage: in.raw("hourly_wage"),
		Currency:   in.raw("currency"),
		TotalWage:  in.raw("total_wage"),
	}
	if in.has("job_id") {
		jobID, ok := in.integer("job_id")
		if !ok {
			writeError(w, r, http.StatusBadRequest, "InvalidJobID")
			return
		}
		sh.JobID = &jobID
	}

	err = s.store.CreateShift(r.Context(), &sh)
	if errors.Is(err, store.ErrInvalidJob) {
		writeError(w, r, http.StatusBadRequest, "InvalidJobAssignment")
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	success(w, http.StatusOK, map[string]any{"id": sh.ID})
}

func (s *Server) deleteShift(w http.ResponseWriter, r *http.Request) {
	deleteWith(w, r, func(uid, id int64) error { return s.store.DeleteShift(r.Context(), uid, id) })
}
