package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"

	"payflow/ledger"
	"payflow/logger"
)

// parseJobIDs reads a comma separated id list. Any malformed entry disables
// the job filter entirely.
func parseJobIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil
		}
		ids = append(ids, id)
	}
	return ids
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f ledger.Filter
	if d, ok := ledger.ParseDate(q.Get("start")); ok {
		f.Start = d
	}
	if d, ok := ledger.ParseDate(q.Get("end")); ok {
		f.End = d
	}
	f.JobIDs = parseJobIDs(q.Get("job_ids"))

	uid := userID(r)
	shifts, err := s.store.ListShifts(r.Context(), uid)
	if err != nil {
		serverError(w, r, err)
		return
	}
	expenses, err := s.store.ListExpenses(r.Context(), uid)
	if err != nil {
		serverError(w, r, err)
		return
	}

	rep := ledger.BuildReport(shifts, expenses, f, s.now())
	logger.FromContext(r.Context()).WithComponent(logger.ComponentReport).Debug("report built",
		logger.FieldUserID, uid,
		"shifts", len(shifts),
		"expenses", len(expenses),
	)
	writeJSON(w, http.StatusOK, rep)
}

var exportHeader = []string{
	"Date", "Job", "Shift Type", "Start", "End", "Break Start", "Break End",
	"Total Hours", "Hourly Wage", "Currency", "Total Wage",
}

func (s *Server) exportShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := s.store.ListShifts(r.Context(), userID(r))
	if err != nil {
		serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="my_shifts.csv"`)

	cw := csv.NewWriter(w)
	cw.Write(exportHeader)
	for _, sh := range shifts {
		job := ""
		if sh.JobName != nil {
			job = *sh.JobName
		}
		cw.Write([]string{
			sh.Date, job, sh.ShiftType, sh.StartTime, sh.EndTime, sh.BreakStart, sh.BreakEnd,
			sh.TotalHours, sh.HourlyWage, sh.Currency, sh.TotalWage,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logger.FromContext(r.Context()).Error("export failed", logger.FieldError, err)
	}
}
