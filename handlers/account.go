package handlers

import (
	"errors"
	"net/http"

	"payflow/auth"
	"payflow/db"
	"payflow/logger"
	"payflow/models"
	"payflow/store"
)

// currentUser loads the caller's row. On failure it has already written the
// response.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	id, _ := auth.FromContext(r.Context())
	user, err := s.store.GetUser(r.Context(), id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "NotFound")
		return user, false
	}
	if err != nil {
		serverError(w, r, err)
		return user, false
	}
	return user, true
}

// verifiedUser is currentUser plus a current_password check.
func (s *Server) verifiedUser(w http.ResponseWriter, r *http.Request) (models.User, input, bool) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequestBody")
		return models.User{}, nil, false
	}
	user, ok := s.currentUser(w, r)
	if !ok {
		return user, nil, false
	}
	if !db.CheckPasswordHash(in.raw("current_password"), user.PasswordHash) {
		writeError(w, r, http.StatusBadRequest, "CurrentPasswordIncorrect")
		return user, nil, false
	}
	return user, in, true
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) changeEmail(w http.ResponseWriter, r *http.Request) {
	user, in, ok := s.verifiedUser(w, r)
	if !ok {
		return
	}
	email := in.str("new_email")
	if err := auth.ValidateEmail(email); err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidEmail")
		return
	}
	inUse, err := s.store.EmailInUse(r.Context(), email, user.ID)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if inUse {
		writeError(w, r, http.StatusBadRequest, "EmailInUse")
		return
	}
	if err := s.store.UpdateEmail(r.Context(), user.ID, email); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			writeError(w, r, http.StatusBadRequest, "EmailInUse")
			return
		}
		serverError(w, r, err)
		return
	}

	if _, bearer := auth.BearerToken(r); !bearer {
		user.Email = &email
		if err := s.auth.SetSession(w, r, identityOf(user)); err != nil {
			serverError(w, r, err)
			return
		}
	}
	success(w, http.StatusOK, nil)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	user, in, ok := s.verifiedUser(w, r)
	if !ok {
		return
	}
	newPassword := in.raw("new_password")
	if err := auth.ValidatePassword(newPassword); err != nil {
		writeError(w, r, http.StatusBadRequest, "PasswordTooShort")
		return
	}
	if newPassword != in.raw("confirm_password") {
		writeError(w, r, http.StatusBadRequest, "PasswordMismatch")
		return
	}
	hash, err := db.HashPassword(newPassword)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if err := s.store.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		serverError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).WithComponent(logger.ComponentAuth).Info("password changed", logger.FieldUserID, user.ID)
	success(w, http.StatusOK, nil)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	user, _, ok := s.verifiedUser(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteUser(r.Context(), user.ID); err != nil {
		serverError(w, r, err)
		return
	}
	if err := s.auth.ClearSession(w, r); err != nil {
		serverError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).WithComponent(logger.ComponentAuth).Info("account deleted", logger.FieldUserID, user.ID)
	success(w, http.StatusOK, nil)
}
