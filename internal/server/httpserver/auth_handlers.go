package httpserver

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/dailydiary/internal/common"
	"github.com/dmitrijs2005/dailydiary/internal/server/gateway"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
	"github.com/dmitrijs2005/dailydiary/internal/server/validator"
)

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	if _, ok := gateway.UserID(r.Context()); ok {
		http.Redirect(w, r, "/diary/dashboard", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Ping(r.Context()); err != nil {
		s.logger.Warn(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "Database connection failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return
	}
	username, password := in.Get("username"), in.Get("password")

	if errs := validator.ValidateRegister(username, password); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}
	if password != in.Get("confirm_password") {
		writeError(w, http.StatusBadRequest, "PASSWORD_MISMATCH", "Passwords do not match")
		return
	}

	available, err := s.users.UsernameAvailable(r.Context(), username)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if !available {
		writeError(w, http.StatusConflict, "USERNAME_TAKEN", "Username is already taken")
		return
	}

	if _, err := s.users.Register(r.Context(), username, password); err != nil {
		switch {
		case errors.Is(err, common.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "USERNAME_TAKEN", "Username is already taken")
		case errors.Is(err, common.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", "Password must be at least 6 characters long")
		default:
			s.serverError(w, r, err)
		}
		return
	}

	writeMessage(w, http.StatusCreated, "Registration successful! Please log in.", "/login")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return
	}
	username, password := in.Get("username"), in.Get("password")

	if errs := validator.ValidateLogin(username, password); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	session, token, err := s.auth.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password.")
		} else {
			s.serverError(w, r, err)
		}
		return
	}

	s.setSessionCookie(w, token, session.ExpiresAt)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Signed in successfully.",
		"redirect": "/diary/dashboard",
		"username": username,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ *models.User) {
	if c, err := r.Cookie(s.cookieName); err == nil {
		if err := s.auth.Logout(r.Context(), c.Value); err != nil {
			s.serverError(w, r, err)
			return
		}
	}
	s.clearSessionCookie(w)
	writeMessage(w, http.StatusOK, "Signed out successfully.", "/login")
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return
	}
	username := in.Get("username")
	current := in.Get("current_password")
	newPassword := in.Get("new_password")
	confirm := in.Get("confirm_password")

	if errs := validator.ValidateResetPassword(username, current, newPassword, confirm); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}
	if newPassword != confirm {
		writeError(w, http.StatusBadRequest, "PASSWORD_MISMATCH", "New passwords do not match")
		return
	}

	if err := s.auth.ResetPassword(r.Context(), username, current, newPassword); err != nil {
		switch {
		case errors.Is(err, common.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		case errors.Is(err, common.ErrCurrentPasswordWrong):
			writeError(w, http.StatusBadRequest, "CURRENT_PASSWORD_WRONG", "Current password is incorrect")
		case errors.Is(err, common.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", "New password must be at least 6 characters long")
		default:
			s.serverError(w, r, err)
		}
		return
	}

	s.clearSessionCookie(w)
	writeMessage(w, http.StatusOK, "Password updated. Please log in.", "/login")
}
