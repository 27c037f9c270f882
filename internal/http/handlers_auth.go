package http

import (
	"net/http"

	"aki/bff/internal/apperr"
	"aki/bff/internal/logging"
	"aki/bff/internal/operations"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req operations.LoginRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.ops.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result, "Login successful")
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req operations.ForgotPasswordRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, s.ops.ForgotPassword(r.Context(), req), "Password recovery email sent")
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req operations.ResetPasswordRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.ops.ResetPassword(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	token := tokenFromContext(r.Context())
	if token != "" && claims != nil && claims.ExpiresAt != nil {
		if err := s.sessions.Revoke(r.Context(), token, claims.ExpiresAt.Time); err != nil {
			writeError(w, r, apperr.ServiceUnavailable("Could not revoke session").Wrap(err))
			return
		}
	}
	if claims != nil {
		logging.Ctx(r.Context()).Info().Int64("teacher_id", claims.TeacherID).Msg("teacher logged out")
	}
	writeJSON(w, http.StatusOK, operations.StatusMessage{Status: "success", Message: "Logged out"})
}
