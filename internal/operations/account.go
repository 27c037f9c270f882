package operations

import (
	"context"
	"errors"
	"strings"

	"aki/bff/internal/apperr"
	"aki/bff/internal/auth"
	"aki/bff/internal/crypto"
	"aki/bff/internal/logging"
	"aki/bff/internal/model"
	"aki/bff/internal/validation"
)

const (
	msgRecoverySent  = "If your email is registered, you will receive password recovery instructions."
	msgPasswordReset = "Password has been reset successfully. You can now login with your new password."
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token   string        `json:"token"`
	Teacher auth.Identity `json:"teacher"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type StatusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Login checks the credentials with the configured authenticator and issues
// a session token for the teacher.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	identity, err := s.authn.Authenticate(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return LoginResult{}, err
	}
	token, err := s.tokens.Issue(identity)
	if err != nil {
		return LoginResult{}, apperr.Internal("Failed to issue token").Wrap(err)
	}
	logging.Ctx(ctx).Info().Int64("teacher_id", identity.TeacherID).Msg("teacher logged in")
	return LoginResult{Token: token, Teacher: identity}, nil
}

// ForgotPassword asks the password function to send recovery instructions.
// The answer is the same whether or not the email exists.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) StatusMessage {
	if err := s.recovery.SendPasswordRecovery(ctx, req.Email); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("password recovery request failed")
	}
	return StatusMessage{Status: statusSuccess, Message: msgRecoverySent}
}

// ResetPassword redeems a recovery token and stores the bcrypt hash of the
// new password on the teacher it was issued for.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) (StatusMessage, error) {
	err := s.resetPassword(ctx, req)
	if err == nil {
		return StatusMessage{Status: statusSuccess, Message: msgPasswordReset}, nil
	}
	if errors.Is(err, apperr.ErrTokenInvalid) {
		return StatusMessage{}, err
	}
	logging.Ctx(ctx).Error().Err(err).Msg("password reset failed")
	return StatusMessage{}, apperr.TokenInvalid("Failed to reset password").Wrap(err)
}

func (s *Service) resetPassword(ctx context.Context, req ResetPasswordRequest) error {
	check, err := s.recovery.ValidateResetToken(ctx, req.Token)
	if err != nil {
		return err
	}
	if !check.Valid || check.TeacherEmail == "" {
		return apperr.TokenInvalid("Invalid or expired reset token")
	}
	teacher, err := s.personas.GetTeacherByEmail(ctx, check.TeacherEmail)
	if err != nil {
		return err
	}
	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if _, err := s.personas.UpdateTeacherPassword(ctx, teacher.ID, hash); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Int64("teacher_id", teacher.ID).Msg("password reset")
	return nil
}

// UpdateTeacher normalizes a teacher patch before sending it to Personas.
// Password changes go through ResetPassword only.
func (s *Service) UpdateTeacher(ctx context.Context, id int64, patch model.TeacherPatch) (model.Teacher, error) {
	if id <= 0 {
		return model.Teacher{}, apperr.BadRequest("Invalid teacher id")
	}
	patch.PasswordHash = nil
	if patch.FullName == nil && patch.Email == nil {
		return model.Teacher{}, apperr.BadRequest("No fields provided to update")
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if !validation.Email(email) {
			return model.Teacher{}, apperr.BadRequest("Invalid email format")
		}
		patch.Email = &email
	}
	if patch.FullName != nil {
		name := strings.TrimSpace(*patch.FullName)
		patch.FullName = &name
	}
	return s.personas.UpdateTeacher(ctx, id, patch)
}

// RecoverTeacherPassword triggers the Personas recovery flow directly.
func (s *Service) RecoverTeacherPassword(ctx context.Context, email string) (model.RecoveryReceipt, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.RecoveryReceipt{}, apperr.BadRequest("Email is required")
	}
	return s.personas.RecoverPassword(ctx, email)
}
