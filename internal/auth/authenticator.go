package auth

import (
	"context"
	"net/http"

	"aki/bff/internal/apperr"
	"aki/bff/internal/crypto"
	"aki/bff/internal/logging"
	"aki/bff/internal/model"
)

const mockEmail = "mock@teacher.com"

type Identity struct {
	TeacherID int64  `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
}

type TeacherDirectory interface {
	GetTeacherByEmail(ctx context.Context, email string) (model.Teacher, error)
}

// Authenticator checks login credentials and bearer tokens. Exactly one
// implementation is selected at startup.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (Identity, error)
	Verify(ctx context.Context, token string) (*Claims, error)
}

func NewAuthenticator(mock bool, mockTeacherID int64, tokens *Tokens, teachers TeacherDirectory) Authenticator {
	if mock {
		return &MockAuthenticator{TeacherID: mockTeacherID}
	}
	return &PersonasAuthenticator{teachers: teachers, tokens: tokens}
}

// PersonasAuthenticator checks the teacher's bcrypt hash held by Personas.
type PersonasAuthenticator struct {
	teachers TeacherDirectory
	tokens   *Tokens
}

func (a *PersonasAuthenticator) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	teacher, err := a.teachers.GetTeacherByEmail(ctx, email)
	if err != nil {
		if apperr.HasStatus(err, http.StatusNotFound) {
			return Identity{}, apperr.InvalidCredentials()
		}
		return Identity{}, err
	}
	if teacher.PasswordHash == "" || crypto.CheckPassword(teacher.PasswordHash, password) != nil {
		return Identity{}, apperr.InvalidCredentials()
	}
	return Identity{TeacherID: teacher.ID, FullName: teacher.FullName, Email: teacher.Email}, nil
}

func (a *PersonasAuthenticator) Verify(_ context.Context, token string) (*Claims, error) {
	return a.tokens.Parse(token)
}

// MockAuthenticator accepts any credentials and any request as one fixed teacher.
type MockAuthenticator struct {
	TeacherID int64
}

func (a *MockAuthenticator) Authenticate(ctx context.Context, email, _ string) (Identity, error) {
	logging.Ctx(ctx).Warn().Msg("using mock authentication")
	return Identity{TeacherID: a.TeacherID, FullName: "Mock Teacher", Email: email}, nil
}

func (a *MockAuthenticator) Verify(ctx context.Context, _ string) (*Claims, error) {
	logging.Ctx(ctx).Debug().Msg("using mock authentication")
	return &Claims{TeacherID: a.TeacherID, Email: mockEmail}, nil
}
