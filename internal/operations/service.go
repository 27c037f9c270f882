// Package operations holds the use cases the BFF exposes: composite read
// models stitched from Personas and Core, the attendance intake flow and the
// password/login flows. Gateways are injected through Deps.
package operations

import (
	"context"
	"math"

	"aki/bff/internal/auth"
	"aki/bff/internal/clients"
	"aki/bff/internal/model"
)

// PersonasGateway is the subset of the Personas gateway the use cases need.
type PersonasGateway interface {
	GetStudent(ctx context.Context, id int64) (model.Student, error)
	UpdateStudent(ctx context.Context, id int64, patch model.StudentPatch) (model.Student, error)
	GetStudentByDevice(ctx context.Context, deviceID string) (model.Student, error)
	GetStudentByCPF(ctx context.Context, cpf string) (model.Student, error)
	BindDevice(ctx context.Context, studentID int64, deviceID string) (model.Student, error)

	GetTeacher(ctx context.Context, id int64) (model.Teacher, error)
	GetTeacherByEmail(ctx context.Context, email string) (model.Teacher, error)
	UpdateTeacher(ctx context.Context, id int64, patch model.TeacherPatch) (model.Teacher, error)
	UpdateTeacherPassword(ctx context.Context, teacherID int64, passwordHash string) (model.Teacher, error)
	RecoverPassword(ctx context.Context, email string) (model.RecoveryReceipt, error)
	GetTeacherClasses(ctx context.Context, teacherID int64) (model.Page[model.ClassWithMembers], error)

	ListClasses(ctx context.Context, filters clients.Filters) (model.Page[model.Class], error)
	GetClass(ctx context.Context, id int64) (model.Class, error)
	GetClassWithMembers(ctx context.Context, id int64) (model.ClassWithMembers, error)
	GetClassStudents(ctx context.Context, classID int64) ([]model.Student, error)
}

// CoreGateway is the subset of the Core gateway the use cases need.
type CoreGateway interface {
	CreateEvent(ctx context.Context, in model.EventInput) (model.Event, error)
	GetEvent(ctx context.Context, id string) (model.Event, error)
	ListEvents(ctx context.Context, filters clients.Filters) (model.Page[model.Event], error)
	CreateAttendance(ctx context.Context, in model.AttendanceInput) (model.Attendance, error)
	ListAttendances(ctx context.Context, filters clients.Filters) (model.Page[model.Attendance], error)
	ListOccurrences(ctx context.Context, filters clients.Filters) (model.Page[model.Occurrence], error)
}

// RecoveryGateway is the password-recovery function.
type RecoveryGateway interface {
	SendPasswordRecovery(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, token string) (model.TokenValidation, error)
}

type Deps struct {
	Personas      PersonasGateway
	Core          CoreGateway
	Recovery      RecoveryGateway
	Authenticator auth.Authenticator
	Tokens        *auth.Tokens
}

type Service struct {
	personas PersonasGateway
	core     CoreGateway
	recovery RecoveryGateway
	authn    auth.Authenticator
	tokens   *auth.Tokens
}

func New(deps Deps) *Service {
	return &Service{
		personas: deps.Personas,
		core:     deps.Core,
		recovery: deps.Recovery,
		authn:    deps.Authenticator,
		tokens:   deps.Tokens,
	}
}

// rosterConcurrency bounds the per-class membership lookups of a profile.
const rosterConcurrency = 8

const (
	unknownName   = "Unknown"
	statusSuccess = "success"
)

func rate(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
