package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aki/bff/internal/apperr"
	"aki/bff/internal/auth"
	"aki/bff/internal/clients"
	"aki/bff/internal/config"
	"aki/bff/internal/jobs"
	"aki/bff/internal/model"
	"aki/bff/internal/operations"
	"aki/bff/internal/session"
)

// PersonasAPI is the Personas surface the BFF forwards without composition.
type PersonasAPI interface {
	ListStudents(ctx context.Context, filters clients.Filters) (model.Page[model.Student], error)
	CreateStudent(ctx context.Context, in model.StudentInput) (model.Student, error)
	UpdateStudent(ctx context.Context, id int64, patch model.StudentPatch) (model.Student, error)
	DeleteStudent(ctx context.Context, id int64) error
	GetStudentByDevice(ctx context.Context, deviceID string) (model.Student, error)
	BindDevice(ctx context.Context, studentID int64, deviceID string) (model.Student, error)

	ListTeachers(ctx context.Context, filters clients.Filters) (model.Page[model.Teacher], error)
	CreateTeacher(ctx context.Context, in model.TeacherInput) (model.Teacher, error)
	GetTeacher(ctx context.Context, id int64) (model.Teacher, error)
	DeleteTeacher(ctx context.Context, id int64) error

	ListClasses(ctx context.Context, filters clients.Filters) (model.Page[model.Class], error)
	CreateClass(ctx context.Context, in model.ClassInput) (model.Class, error)
	UpdateClass(ctx context.Context, id int64, in model.ClassInput) (model.Class, error)
	DeleteClass(ctx context.Context, id int64) error
	GetClassStudents(ctx context.Context, classID int64) ([]model.Student, error)
	AddStudentToClass(ctx context.Context, classID, studentID int64) (model.ClassWithMembers, error)
	RemoveStudentFromClass(ctx context.Context, classID, studentID int64) error
	RemoveTeacherFromClass(ctx context.Context, classID, teacherID int64) error

	SyncData(ctx context.Context, req model.SyncRequest) (model.SyncResult, error)
}

// CoreAPI is the Core surface the BFF forwards without composition.
type CoreAPI interface {
	ListEvents(ctx context.Context, filters clients.Filters) (model.Page[model.Event], error)
	UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	GetEventQR(ctx context.Context, id string) (map[string]any, error)
	ListAttendances(ctx context.Context, filters clients.Filters) (model.Page[model.Attendance], error)
	GetAttendance(ctx context.Context, id string) (model.Attendance, error)
	UpdateAttendance(ctx context.Context, id string, patch model.AttendancePatch) (model.Attendance, error)
	ListOccurrences(ctx context.Context, filters clients.Filters) (model.Page[model.Occurrence], error)
	CreateOccurrence(ctx context.Context, in model.OccurrenceInput) (model.Occurrence, error)
}

// HealthSource reports the last known upstream status for /health.
type HealthSource interface {
	Snapshot() map[string]jobs.UpstreamStatus
}

type Deps struct {
	Operations    *operations.Service
	Personas      PersonasAPI
	Core          CoreAPI
	Authenticator auth.Authenticator
	Sessions      session.Store
	Health        HealthSource
}

type Server struct {
	cfg      config.Config
	ops      *operations.Service
	personas PersonasAPI
	core     CoreAPI
	authn    auth.Authenticator
	sessions session.Store
	health   HealthSource
}

func NewServer(cfg config.Config, deps Deps) *Server {
	sessions := deps.Sessions
	if sessions == nil {
		sessions = session.NoopStore{}
	}
	return &Server{
		cfg:      cfg,
		ops:      deps.Operations,
		personas: deps.Personas,
		core:     deps.Core,
		authn:    deps.Authenticator,
		sessions: sessions,
		health:   deps.Health,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(correlationMiddleware)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Correlation-Id"},
		ExposedHeaders: []string{"X-Correlation-Id"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apperr.NotFound("Endpoint not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apperr.New(http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed"))
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	scanLimit := s.scanRateLimit()

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/forgot-password", s.handleForgotPassword)
			r.Post("/reset-password", s.handleResetPassword)
			r.With(s.authMiddleware).Post("/logout", s.handleLogout)
		})

		r.Route("/student", func(r chi.Router) {
			r.Post("/device", s.handleBindDevice)
			r.With(scanLimit).Post("/scan", s.handleScan)
			r.Post("/{studentId}/clear-device", s.handleClearDevice)
			r.With(scanLimit).Post("/register-device-cpf", s.handleRegisterDeviceByCPF)
		})
		r.With(scanLimit).Post("/scan", s.handleScan)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/professor", func(r chi.Router) {
				r.Get("/dashboard", s.handleProfessorDashboard)
				r.Post("/events", s.handleCreateEvent)
				r.Get("/events/{eventId}", s.handleEventDetail)
				r.Put("/events/{eventId}", s.handleUpdateEvent)
				r.Delete("/events/{eventId}", s.handleDeleteEvent)
				r.Get("/events/{eventId}/qr", s.handleEventQR)
			})

			r.Route("/events", func(r chi.Router) {
				r.Get("/", s.handleListEvents)
				r.Post("/", s.handleCreateEvent)
				r.Get("/{eventId}", s.handleEventDetail)
				r.Put("/{eventId}", s.handleUpdateEvent)
				r.Delete("/{eventId}", s.handleDeleteEvent)
				r.Get("/{eventId}/qr", s.handleEventQR)
			})

			r.Route("/attendances", func(r chi.Router) {
				r.Get("/", s.handleListAttendances)
				r.Get("/{attendanceId}", s.handleGetAttendance)
				r.Put("/{attendanceId}", s.handleUpdateAttendance)
			})

			r.Route("/occurrences", func(r chi.Router) {
				r.Get("/", s.handleListOccurrences)
				r.Post("/", s.handleCreateOccurrence)
			})

			r.Post("/admin/sync", s.handleSync)

			r.Route("/students", func(r chi.Router) {
				r.Get("/", s.handleListStudents)
				r.Post("/", s.handleCreateStudent)
				r.Get("/device", s.handleGetStudentByDevice)
				r.Put("/device", s.handlePutStudentDevice)
				r.Get("/{id}", s.handleStudentProfile)
				r.Put("/{id}", s.handleUpdateStudent)
				r.Delete("/{id}", s.handleDeleteStudent)
			})

			r.Route("/teachers", func(r chi.Router) {
				r.Get("/", s.handleListTeachers)
				r.Post("/", s.handleCreateTeacher)
				r.Post("/recover-password", s.handleRecoverTeacherPassword)
				r.Get("/{id}", s.handleGetTeacher)
				r.Put("/{id}", s.handleUpdateTeacher)
				r.Delete("/{id}", s.handleDeleteTeacher)
				r.Get("/{id}/dashboard", s.handleTeacherDashboard)
			})

			r.Route("/classes", func(r chi.Router) {
				r.Get("/", s.handleListClasses)
				r.Post("/", s.handleCreateClass)
				r.Get("/{id}", s.handleClassDetail)
				r.Put("/{id}", s.handleUpdateClass)
				r.Delete("/{id}", s.handleDeleteClass)
				r.Get("/{id}/students", s.handleClassStudents)
				r.Post("/{id}/students", s.handleAddStudentToClass)
				r.Delete("/{id}/students/{studentId}", s.handleRemoveStudentFromClass)
				r.Delete("/{id}/teachers/{teacherId}", s.handleRemoveTeacherFromClass)
			})
		})
	})

	return r
}

func (s *Server) scanRateLimit() func(http.Handler) http.Handler {
	if s.cfg.ScanRateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := s.cfg.ScanRateWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(s.cfg.ScanRateLimit, window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, apperr.New(http.StatusTooManyRequests, "rate_limited", "Too many scan attempts, try again later"))
		}),
	)
}

type healthResponse struct {
	Status    string                         `json:"status"`
	Timestamp string                         `json:"timestamp"`
	Upstreams map[string]jobs.UpstreamStatus `json:"upstreams,omitempty"`
}

// handleHealth always answers 200 while the process is serving; a failing
// upstream only turns the status to "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if s.health != nil {
		resp.Upstreams = s.health.Snapshot()
		for _, status := range resp.Upstreams {
			if !status.Up {
				resp.Status = "degraded"
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
