package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"aki/bff/internal/apperr"
	"aki/bff/internal/auth"
	"aki/bff/internal/clients"
	"aki/bff/internal/config"
	"aki/bff/internal/crypto"
	"aki/bff/internal/jobs"
	"aki/bff/internal/model"
	"aki/bff/internal/operations"
)

type personasSurface interface {
	PersonasAPI
	operations.PersonasGateway
}

type coreSurface interface {
	CoreAPI
	operations.CoreGateway
}

type stubPersonas struct {
	personasSurface

	students map[string]model.Student
	teachers map[string]model.Teacher
}

func (s *stubPersonas) GetStudentByDevice(_ context.Context, deviceID string) (model.Student, error) {
	st, ok := s.students[deviceID]
	if !ok {
		return model.Student{}, apperr.NotFound("Student not found")
	}
	return st, nil
}

func (s *stubPersonas) GetTeacherByEmail(_ context.Context, email string) (model.Teacher, error) {
	t, ok := s.teachers[email]
	if !ok {
		return model.Teacher{}, apperr.NotFound("Teacher not found")
	}
	return t, nil
}

func (s *stubPersonas) GetTeacher(_ context.Context, id int64) (model.Teacher, error) {
	for _, t := range s.teachers {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Teacher{}, apperr.NotFound("Teacher not found")
}

type stubCore struct {
	coreSurface

	attendance model.Attendance
	scanErr    error
	events     model.Page[model.Event]
}

func (s *stubCore) CreateAttendance(context.Context, model.AttendanceInput) (model.Attendance, error) {
	if s.scanErr != nil {
		return model.Attendance{}, s.scanErr
	}
	return s.attendance, nil
}

func (s *stubCore) ListEvents(context.Context, clients.Filters) (model.Page[model.Event], error) {
	return s.events, nil
}

type stubSessions struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	failing bool
}

func (s *stubSessions) Revoke(_ context.Context, token string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked == nil {
		s.revoked = map[string]time.Time{}
	}
	s.revoked[token] = until
	return nil
}

func (s *stubSessions) IsRevoked(_ context.Context, token string) (bool, error) {
	if s.failing {
		return false, apperr.ServiceUnavailable("redis down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[token]
	return ok, nil
}

type stubHealth map[string]jobs.UpstreamStatus

func (h stubHealth) Snapshot() map[string]jobs.UpstreamStatus { return h }

type fixture struct {
	router   http.Handler
	tokens   *auth.Tokens
	personas *stubPersonas
	core     *stubCore
	sessions *stubSessions
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Config{
		JWTSecret:    "test-secret",
		JWTIssuer:    "test-issuer",
		JWTExpiresIn: time.Hour,
		CORSOrigins:  []string{"*"},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	hash, err := crypto.HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	personas := &stubPersonas{
		students: map[string]model.Student{
			"device-1": {ID: 7, CPF: "12345678901", FullName: "Ana Souza"},
		},
		teachers: map[string]model.Teacher{
			"prof@school.edu": {ID: 3, CPF: "10987654321", FullName: "Carlos Lima", Email: "prof@school.edu", PasswordHash: hash},
		},
	}
	within := true
	core := &stubCore{
		attendance: model.Attendance{
			ID:         "att-1",
			EventID:    "evt-1",
			StudentID:  7,
			Timestamp:  "2026-03-02T10:00:00Z",
			Validation: &model.Validation{WithinRadius: &within},
		},
		events: model.Page[model.Event]{
			Items: []model.Event{{ID: "evt-1", ClassID: 1, TeacherID: 3, Status: model.EventActive}},
			Meta:  model.PageMeta{Page: 1, Size: 50, Total: 1},
		},
	}
	sessions := &stubSessions{}
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiresIn)
	authn := auth.NewAuthenticator(cfg.MockAuthEnabled, cfg.MockTeacherID, tokens, personas)

	server := NewServer(cfg, Deps{
		Operations: operations.New(operations.Deps{
			Personas:      personas,
			Core:          core,
			Authenticator: authn,
			Tokens:        tokens,
		}),
		Personas:      personas,
		Core:          core,
		Authenticator: authn,
		Sessions:      sessions,
		Health: stubHealth{
			"personas": {Up: true},
			"core":     {Up: false, Error: "connection refused"},
		},
	})
	return &fixture{router: server.Router(), tokens: tokens, personas: personas, core: core, sessions: sessions}
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	token, err := f.tokens.Issue(auth.Identity{TeacherID: 3, Email: "prof@school.edu"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

type scanEnvelope struct {
	Data    operations.ScanResult `json:"data"`
	Message string                `json:"message"`
}

func TestScanRecordsAttendance(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/v1/scan", "", map[string]any{
		"qr_token":  "qr-abc",
		"device_id": "device-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body scanEnvelope
	decode(t, rec, &body)
	if body.Data.Status != operations.ScanSuccess {
		t.Fatalf("expected success, got %q", body.Data.Status)
	}
	if body.Data.Attendance == nil || body.Data.Attendance.StudentName != "Ana Souza" {
		t.Fatalf("expected attendance for Ana Souza, got %+v", body.Data.Attendance)
	}
	if body.Message != "Attendance recorded" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestScanConflictIsReportedInBody(t *testing.T) {
	f := newFixture(t, nil)
	f.core.scanErr = apperr.AttendanceConflict("Attendance already registered for this event")

	rec := f.do(t, http.MethodPost, "/v1/student/scan", "", map[string]any{
		"qr_token":  "qr-abc",
		"device_id": "device-1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body scanEnvelope
	decode(t, rec, &body)
	if body.Data.Status != operations.ScanError {
		t.Fatalf("expected error status, got %q", body.Data.Status)
	}
	if body.Data.Message != "Attendance already registered for this event" {
		t.Fatalf("unexpected message %q", body.Data.Message)
	}
	if body.Data.Attendance != nil {
		t.Fatalf("expected no attendance on conflict")
	}
}

func TestScanValidationListsFields(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/v1/scan", "", map[string]any{"student_cpf": "123"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body errorBody
	decode(t, rec, &body)
	if body.Message != "Validation failed" {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if len(body.Details) != 3 {
		t.Fatalf("expected 3 field errors, got %v", body.Details)
	}
}

func TestScanRequiresBody(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/v1/scan", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body errorBody
	decode(t, rec, &body)
	if body.Message != "Request body is required" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestScanIsRateLimited(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.ScanRateLimit = 1
		cfg.ScanRateWindow = time.Minute
	})
	payload := map[string]any{"qr_token": "qr-abc", "device_id": "device-1"}

	if rec := f.do(t, http.MethodPost, "/v1/scan", "", payload); rec.Code != http.StatusCreated {
		t.Fatalf("expected first scan to pass, got %d", rec.Code)
	}
	rec := f.do(t, http.MethodPost, "/v1/scan", "", payload)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	var body errorBody
	decode(t, rec, &body)
	if body.Code != "rate_limited" {
		t.Fatalf("unexpected code %q", body.Code)
	}
}

func TestUnknownRouteCarriesTraceID(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/nope", nil)
	req.Header.Set("x-correlation-id", "corr-123")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := rec.Header().Get("x-correlation-id"); got != "corr-123" {
		t.Fatalf("expected correlation id echoed, got %q", got)
	}
	var body errorBody
	decode(t, rec, &body)
	if body.Message != "Endpoint not found" || body.Code != apperr.CodeNotFound {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.TraceID != "corr-123" {
		t.Fatalf("expected trace id corr-123, got %q", body.TraceID)
	}
	if body.Timestamp == "" {
		t.Fatalf("expected timestamp")
	}
}

func TestCorrelationIDIsMinted(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	if rec.Header().Get("x-correlation-id") == "" {
		t.Fatalf("expected a minted correlation id")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newFixture(t, nil)

	for _, path := range []string{"/v1/events", "/v1/students", "/v1/teachers/3", "/v1/classes"} {
		rec := f.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}

	rec := f.do(t, http.MethodGet, "/v1/events", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
	var body errorBody
	decode(t, rec, &body)
	if body.Message != "Invalid token" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestListEventsWrapsPage(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/v1/events?status=active", f.token(t), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data []model.Event  `json:"data"`
		Meta model.PageMeta `json:"meta"`
	}
	decode(t, rec, &body)
	if len(body.Data) != 1 || body.Meta.Total != 1 {
		t.Fatalf("unexpected page %+v", body)
	}
}

func TestInvalidPagingIsRejected(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/v1/events?page=0", f.token(t), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMockAuthAcceptsAnyRequest(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.MockAuthEnabled = true
		cfg.MockTeacherID = 3
	})

	rec := f.do(t, http.MethodGet, "/v1/events", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 under mock auth, got %d", rec.Code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t, nil)
	token := f.token(t)

	rec := f.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := f.sessions.revoked[token]; !ok {
		t.Fatalf("expected token to be revoked")
	}

	rec = f.do(t, http.MethodGet, "/v1/events", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
	var body errorBody
	decode(t, rec, &body)
	if body.Message != "Token revoked" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestRevocationStoreFailureLetsRequestThrough(t *testing.T) {
	f := newFixture(t, nil)
	f.sessions.failing = true

	rec := f.do(t, http.MethodGet, "/v1/events", f.token(t), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLoginIssuesUsableToken(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    "prof@school.edu",
		"password": "s3cret-pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data operations.LoginResult `json:"data"`
	}
	decode(t, rec, &body)
	if body.Data.Token == "" || body.Data.Teacher.TeacherID != 3 {
		t.Fatalf("unexpected login result %+v", body.Data)
	}

	rec = f.do(t, http.MethodGet, "/v1/events", body.Data.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected issued token to be accepted, got %d", rec.Code)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    "prof@school.edu",
		"password": "wrong-pass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body errorBody
	decode(t, rec, &body)
	if body.Code != apperr.CodeInvalidCredentials {
		t.Fatalf("unexpected code %q", body.Code)
	}
}

func TestTeacherResponseOmitsPasswordHash(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/v1/teachers/3", f.token(t), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestStudentDeviceLookupNeedsDeviceID(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/v1/students/device", f.token(t), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/v1/students/device?device_id=device-1", f.token(t), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var student model.Student
	decode(t, rec, &student)
	if student.ID != 7 {
		t.Fatalf("unexpected student %+v", student)
	}
}

func TestHealthReportsDegradedUpstream(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body healthResponse
	decode(t, rec, &body)
	if body.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", body.Status)
	}
	if body.Upstreams["core"].Up {
		t.Fatalf("expected core down")
	}
}
