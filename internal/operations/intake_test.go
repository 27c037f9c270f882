package operations

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"aki/bff/internal/apperr"
	"aki/bff/internal/auth"
	"aki/bff/internal/crypto"
	"aki/bff/internal/metrics"
	"aki/bff/internal/model"
)

func TestBindDeviceIdempotent(t *testing.T) {
	personas := newFakePersonas()
	personas.students[1] = model.Student{ID: 1, CPF: "12345678901", DeviceID: strPtr("dev-1")}
	svc := New(Deps{Personas: personas})

	result, err := svc.BindDevice(context.Background(), DeviceRequest{CPF: "12345678901", DeviceID: "dev-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != "success" || result.Message != msgDeviceAlready || result.StudentID != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if personas.called("BindDevice") != 0 {
		t.Fatalf("expected no bind call for an existing binding")
	}
}

func TestBindDeviceConflicts(t *testing.T) {
	personas := newFakePersonas()
	personas.students[1] = model.Student{ID: 1, CPF: "12345678901", DeviceID: strPtr("dev-1")}
	personas.students[2] = model.Student{ID: 2, CPF: "10987654321", DeviceID: strPtr("dev-2")}
	svc := New(Deps{Personas: personas})

	_, err := svc.BindDevice(context.Background(), DeviceRequest{CPF: "10987654321", DeviceID: "dev-1"})
	appErr, ok := apperr.As(err)
	if !ok || appErr.Status != http.StatusConflict || appErr.Message != "Device is already bound to another student" {
		t.Fatalf("expected device conflict, got %v", err)
	}

	_, err = svc.BindDevice(context.Background(), DeviceRequest{CPF: "10987654321", DeviceID: "dev-9"})
	appErr, ok = apperr.As(err)
	if !ok || appErr.Status != http.StatusConflict || len(appErr.Details) != 1 {
		t.Fatalf("expected student conflict, got %v", err)
	}
	if detail, _ := appErr.Details[0].(map[string]string); detail["current_device"] != "dev-2" {
		t.Fatalf("unexpected conflict details %+v", appErr.Details)
	}

	if personas.called("BindDevice") != 0 {
		t.Fatalf("expected no mutation on conflict")
	}
}

func TestBindDeviceBindsNewDevice(t *testing.T) {
	personas := newFakePersonas()
	personas.students[1] = model.Student{ID: 1, CPF: "12345678901"}
	svc := New(Deps{Personas: personas})

	result, err := svc.BindDevice(context.Background(), DeviceRequest{CPF: "12345678901", DeviceID: "dev-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Message != msgDeviceBound || result.StudentID != 1 || personas.bound[1] != "dev-1" {
		t.Fatalf("unexpected bind result %+v / %v", result, personas.bound)
	}

	if _, err := svc.BindDevice(context.Background(), DeviceRequest{CPF: "00000000000", DeviceID: "dev-x"}); !apperr.HasStatus(err, http.StatusNotFound) {
		t.Fatalf("expected unknown cpf to be not found, got %v", err)
	}
}

func TestBindDevicePropagatesLookupFailure(t *testing.T) {
	personas := newFakePersonas()
	personas.deviceErr = apperr.ServiceUnavailable("Service unavailable")
	svc := New(Deps{Personas: personas})

	if _, err := svc.BindDevice(context.Background(), DeviceRequest{CPF: "12345678901", DeviceID: "dev-1"}); !apperr.HasStatus(err, http.StatusServiceUnavailable) {
		t.Fatalf("expected upstream failure to propagate, got %v", err)
	}
	if personas.called("GetStudentByCPF") != 0 {
		t.Fatalf("expected no cpf lookup after a failed device lookup")
	}
}

func TestClearDevice(t *testing.T) {
	personas := newFakePersonas()
	personas.students[1] = model.Student{ID: 1, DeviceID: strPtr("dev-1")}
	svc := New(Deps{Personas: personas})

	result, err := svc.ClearDevice(context.Background(), 1)
	if err != nil || result.Message != msgDeviceCleared {
		t.Fatalf("unexpected result %+v / %v", result, err)
	}
	patch := personas.updates[1]
	if patch.DeviceID == nil || *patch.DeviceID != "" {
		t.Fatalf("expected device id cleared, got %+v", patch)
	}

	if _, err := svc.ClearDevice(context.Background(), 2); !apperr.HasStatus(err, http.StatusNotFound) {
		t.Fatalf("expected missing student to fail, got %v", err)
	}
}

func TestScanQRSuccess(t *testing.T) {
	personas := newFakePersonas()
	personas.students[1] = model.Student{ID: 1, FullName: "Ana", DeviceID: strPtr("dev-1")}
	core := &fakeCore{created: model.Attendance{ID: "att-1", EventID: "evt-1", StudentID: 1, Timestamp: "2026-01-01T10:00:00Z"}}
	svc := New(Deps{Personas: personas, Core: core})

	before := testutil.ToFloat64(metrics.ScanResults.WithLabelValues("recorded"))
	result := svc.ScanQR(context.Background(), ScanRequest{QRToken: "qr", DeviceID: "dev-1", Location: &model.Location{Latitude: 1, Longitude: 2}})
	if !result.OK() || result.Message != msgScanRecorded {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Attendance == nil || result.Attendance.StudentName != "Ana" || !result.Attendance.WithinRadius {
		t.Fatalf("unexpected attendance %+v", result.Attendance)
	}
	if got := testutil.ToFloat64(metrics.ScanResults.WithLabelValues("recorded")); got != before+1 {
		t.Fatalf("expected scan metric to increase, got %v -> %v", before, got)
	}
	if in := core.inputs[0]; in.QRToken != "qr" || in.DeviceID != "dev-1" || in.Location == nil {
		t.Fatalf("unexpected attendance input %+v", in)
	}
}

func TestScanQROutOfRadius(t *testing.T) {
	personas := newFakePersonas()
	core := &fakeCore{created: model.Attendance{ID: "att-1", Validation: &model.Validation{WithinRadius: boolPtr(false)}}}
	svc := New(Deps{Personas: personas, Core: core})

	result := svc.ScanQR(context.Background(), ScanRequest{QRToken: "qr", DeviceID: "dev-unknown"})
	if result.Status != ScanSuccess || result.Message != msgScanOutOfRadius || result.Attendance.WithinRadius {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Attendance.StudentName != placeholderStudent {
		t.Fatalf("expected placeholder name, got %q", result.Attendance.StudentName)
	}
}

func TestScanQRBindsByCPF(t *testing.T) {
	personas := newFakePersonas()
	personas.students[1] = model.Student{ID: 1, CPF: "12345678901", FullName: "Ana"}
	personas.bindErr = errors.New("bind failed")
	core := &fakeCore{created: model.Attendance{ID: "att-1"}}
	svc := New(Deps{Personas: personas, Core: core})

	result := svc.ScanQR(context.Background(), ScanRequest{QRToken: "qr", DeviceID: "dev-1", StudentCPF: "12345678901"})
	if !result.OK() || result.Attendance.StudentName != "Ana" {
		t.Fatalf("expected bind failure to be tolerated, got %+v", result)
	}
	if personas.called("BindDevice") != 1 {
		t.Fatalf("expected one bind attempt")
	}
}

func TestScanQRAttendanceConflict(t *testing.T) {
	personas := newFakePersonas()
	personas.deviceErr = apperr.ServiceUnavailable("Service unavailable")
	core := &fakeCore{createErr: apperr.AttendanceConflict("Attendance already registered for this event")}
	svc := New(Deps{Personas: personas, Core: core})

	result := svc.ScanQR(context.Background(), ScanRequest{QRToken: "qr", DeviceID: "dev-1"})
	if result.Status != ScanError || result.Message != "Attendance already registered for this event" || result.Attendance != nil {
		t.Fatalf("unexpected result %+v", result)
	}

	core.createErr = errors.New("boom")
	result = svc.ScanQR(context.Background(), ScanRequest{QRToken: "qr", DeviceID: "dev-1"})
	if result.Status != ScanError || result.Message != msgScanFailed {
		t.Fatalf("expected generic failure message, got %+v", result)
	}
}

func TestRegisterDeviceByCPF(t *testing.T) {
	personas := newFakePersonas()
	personas.students[1] = model.Student{ID: 1, CPF: "12345678901", FullName: "Ana"}
	core := &fakeCore{created: model.Attendance{ID: "att-1"}}
	svc := New(Deps{Personas: personas, Core: core})

	result, err := svc.RegisterDeviceByCPF(context.Background(), RegisterDeviceRequest{CPF: "12345678901", DeviceID: "dev-1", QRToken: "qr"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Message != msgDeviceRegistered || !result.Data.OK() || result.Data.Attendance.StudentName != "Ana" {
		t.Fatalf("unexpected result %+v", result)
	}
	if core.inputs[0].StudentCPF != "12345678901" {
		t.Fatalf("expected cpf forwarded to core, got %+v", core.inputs[0])
	}

	if _, err := svc.RegisterDeviceByCPF(context.Background(), RegisterDeviceRequest{CPF: "00000000000", DeviceID: "d", QRToken: "q"}); !apperr.HasStatus(err, http.StatusNotFound) {
		t.Fatalf("expected unknown cpf to fail, got %v", err)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	hash, err := crypto.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	personas := newFakePersonas()
	personas.teachers[3] = model.Teacher{ID: 3, FullName: "Prof. Lima", Email: "lima@school.local", PasswordHash: hash}
	tokens := auth.NewTokens("secret", "aki-bff", time.Hour)
	svc := New(Deps{Personas: personas, Authenticator: auth.NewAuthenticator(false, 1, tokens, personas), Tokens: tokens})

	result, err := svc.Login(context.Background(), LoginRequest{Email: "lima@school.local", Password: "s3cret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := tokens.Parse(result.Token)
	if err != nil || claims.TeacherID != 3 || result.Teacher.FullName != "Prof. Lima" {
		t.Fatalf("unexpected login result %+v / %v", result, err)
	}

	if _, err := svc.Login(context.Background(), LoginRequest{Email: "lima@school.local", Password: "nope"}); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestForgotPasswordAlwaysSucceeds(t *testing.T) {
	recovery := &fakeRecovery{sendErr: apperr.ServiceUnavailable("Service unavailable")}
	svc := New(Deps{Recovery: recovery})

	result := svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "x@school.local"})
	if result.Status != "success" || result.Message != msgRecoverySent || len(recovery.sent) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestResetPassword(t *testing.T) {
	personas := newFakePersonas()
	personas.teachers[3] = model.Teacher{ID: 3, Email: "lima@school.local"}

	recovery := &fakeRecovery{validation: model.TokenValidation{Valid: true, TeacherEmail: "lima@school.local"}}
	svc := New(Deps{Personas: personas, Recovery: recovery})
	result, err := svc.ResetPassword(context.Background(), ResetPasswordRequest{Token: "t", NewPassword: "n3w-pass"})
	if err != nil || result.Message != msgPasswordReset {
		t.Fatalf("unexpected result %+v / %v", result, err)
	}
	if err := crypto.CheckPassword(personas.passwords[3], "n3w-pass"); err != nil {
		t.Fatalf("expected bcrypt hash stored, got %q", personas.passwords[3])
	}

	cases := []struct {
		name     string
		recovery *fakeRecovery
		message  string
	}{
		{"invalid token", &fakeRecovery{validation: model.TokenValidation{Valid: false}}, "Invalid or expired reset token"},
		{"missing email", &fakeRecovery{validation: model.TokenValidation{Valid: true}}, "Invalid or expired reset token"},
		{"unknown teacher", &fakeRecovery{validation: model.TokenValidation{Valid: true, TeacherEmail: "ghost@school.local"}}, "Failed to reset password"},
		{"function down", &fakeRecovery{validErr: apperr.ServiceUnavailable("Service unavailable")}, "Failed to reset password"},
	}
	for _, tc := range cases {
		svc := New(Deps{Personas: personas, Recovery: tc.recovery})
		_, err := svc.ResetPassword(context.Background(), ResetPasswordRequest{Token: "t", NewPassword: "x"})
		appErr, ok := apperr.As(err)
		if !ok || appErr.Code != apperr.CodeTokenInvalid || appErr.Message != tc.message {
			t.Fatalf("%s: expected %q, got %v", tc.name, tc.message, err)
		}
	}
}

func TestUpdateTeacherNormalizes(t *testing.T) {
	personas := newFakePersonas()
	svc := New(Deps{Personas: personas})

	teacher, err := svc.UpdateTeacher(context.Background(), 1, model.TeacherPatch{FullName: strPtr("  Jane Doe "), Email: strPtr(" Jane@Doe.COM ")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if teacher.FullName != "Jane Doe" || teacher.Email != "jane@doe.com" {
		t.Fatalf("unexpected teacher %+v", teacher)
	}

	cases := map[string]struct {
		id    int64
		patch model.TeacherPatch
	}{
		"Invalid teacher id":           {0, model.TeacherPatch{FullName: strPtr("Jane")}},
		"No fields provided to update": {1, model.TeacherPatch{PasswordHash: strPtr("x")}},
		"Invalid email format":         {1, model.TeacherPatch{Email: strPtr("invalid-email")}},
	}
	for message, tc := range cases {
		_, err := svc.UpdateTeacher(context.Background(), tc.id, tc.patch)
		appErr, ok := apperr.As(err)
		if !ok || appErr.Status != http.StatusBadRequest || appErr.Message != message {
			t.Fatalf("expected %q, got %v", message, err)
		}
	}
}

func TestRecoverTeacherPassword(t *testing.T) {
	personas := newFakePersonas()
	svc := New(Deps{Personas: personas})

	receipt, err := svc.RecoverTeacherPassword(context.Background(), " lima@school.local ")
	if err != nil || receipt.TeacherEmail != "lima@school.local" {
		t.Fatalf("unexpected receipt %+v / %v", receipt, err)
	}
	if _, err := svc.RecoverTeacherPassword(context.Background(), " "); !apperr.HasStatus(err, http.StatusBadRequest) {
		t.Fatalf("expected empty email to be rejected, got %v", err)
	}
}
