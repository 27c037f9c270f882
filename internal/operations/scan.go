package operations

import (
	"context"
	"net/http"

	"aki/bff/internal/apperr"
	"aki/bff/internal/logging"
	"aki/bff/internal/metrics"
	"aki/bff/internal/model"
)

const (
	ScanSuccess = statusSuccess
	ScanError   = "error"
)

const (
	msgScanRecorded    = "Attendance registered successfully!"
	msgScanOutOfRadius = "Attendance registered, but you are outside the expected location radius."
	msgScanFailed      = "Failed to register attendance. Please try again."
	placeholderStudent = "Student"
)

type ScanRequest struct {
	QRToken    string          `json:"qr_token" validate:"required"`
	DeviceID   string          `json:"device_id" validate:"required"`
	StudentCPF string          `json:"student_cpf,omitempty" validate:"omitempty,len=11,numeric"`
	Location   *model.Location `json:"location,omitempty" validate:"omitempty"`
}

type ScanResult struct {
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Attendance *ScanAttendance `json:"attendance,omitempty"`
}

type ScanAttendance struct {
	ID           string `json:"id"`
	EventID      string `json:"event_id"`
	StudentName  string `json:"student_name"`
	Timestamp    string `json:"timestamp"`
	WithinRadius bool   `json:"within_radius"`
}

// OK reports whether the scan produced an attendance.
func (r ScanResult) OK() bool { return r.Status == ScanSuccess }

// ScanQR registers an attendance from a scanned QR token. It never returns
// an error: registration failures are folded into the result.
func (s *Service) ScanQR(ctx context.Context, req ScanRequest) ScanResult {
	log := logging.Ctx(ctx).With().Str("device_id", req.DeviceID).Logger()

	studentName := s.resolveScanner(ctx, req)

	attendance, err := s.core.CreateAttendance(ctx, model.AttendanceInput{
		QRToken:    req.QRToken,
		DeviceID:   req.DeviceID,
		StudentCPF: req.StudentCPF,
		Location:   req.Location,
	})
	if err != nil {
		log.Error().Err(err).Msg("qr scan failed")
		metrics.ScanResults.WithLabelValues(scanOutcome(err)).Inc()
		message := msgScanFailed
		if appErr, ok := apperr.As(err); ok && appErr.Message != "" {
			message = appErr.Message
		}
		return ScanResult{Status: ScanError, Message: message}
	}

	within := attendance.OnTime()
	message := msgScanRecorded
	outcome := "recorded"
	if !within {
		message = msgScanOutOfRadius
		outcome = "out_of_radius"
	}
	metrics.ScanResults.WithLabelValues(outcome).Inc()
	log.Info().Str("attendance_id", attendance.ID).Int64("student_id", attendance.StudentID).Msg("attendance registered")

	return ScanResult{
		Status:  ScanSuccess,
		Message: message,
		Attendance: &ScanAttendance{
			ID:           attendance.ID,
			EventID:      attendance.EventID,
			StudentName:  studentName,
			Timestamp:    attendance.Timestamp,
			WithinRadius: within,
		},
	}
}

// resolveScanner looks up the student's display name, binding the device to
// the CPF when the device is unknown. Every failure here is tolerated; Core
// does the authoritative validation.
func (s *Service) resolveScanner(ctx context.Context, req ScanRequest) string {
	log := logging.Ctx(ctx)

	student, err := s.personas.GetStudentByDevice(ctx, req.DeviceID)
	if err == nil {
		return student.FullName
	}
	if !apperr.HasStatus(err, http.StatusNotFound) {
		log.Warn().Err(err).Msg("scan: student lookup by device failed")
		return placeholderStudent
	}
	if req.StudentCPF == "" {
		return placeholderStudent
	}

	student, err = s.personas.GetStudentByCPF(ctx, req.StudentCPF)
	if err != nil {
		log.Info().Err(err).Msg("scan: student not found by cpf")
		return placeholderStudent
	}
	if _, err := s.personas.BindDevice(ctx, student.ID, req.DeviceID); err != nil {
		log.Warn().Err(err).Int64("student_id", student.ID).Msg("scan: device bind failed, continuing")
	} else {
		log.Info().Int64("student_id", student.ID).Msg("scan: device bound")
	}
	return student.FullName
}

func scanOutcome(err error) string {
	appErr, ok := apperr.As(err)
	if !ok {
		return "error"
	}
	switch appErr.Status {
	case http.StatusConflict:
		return "conflict"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	if appErr.Status >= 400 && appErr.Status < 500 {
		return "rejected"
	}
	return "error"
}
