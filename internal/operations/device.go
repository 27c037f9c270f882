package operations

import (
	"context"
	"net/http"

	"aki/bff/internal/apperr"
	"aki/bff/internal/logging"
	"aki/bff/internal/model"
)

const (
	msgDeviceBound      = "Device bound successfully"
	msgDeviceAlready    = "Device already bound to this student"
	msgDeviceCleared    = "Device unlinked from student"
	msgDeviceRegistered = "Device registered and attendance recorded"
)

type DeviceRequest struct {
	CPF      string `json:"cpf" validate:"required,len=11,numeric"`
	DeviceID string `json:"device_id" validate:"required"`
}

type DeviceResult struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	StudentID int64  `json:"student_id,omitempty"`
}

// BindDevice binds a device to the student with the given CPF. Binding the
// same pair twice is a no-op; a device or student already bound elsewhere is
// a conflict and nothing is written.
func (s *Service) BindDevice(ctx context.Context, req DeviceRequest) (DeviceResult, error) {
	log := logging.Ctx(ctx)

	owner, err := s.personas.GetStudentByDevice(ctx, req.DeviceID)
	switch {
	case err == nil && owner.CPF == req.CPF:
		return DeviceResult{Status: statusSuccess, Message: msgDeviceAlready, StudentID: owner.ID}, nil
	case err == nil:
		return DeviceResult{}, apperr.Conflict("Device is already bound to another student", map[string]string{"device_id": req.DeviceID})
	case !apperr.HasStatus(err, http.StatusNotFound):
		return DeviceResult{}, err
	}

	student, err := s.personas.GetStudentByCPF(ctx, req.CPF)
	if err != nil {
		return DeviceResult{}, err
	}
	if current := student.BoundDevice(); current != "" && current != req.DeviceID {
		return DeviceResult{}, apperr.Conflict("Student already has a device bound. Please reset the device first.", map[string]string{"current_device": current})
	}

	updated, err := s.personas.BindDevice(ctx, student.ID, req.DeviceID)
	if err != nil {
		return DeviceResult{}, err
	}
	if updated.ID == 0 {
		updated.ID = student.ID
	}
	log.Info().Int64("student_id", updated.ID).Str("device_id", req.DeviceID).Msg("device bound")
	return DeviceResult{Status: statusSuccess, Message: msgDeviceBound, StudentID: updated.ID}, nil
}

// ClearDevice unbinds whatever device the student currently has.
func (s *Service) ClearDevice(ctx context.Context, studentID int64) (DeviceResult, error) {
	if _, err := s.personas.GetStudent(ctx, studentID); err != nil {
		return DeviceResult{}, err
	}
	empty := ""
	if _, err := s.personas.UpdateStudent(ctx, studentID, model.StudentPatch{DeviceID: &empty}); err != nil {
		return DeviceResult{}, err
	}
	logging.Ctx(ctx).Info().Int64("student_id", studentID).Msg("device cleared")
	return DeviceResult{Status: statusSuccess, Message: msgDeviceCleared}, nil
}

type RegisterDeviceRequest struct {
	CPF      string          `json:"cpf" validate:"required,len=11,numeric"`
	DeviceID string          `json:"device_id" validate:"required"`
	QRToken  string          `json:"qr_token" validate:"required"`
	Location *model.Location `json:"location,omitempty" validate:"omitempty"`
}

type RegisterDeviceResult struct {
	Data    ScanResult `json:"data"`
	Message string     `json:"message"`
}

// RegisterDeviceByCPF binds the device unconditionally and then scans.
func (s *Service) RegisterDeviceByCPF(ctx context.Context, req RegisterDeviceRequest) (RegisterDeviceResult, error) {
	student, err := s.personas.GetStudentByCPF(ctx, req.CPF)
	if err != nil {
		return RegisterDeviceResult{}, err
	}
	if _, err := s.personas.BindDevice(ctx, student.ID, req.DeviceID); err != nil {
		return RegisterDeviceResult{}, err
	}
	result := s.ScanQR(ctx, ScanRequest{
		QRToken:    req.QRToken,
		DeviceID:   req.DeviceID,
		StudentCPF: req.CPF,
		Location:   req.Location,
	})
	return RegisterDeviceResult{Data: result, Message: msgDeviceRegistered}, nil
}
