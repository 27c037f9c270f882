package http

import (
	"net/http"

	"aki/bff/internal/operations"
)

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req operations.ScanRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result := s.ops.ScanQR(r.Context(), req)
	if result.OK() {
		writeData(w, http.StatusCreated, result, "Attendance recorded")
		return
	}
	writeData(w, http.StatusBadRequest, result, "Scan processed")
}

func (s *Server) handleBindDevice(w http.ResponseWriter, r *http.Request) {
	var req operations.DeviceRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.ops.BindDevice(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, result, result.Message)
}

func (s *Server) handleClearDevice(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "studentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.ops.ClearDevice(r.Context(), studentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRegisterDeviceByCPF(w http.ResponseWriter, r *http.Request) {
	var req operations.RegisterDeviceRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.ops.RegisterDeviceByCPF(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
