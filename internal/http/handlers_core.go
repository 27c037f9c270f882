package http

import (
	"net/http"

	"aki/bff/internal/apperr"
	"aki/bff/internal/model"
)

func (s *Server) handleProfessorDashboard(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil || claims.TeacherID <= 0 {
		writeError(w, r, apperr.Unauthorized("Invalid token"))
		return
	}
	dashboard, err := s.ops.TeacherDashboard(r.Context(), claims.TeacherID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, dashboard, "Dashboard data retrieved successfully")
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if err := bind(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	event, err := s.ops.CreateEvent(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, event, "Event created successfully")
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r, 50, "class_id", "teacher_id", "status")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.core.ListEvents(r.Context(), filters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, page, "Events retrieved successfully")
}

func (s *Server) handleEventDetail(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathString(r, "eventId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := s.ops.EventDetail(r.Context(), eventID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, detail, "Event retrieved successfully")
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathString(r, "eventId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch model.EventPatch
	if err := bind(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	event, err := s.core.UpdateEvent(r.Context(), eventID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, event, "Event updated successfully")
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathString(r, "eventId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.core.DeleteEvent(r.Context(), eventID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEventQR(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathString(r, "eventId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	qr, err := s.core.GetEventQR(r.Context(), eventID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, qr, "QR code retrieved successfully")
}

func (s *Server) handleListAttendances(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r, 50, "event_id", "student_id", "status")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.core.ListAttendances(r.Context(), filters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, page, "Attendances retrieved successfully")
}

func (s *Server) handleGetAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := pathString(r, "attendanceId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	attendance, err := s.core.GetAttendance(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, attendance, "Attendance retrieved successfully")
}

func (s *Server) handleUpdateAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := pathString(r, "attendanceId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch model.AttendancePatch
	if err := bind(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	attendance, err := s.core.UpdateAttendance(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, attendance, "Attendance updated successfully")
}

func (s *Server) handleListOccurrences(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r, 50, "teacher_id", "class_id", "student_cpf", "type")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.core.ListOccurrences(r.Context(), filters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, page, "Occurrences retrieved successfully")
}

func (s *Server) handleCreateOccurrence(w http.ResponseWriter, r *http.Request) {
	var in model.OccurrenceInput
	if err := bind(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	occurrence, err := s.core.CreateOccurrence(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, occurrence, "Occurrence created successfully")
}
