package http

import (
	"net/http"
	"strconv"
	"strings"

	"aki/bff/internal/apperr"
	"aki/bff/internal/crypto"
	"aki/bff/internal/model"
)

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r, 50, "q")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.personas.ListStudents(r.Context(), filters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var in model.StudentInput
	if err := bind(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	student, err := s.personas.CreateStudent(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

func (s *Server) handleStudentProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := s.ops.StudentProfile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch model.StudentPatch
	if err := bind(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	student, err := s.personas.UpdateStudent(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.personas.DeleteStudent(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetStudentByDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.TrimSpace(r.URL.Query().Get("device_id"))
	if deviceID == "" {
		writeError(w, r, apperr.BadRequest("Validation failed", "device_id query parameter must be provided"))
		return
	}
	student, err := s.personas.GetStudentByDevice(r.Context(), deviceID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

type deviceBody struct {
	DeviceID string `json:"device_id" validate:"required"`
}

func (s *Server) handlePutStudentDevice(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.URL.Query().Get("studentId"), 10, 64)
	if err != nil || studentID <= 0 {
		writeError(w, r, apperr.BadRequest("Validation failed", "studentId query parameter must be provided"))
		return
	}
	var body deviceBody
	if err := bind(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	student, err := s.personas.BindDevice(r.Context(), studentID, body.DeviceID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (s *Server) handleListTeachers(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r, 50)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.personas.ListTeachers(r.Context(), filters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for i := range page.Items {
		page.Items[i] = page.Items[i].Public()
	}
	writeJSON(w, http.StatusOK, page)
}

type createTeacherBody struct {
	CPF      string `json:"cpf" validate:"required,len=11,numeric"`
	FullName string `json:"full_name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password,omitempty" validate:"omitempty,min=6"`
}

func (s *Server) handleCreateTeacher(w http.ResponseWriter, r *http.Request) {
	var body createTeacherBody
	if err := bind(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	in := model.TeacherInput{
		CPF:      body.CPF,
		FullName: strings.TrimSpace(body.FullName),
		Email:    strings.ToLower(strings.TrimSpace(body.Email)),
	}
	if body.Password != "" {
		hash, err := crypto.HashPassword(body.Password)
		if err != nil {
			writeError(w, r, apperr.Internal("Failed to hash password").Wrap(err))
			return
		}
		in.PasswordHash = hash
	}
	teacher, err := s.personas.CreateTeacher(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, teacher.Public())
}

func (s *Server) handleGetTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	teacher, err := s.personas.GetTeacher(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teacher.Public())
}

func (s *Server) handleUpdateTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch model.TeacherPatch
	if err := bind(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	teacher, err := s.ops.UpdateTeacher(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teacher.Public())
}

func (s *Server) handleDeleteTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.personas.DeleteTeacher(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recoverPasswordBody struct {
	Email string `json:"email"`
}

func (s *Server) handleRecoverTeacherPassword(w http.ResponseWriter, r *http.Request) {
	var body recoverPasswordBody
	if err := bind(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	receipt, err := s.ops.RecoverTeacherPassword(r.Context(), body.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleTeacherDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	dashboard, err := s.ops.TeacherDashboard(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (s *Server) handleListClasses(w http.ResponseWriter, r *http.Request) {
	filters, err := queryFilters(r, 50)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.personas.ListClasses(r.Context(), filters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	var in model.ClassInput
	if err := bind(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	class, err := s.personas.CreateClass(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, class)
}

func (s *Server) handleClassDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := s.ops.ClassDetail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleUpdateClass(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in model.ClassInput
	if err := bind(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	class, err := s.personas.UpdateClass(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (s *Server) handleDeleteClass(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.personas.DeleteClass(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClassStudents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	students, err := s.personas.GetClassStudents(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

type classMemberBody struct {
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
}

func (s *Server) handleAddStudentToClass(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body classMemberBody
	if err := bind(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	class, err := s.personas.AddStudentToClass(r.Context(), id, body.StudentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, class)
}

func (s *Server) handleRemoveStudentFromClass(w http.ResponseWriter, r *http.Request) {
	classID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	studentID, err := pathID(r, "studentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.personas.RemoveStudentFromClass(r.Context(), classID, studentID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveTeacherFromClass(w http.ResponseWriter, r *http.Request) {
	classID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	teacherID, err := pathID(r, "teacherId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.personas.RemoveTeacherFromClass(r.Context(), classID, teacherID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req model.SyncRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.personas.SyncData(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
