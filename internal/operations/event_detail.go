package operations

import (
	"context"

	"golang.org/x/sync/errgroup"

	"aki/bff/internal/clients"
	"aki/bff/internal/logging"
	"aki/bff/internal/model"
)

type EventDetail struct {
	Event          EventSummary      `json:"event"`
	Attendances    []EventAttendance `json:"attendances"`
	AbsentStudents []AbsentStudent   `json:"absent_students"`
	Stats          EventStats        `json:"stats"`
}

type EventSummary struct {
	ID          string          `json:"id"`
	ClassID     int64           `json:"class_id"`
	ClassName   string          `json:"class_name"`
	TeacherID   int64           `json:"teacher_id"`
	TeacherName string          `json:"teacher_name"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time"`
	Location    *model.Location `json:"location,omitempty"`
	Status      string          `json:"status"`
	QRToken     string          `json:"qr_token,omitempty"`
}

type EventAttendance struct {
	ID           string          `json:"id"`
	StudentID    int64           `json:"student_id"`
	StudentName  string          `json:"student_name"`
	StudentCPF   string          `json:"student_cpf"`
	Timestamp    string          `json:"timestamp"`
	Status       string          `json:"status"`
	Location     *model.Location `json:"location,omitempty"`
	WithinRadius *bool           `json:"within_radius,omitempty"`
}

type AbsentStudent struct {
	ID       int64  `json:"id"`
	CPF      string `json:"cpf"`
	FullName string `json:"full_name"`
}

type EventStats struct {
	TotalStudents     int `json:"total_students"`
	TotalAttendances  int `json:"total_attendances"`
	AttendanceRate    int `json:"attendance_rate"`
	OnTimeAttendances int `json:"on_time_attendances"`
	AbsentCount       int `json:"absent_count"`
}

// EventDetail joins an event with its class roster and attendance list.
// The attendance list is optional; everything else is required.
func (s *Service) EventDetail(ctx context.Context, eventID string) (EventDetail, error) {
	log := logging.Ctx(ctx)

	event, err := s.core.GetEvent(ctx, eventID)
	if err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("event detail: event lookup failed")
		return EventDetail{}, err
	}

	attendances, err := s.core.ListAttendances(ctx, clients.Filters{"event_id": eventID, "page": 1, "size": 100})
	if err != nil {
		log.Warn().Err(err).Str("event_id", eventID).Msg("event detail: attendances unavailable")
		attendances = model.EmptyPage[model.Attendance]()
	}

	var (
		class   model.Class
		teacher model.Teacher
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		class, err = s.personas.GetClass(ctx, event.ClassID)
		return err
	})
	g.Go(func() error {
		var err error
		teacher, err = s.personas.GetTeacher(ctx, event.TeacherID)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("event detail: class or teacher lookup failed")
		return EventDetail{}, err
	}

	students, err := s.personas.GetClassStudents(ctx, event.ClassID)
	if err != nil {
		log.Error().Err(err).Int64("class_id", event.ClassID).Msg("event detail: roster lookup failed")
		return EventDetail{}, err
	}

	byID := make(map[int64]model.Student, len(students))
	for _, student := range students {
		byID[student.ID] = student
	}

	present := make(map[int64]bool, len(attendances.Items))
	rows := make([]EventAttendance, 0, len(attendances.Items))
	onTime := 0
	for _, att := range attendances.Items {
		present[att.StudentID] = true
		if att.OnTime() {
			onTime++
		}
		row := EventAttendance{
			ID:          att.ID,
			StudentID:   att.StudentID,
			StudentName: unknownName,
			Timestamp:   att.Timestamp,
			Status:      att.Status,
			Location:    att.Location,
		}
		if att.Validation != nil {
			row.WithinRadius = att.Validation.WithinRadius
		}
		if student, ok := byID[att.StudentID]; ok {
			row.StudentName = student.FullName
			row.StudentCPF = student.CPF
		}
		rows = append(rows, row)
	}

	absent := make([]AbsentStudent, 0)
	for _, student := range students {
		if !present[student.ID] {
			absent = append(absent, AbsentStudent{ID: student.ID, CPF: student.CPF, FullName: student.FullName})
		}
	}

	total := attendances.Meta.Total
	return EventDetail{
		Event: EventSummary{
			ID:          event.ID,
			ClassID:     event.ClassID,
			ClassName:   class.Name,
			TeacherID:   event.TeacherID,
			TeacherName: teacher.FullName,
			StartTime:   event.StartTime,
			EndTime:     event.EndTime,
			Location:    event.Location,
			Status:      event.Status,
			QRToken:     event.QRToken,
		},
		Attendances:    rows,
		AbsentStudents: absent,
		Stats: EventStats{
			TotalStudents:     len(students),
			TotalAttendances:  total,
			AttendanceRate:    rate(total, len(students)),
			OnTimeAttendances: onTime,
			AbsentCount:       len(absent),
		},
	}, nil
}
