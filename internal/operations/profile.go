package operations

import (
	"context"

	"golang.org/x/sync/errgroup"

	"aki/bff/internal/clients"
	"aki/bff/internal/logging"
	"aki/bff/internal/model"
)

type StudentProfile struct {
	Student           ProfileStudent      `json:"student"`
	EnrolledClasses   []EnrolledClass     `json:"enrolled_classes"`
	RecentAttendances []ProfileAttendance `json:"recent_attendances"`
	Stats             ProfileStats        `json:"stats"`
}

type ProfileStudent struct {
	ID        int64   `json:"id"`
	CPF       string  `json:"cpf"`
	FullName  string  `json:"full_name"`
	DeviceID  *string `json:"device_id"`
	CreatedAt string  `json:"created_at,omitempty"`
}

type EnrolledClass struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ProfileAttendance struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

type ProfileStats struct {
	TotalClasses     int `json:"total_classes"`
	TotalAttendances int `json:"total_attendances"`
	AttendanceRate   int `json:"attendance_rate"`
}

// StudentProfile finds the classes a student is enrolled in, their latest
// attendances and an attendance rate against the closed events of those
// classes. A class whose roster cannot be read counts as not enrolled.
func (s *Service) StudentProfile(ctx context.Context, studentID int64) (StudentProfile, error) {
	log := logging.Ctx(ctx)

	student, err := s.personas.GetStudent(ctx, studentID)
	if err != nil {
		log.Error().Err(err).Int64("student_id", studentID).Msg("student profile: student lookup failed")
		return StudentProfile{}, err
	}

	classes, err := s.personas.ListClasses(ctx, clients.Filters{"page": 1, "size": 100})
	if err != nil {
		log.Error().Err(err).Int64("student_id", studentID).Msg("student profile: class listing failed")
		return StudentProfile{}, err
	}

	enrolled := s.enrolledClasses(ctx, studentID, classes.Items)

	attendances, err := s.core.ListAttendances(ctx, clients.Filters{"student_id": studentID, "page": 1, "size": 10})
	if err != nil {
		log.Warn().Err(err).Int64("student_id", studentID).Msg("student profile: attendances unavailable")
		attendances = model.EmptyPage[model.Attendance]()
	}

	expected := 0
	for _, class := range enrolled {
		events := s.optionalEvents(ctx, clients.Filters{"class_id": class.ID, "status": model.EventClosed, "page": 1, "size": 1})
		expected += events.Meta.Total
	}

	recent := make([]ProfileAttendance, 0, len(attendances.Items))
	for _, att := range attendances.Items {
		recent = append(recent, ProfileAttendance{ID: att.ID, EventID: att.EventID, Timestamp: att.Timestamp, Status: att.Status})
	}

	total := attendances.Meta.Total
	return StudentProfile{
		Student: ProfileStudent{
			ID:        student.ID,
			CPF:       student.CPF,
			FullName:  student.FullName,
			DeviceID:  student.DeviceID,
			CreatedAt: student.CreatedAt,
		},
		EnrolledClasses:   enrolled,
		RecentAttendances: recent,
		Stats: ProfileStats{
			TotalClasses:     len(enrolled),
			TotalAttendances: total,
			AttendanceRate:   rate(total, expected),
		},
	}, nil
}

// enrolledClasses checks each roster with bounded concurrency and keeps the
// listing order.
func (s *Service) enrolledClasses(ctx context.Context, studentID int64, classes []model.Class) []EnrolledClass {
	member := make([]bool, len(classes))
	var g errgroup.Group
	g.SetLimit(rosterConcurrency)
	for i, class := range classes {
		g.Go(func() error {
			roster, err := s.personas.GetClassStudents(ctx, class.ID)
			if err != nil {
				logging.Ctx(ctx).Debug().Err(err).Int64("class_id", class.ID).Msg("roster unavailable")
				return nil
			}
			for _, st := range roster {
				if st.ID == studentID {
					member[i] = true
					break
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]EnrolledClass, 0)
	for i, class := range classes {
		if member[i] {
			out = append(out, EnrolledClass{ID: class.ID, Name: class.Name})
		}
	}
	return out
}
