package operations

import (
	"context"

	"golang.org/x/sync/errgroup"

	"aki/bff/internal/clients"
	"aki/bff/internal/logging"
	"aki/bff/internal/model"
)

// attendanceSample is how many recent events feed the class average.
const attendanceSample = 3

type ClassDetail struct {
	Class          ClassSummary    `json:"class"`
	Students       []ClassStudent  `json:"students"`
	Teachers       []ClassTeacher  `json:"teachers"`
	RecentEvents   []EventSnapshot `json:"recent_events"`
	UpcomingEvents []EventSnapshot `json:"upcoming_events"`
	Stats          ClassStats      `json:"stats"`
}

type ClassSummary struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type ClassStudent struct {
	ID       int64   `json:"id"`
	CPF      string  `json:"cpf"`
	FullName string  `json:"full_name"`
	DeviceID *string `json:"device_id"`
}

type ClassTeacher struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type EventSnapshot struct {
	ID        string `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
}

type ClassStats struct {
	TotalStudents         int `json:"total_students"`
	TotalTeachers         int `json:"total_teachers"`
	TotalEvents           int `json:"total_events"`
	AverageAttendanceRate int `json:"average_attendance_rate"`
}

// ClassDetail returns a class with its members, its latest closed and
// scheduled events and an average attendance rate over the last few closed
// events. Only the class lookup is required.
func (s *Service) ClassDetail(ctx context.Context, classID int64) (ClassDetail, error) {
	log := logging.Ctx(ctx)

	class, err := s.personas.GetClassWithMembers(ctx, classID)
	if err != nil {
		log.Error().Err(err).Int64("class_id", classID).Msg("class detail: class lookup failed")
		return ClassDetail{}, err
	}

	var recent, upcoming model.Page[model.Event]
	var g errgroup.Group
	g.Go(func() error {
		recent = s.optionalEvents(ctx, clients.Filters{"class_id": classID, "status": model.EventClosed, "page": 1, "size": 5})
		return nil
	})
	g.Go(func() error {
		upcoming = s.optionalEvents(ctx, clients.Filters{"class_id": classID, "status": model.EventScheduled, "page": 1, "size": 5})
		return nil
	})
	_ = g.Wait()

	sample := recent.Items
	if len(sample) > attendanceSample {
		sample = sample[:attendanceSample]
	}
	counts := s.attendanceCounts(ctx, sample)
	sum := 0
	for _, n := range counts {
		sum += n
	}
	average := 0
	if len(counts) > 0 && len(class.Students) > 0 {
		average = rate(sum, len(counts)*len(class.Students))
	}

	students := make([]ClassStudent, 0, len(class.Students))
	for _, st := range class.Students {
		students = append(students, ClassStudent{ID: st.ID, CPF: st.CPF, FullName: st.FullName, DeviceID: st.DeviceID})
	}
	teachers := make([]ClassTeacher, 0, len(class.Teachers))
	for _, t := range class.Teachers {
		teachers = append(teachers, ClassTeacher{ID: t.ID, FullName: t.FullName, Email: t.Email})
	}

	return ClassDetail{
		Class: ClassSummary{
			ID:        class.ID,
			Name:      class.Name,
			CreatedAt: class.CreatedAt,
			UpdatedAt: class.UpdatedAt,
		},
		Students:       students,
		Teachers:       teachers,
		RecentEvents:   snapshots(recent.Items),
		UpcomingEvents: snapshots(upcoming.Items),
		Stats: ClassStats{
			TotalStudents:         len(class.Students),
			TotalTeachers:         len(class.Teachers),
			TotalEvents:           recent.Meta.Total + upcoming.Meta.Total,
			AverageAttendanceRate: average,
		},
	}, nil
}

func (s *Service) optionalEvents(ctx context.Context, filters clients.Filters) model.Page[model.Event] {
	page, err := s.core.ListEvents(ctx, filters)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Interface("filters", filters).Msg("events unavailable")
		return model.EmptyPage[model.Event]()
	}
	return page
}

// attendanceCounts fetches the attendance total of each event in parallel.
// A failed lookup counts as zero.
func (s *Service) attendanceCounts(ctx context.Context, events []model.Event) []int {
	counts := make([]int, len(events))
	var g errgroup.Group
	for i, event := range events {
		g.Go(func() error {
			page, err := s.core.ListAttendances(ctx, clients.Filters{"event_id": event.ID, "page": 1, "size": 1})
			if err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("event_id", event.ID).Msg("attendance count unavailable")
				return nil
			}
			counts[i] = page.Meta.Total
			return nil
		})
	}
	_ = g.Wait()
	return counts
}

func snapshots(events []model.Event) []EventSnapshot {
	out := make([]EventSnapshot, 0, len(events))
	for _, e := range events {
		out = append(out, EventSnapshot{ID: e.ID, StartTime: e.StartTime, EndTime: e.EndTime, Status: e.Status})
	}
	return out
}
