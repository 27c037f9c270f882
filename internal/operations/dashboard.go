package operations

import (
	"context"

	"golang.org/x/sync/errgroup"

	"aki/bff/internal/clients"
	"aki/bff/internal/logging"
	"aki/bff/internal/model"
)

type TeacherDashboard struct {
	Teacher           ClassTeacher          `json:"teacher"`
	Classes           []DashboardClass      `json:"classes"`
	UpcomingEvents    []DashboardEvent      `json:"upcoming_events"`
	RecentOccurrences []DashboardOccurrence `json:"recent_occurrences"`
	Stats             DashboardStats        `json:"stats"`
}

type DashboardClass struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	StudentCount int    `json:"student_count"`
}

type DashboardEvent struct {
	ID        string          `json:"id"`
	ClassID   int64           `json:"class_id"`
	ClassName string          `json:"class_name"`
	StartTime string          `json:"start_time"`
	EndTime   string          `json:"end_time"`
	Status    string          `json:"status"`
	Location  *model.Location `json:"location,omitempty"`
}

type DashboardOccurrence struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	ClassID     *int64 `json:"class_id,omitempty"`
	StudentCPF  string `json:"student_cpf,omitempty"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

type DashboardStats struct {
	TotalClasses     int `json:"total_classes"`
	TotalEvents      int `json:"total_events"`
	TotalAttendances int `json:"total_attendances"`
	TotalOccurrences int `json:"total_occurrences"`
}

// TeacherDashboard summarizes a teacher's classes, upcoming events, recent
// occurrences and attendance totals. The teacher and class lookups are
// required; every Core call degrades to empty results.
func (s *Service) TeacherDashboard(ctx context.Context, teacherID int64) (TeacherDashboard, error) {
	log := logging.Ctx(ctx)

	var (
		teacher model.Teacher
		classes model.Page[model.ClassWithMembers]
	)
	var required errgroup.Group
	required.Go(func() error {
		var err error
		teacher, err = s.personas.GetTeacher(ctx, teacherID)
		return err
	})
	required.Go(func() error {
		var err error
		classes, err = s.personas.GetTeacherClasses(ctx, teacherID)
		return err
	})
	if err := required.Wait(); err != nil {
		log.Error().Err(err).Int64("teacher_id", teacherID).Msg("dashboard: teacher lookup failed")
		return TeacherDashboard{}, err
	}

	var upcoming, recent, all model.Page[model.Event]
	var optional errgroup.Group
	optional.Go(func() error {
		upcoming = s.optionalEvents(ctx, clients.Filters{"teacher_id": teacherID, "status": model.EventScheduled, "page": 1, "size": 5})
		return nil
	})
	optional.Go(func() error {
		recent = s.optionalEvents(ctx, clients.Filters{"teacher_id": teacherID, "status": model.EventClosed, "page": 1, "size": 5})
		return nil
	})
	optional.Go(func() error {
		all = s.optionalEvents(ctx, clients.Filters{"teacher_id": teacherID, "page": 1, "size": 1})
		return nil
	})
	_ = optional.Wait()

	occurrences, err := s.core.ListOccurrences(ctx, clients.Filters{"teacher_id": teacherID, "page": 1, "size": 5})
	if err != nil {
		log.Warn().Err(err).Int64("teacher_id", teacherID).Msg("dashboard: occurrences unavailable")
		occurrences = model.EmptyPage[model.Occurrence]()
	}

	totalAttendances := 0
	for _, n := range s.attendanceCounts(ctx, recent.Items) {
		totalAttendances += n
	}

	dashClasses := make([]DashboardClass, 0, len(classes.Items))
	for _, c := range classes.Items {
		dashClasses = append(dashClasses, DashboardClass{ID: c.ID, Name: c.Name, StudentCount: len(c.Students)})
	}

	events := make([]DashboardEvent, len(upcoming.Items))
	var names errgroup.Group
	for i, e := range upcoming.Items {
		names.Go(func() error {
			className := unknownName
			if class, err := s.personas.GetClass(ctx, e.ClassID); err == nil {
				className = class.Name
			}
			events[i] = DashboardEvent{
				ID:        e.ID,
				ClassID:   e.ClassID,
				ClassName: className,
				StartTime: e.StartTime,
				EndTime:   e.EndTime,
				Status:    e.Status,
				Location:  e.Location,
			}
			return nil
		})
	}
	_ = names.Wait()

	recentOccurrences := make([]DashboardOccurrence, 0, len(occurrences.Items))
	for _, o := range occurrences.Items {
		recentOccurrences = append(recentOccurrences, DashboardOccurrence{
			ID:          o.ID,
			Type:        o.Type,
			ClassID:     o.ClassID,
			StudentCPF:  o.StudentCPF,
			Description: o.Description,
			CreatedAt:   o.CreatedAt,
		})
	}

	return TeacherDashboard{
		Teacher:           ClassTeacher{ID: teacher.ID, FullName: teacher.FullName, Email: teacher.Email},
		Classes:           dashClasses,
		UpcomingEvents:    events,
		RecentOccurrences: recentOccurrences,
		Stats: DashboardStats{
			TotalClasses:     len(dashClasses),
			TotalEvents:      all.Meta.Total,
			TotalAttendances: totalAttendances,
			TotalOccurrences: occurrences.Meta.Total,
		},
	}, nil
}
