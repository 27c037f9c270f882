package operations

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"aki/bff/internal/logging"
	"aki/bff/internal/model"
)

type EventResponse struct {
	ID          string          `json:"id"`
	ClassID     int64           `json:"class_id"`
	ClassName   string          `json:"class_name"`
	TeacherID   int64           `json:"teacher_id"`
	TeacherName string          `json:"teacher_name"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time"`
	Location    *model.Location `json:"location,omitempty"`
	QRToken     string          `json:"qr_token,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// CreateEvent creates the event in Core and decorates it with the class and
// teacher names.
func (s *Service) CreateEvent(ctx context.Context, in model.EventInput) (EventResponse, error) {
	event, err := s.core.CreateEvent(ctx, in)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Int64("class_id", in.ClassID).Msg("create event failed")
		return EventResponse{}, err
	}

	var (
		class   model.Class
		teacher model.Teacher
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		class, err = s.personas.GetClass(ctx, in.ClassID)
		return err
	})
	g.Go(func() error {
		var err error
		teacher, err = s.personas.GetTeacher(ctx, in.TeacherID)
		return err
	})
	if err := g.Wait(); err != nil {
		return EventResponse{}, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	return EventResponse{
		ID:          event.ID,
		ClassID:     event.ClassID,
		ClassName:   class.Name,
		TeacherID:   event.TeacherID,
		TeacherName: teacher.FullName,
		StartTime:   event.StartTime,
		EndTime:     event.EndTime,
		Location:    event.Location,
		QRToken:     event.QRToken,
		Status:      event.Status,
		CreatedAt:   orNow(event.CreatedAt, now),
		UpdatedAt:   orNow(event.UpdatedAt, now),
	}, nil
}

func orNow(value, now string) string {
	if value == "" {
		return now
	}
	return value
}
