package clients

import (
	"context"

	"github.com/goccy/go-json"

	"aki/bff/internal/httpclient"
	"aki/bff/internal/model"
)

// Core is the gateway to the events, attendances and occurrences service.
// Core wraps single entities in {data} and lists in {data, meta}.
type Core struct {
	http *httpclient.Client
}

func NewCore(client *httpclient.Client) *Core {
	return &Core{http: client}
}

func (c *Core) CreateEvent(ctx context.Context, in model.EventInput) (model.Event, error) {
	return postEntity[model.Event](ctx, c.http, "/events", in)
}

func (c *Core) ListEvents(ctx context.Context, filters Filters) (model.Page[model.Event], error) {
	return getPage[model.Event](ctx, c.http, "/events", filters)
}

func (c *Core) GetEvent(ctx context.Context, id string) (model.Event, error) {
	return getEntity[model.Event](ctx, c.http, idPath("/events", id))
}

func (c *Core) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (model.Event, error) {
	return putEntity[model.Event](ctx, c.http, idPath("/events", id), nil, patch)
}

func (c *Core) DeleteEvent(ctx context.Context, id string) error {
	return c.http.Delete(ctx, idPath("/events", id), nil)
}

// GetEventQR returns the QR payload as Core shapes it.
func (c *Core) GetEventQR(ctx context.Context, id string) (map[string]any, error) {
	return getEntity[map[string]any](ctx, c.http, idPath("/events", id, "qr"))
}

func (c *Core) CreateAttendance(ctx context.Context, in model.AttendanceInput) (model.Attendance, error) {
	return postEntity[model.Attendance](ctx, c.http, "/attendances", in)
}

func (c *Core) ListAttendances(ctx context.Context, filters Filters) (model.Page[model.Attendance], error) {
	return getPage[model.Attendance](ctx, c.http, "/attendances", filters)
}

func (c *Core) GetAttendance(ctx context.Context, id string) (model.Attendance, error) {
	return getEntity[model.Attendance](ctx, c.http, idPath("/attendances", id))
}

func (c *Core) UpdateAttendance(ctx context.Context, id string, patch model.AttendancePatch) (model.Attendance, error) {
	return putEntity[model.Attendance](ctx, c.http, idPath("/attendances", id), nil, patch)
}

func (c *Core) ListOccurrences(ctx context.Context, filters Filters) (model.Page[model.Occurrence], error) {
	return getPage[model.Occurrence](ctx, c.http, "/occurrences", filters)
}

func (c *Core) CreateOccurrence(ctx context.Context, in model.OccurrenceInput) (model.Occurrence, error) {
	return postEntity[model.Occurrence](ctx, c.http, "/occurrences", in)
}

func getPage[T any](ctx context.Context, client *httpclient.Client, path string, filters Filters) (model.Page[T], error) {
	var raw json.RawMessage
	if err := client.Get(ctx, path, filters.Values(), &raw); err != nil {
		return model.Page[T]{}, err
	}
	return decodePage[T](raw)
}
