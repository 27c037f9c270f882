package model

const (
	EventActive    = "active"
	EventClosed    = "closed"
	EventCanceled  = "canceled"
	EventScheduled = "scheduled"
)

const (
	AttendanceRecorded    = "recorded"
	AttendanceManual      = "manual"
	AttendanceRetroactive = "retroactive"
	AttendanceInvalid     = "invalid"
)

const (
	OccurrenceStudentNotInClass = "student_not_in_class"
	OccurrenceManualNote        = "manual_note"
	OccurrenceInvalidQR         = "invalid_qr"
	OccurrenceDuplicateScan     = "duplicate_scan"
)

type Student struct {
	ID        int64   `json:"id"`
	CPF       string  `json:"cpf"`
	FullName  string  `json:"full_name"`
	DeviceID  *string `json:"device_id,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// BoundDevice returns the device id, or "" when none is bound.
func (s Student) BoundDevice() string {
	if s.DeviceID == nil {
		return ""
	}
	return *s.DeviceID
}

type Teacher struct {
	ID           int64  `json:"id"`
	CPF          string `json:"cpf"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// Public strips the password hash before the teacher leaves the BFF.
func (t Teacher) Public() Teacher {
	t.PasswordHash = ""
	return t
}

type Class struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type ClassWithMembers struct {
	Class
	Students []Student `json:"students"`
	Teachers []Teacher `json:"teachers"`
}

type Location struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

type Event struct {
	ID        string    `json:"id"`
	ClassID   int64     `json:"class_id"`
	TeacherID int64     `json:"teacher_id"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Location  *Location `json:"location,omitempty"`
	Status    string    `json:"status"`
	QRToken   string    `json:"qr_token,omitempty"`
	CreatedAt string    `json:"created_at,omitempty"`
	UpdatedAt string    `json:"updated_at,omitempty"`
}

type Validation struct {
	WithinRadius   *bool    `json:"within_radius,omitempty"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

type Attendance struct {
	ID         string      `json:"id"`
	EventID    string      `json:"event_id"`
	StudentID  int64       `json:"student_id"`
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Location   *Location   `json:"location,omitempty"`
	Validation *Validation `json:"validation,omitempty"`
	CreatedBy  *int64      `json:"created_by,omitempty"`
}

// OnTime reports whether the attendance was not flagged outside the radius.
// A missing validation counts as on time.
func (a Attendance) OnTime() bool {
	return a.Validation == nil || a.Validation.WithinRadius == nil || *a.Validation.WithinRadius
}

type Occurrence struct {
	ID                    string `json:"id"`
	Type                  string `json:"type"`
	TeacherID             int64  `json:"teacher_id"`
	StudentCPF            string `json:"student_cpf,omitempty"`
	ClassID               *int64 `json:"class_id,omitempty"`
	Description           string `json:"description"`
	CreatedAt             string `json:"created_at"`
	NotifiedToInstitution bool   `json:"notified_to_institution"`
}

type PageMeta struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type Page[T any] struct {
	Items []T      `json:"items"`
	Meta  PageMeta `json:"meta"`
}

// EmptyPage is the default substituted when an optional list call fails.
func EmptyPage[T any]() Page[T] {
	return Page[T]{Items: []T{}}
}
