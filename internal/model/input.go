package model

type StudentInput struct {
	CPF      string `json:"cpf" validate:"required,len=11,numeric"`
	FullName string `json:"full_name" validate:"required,min=2,max=255"`
}

type StudentPatch struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=255"`
	DeviceID *string `json:"device_id,omitempty"`
}

type TeacherInput struct {
	CPF          string `json:"cpf" validate:"required,len=11,numeric"`
	FullName     string `json:"full_name" validate:"required,min=2,max=255"`
	Email        string `json:"email" validate:"required,email"`
	PasswordHash string `json:"password_hash,omitempty"`
}

type TeacherPatch struct {
	FullName     *string `json:"full_name,omitempty"`
	Email        *string `json:"email,omitempty"`
	PasswordHash *string `json:"password_hash,omitempty"`
}

type ClassInput struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

type EventInput struct {
	ClassID   int64     `json:"class_id" validate:"required,gt=0"`
	TeacherID int64     `json:"teacher_id" validate:"required,gt=0"`
	StartTime string    `json:"start_time" validate:"required"`
	EndTime   string    `json:"end_time" validate:"required"`
	Location  *Location `json:"location,omitempty"`
}

type EventPatch struct {
	StartTime *string   `json:"start_time,omitempty"`
	EndTime   *string   `json:"end_time,omitempty"`
	Location  *Location `json:"location,omitempty"`
	Status    *string   `json:"status,omitempty" validate:"omitempty,oneof=active closed canceled scheduled"`
}

type AttendanceInput struct {
	QRToken    string    `json:"qr_token"`
	DeviceID   string    `json:"device_id"`
	StudentCPF string    `json:"student_cpf,omitempty"`
	Location   *Location `json:"location,omitempty"`
}

type AttendancePatch struct {
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=recorded manual retroactive invalid"`
	Reason *string `json:"reason,omitempty"`
}

type OccurrenceInput struct {
	Type        string `json:"type" validate:"required,oneof=student_not_in_class manual_note invalid_qr duplicate_scan"`
	TeacherID   int64  `json:"teacher_id" validate:"required,gt=0"`
	StudentCPF  string `json:"student_cpf,omitempty" validate:"omitempty,len=11,numeric"`
	ClassID     *int64 `json:"class_id,omitempty"`
	Description string `json:"description" validate:"required"`
}

type SyncChange struct {
	Action string         `json:"action" validate:"required,oneof=create update delete"`
	Record map[string]any `json:"record"`
}

type SyncRequest struct {
	Source    string `json:"source" validate:"required"`
	Timestamp string `json:"timestamp" validate:"required"`
	Changes   struct {
		Students []SyncChange `json:"students,omitempty" validate:"dive"`
		Teachers []SyncChange `json:"teachers,omitempty" validate:"dive"`
		Classes  []SyncChange `json:"classes,omitempty" validate:"dive"`
	} `json:"changes"`
}

type SyncResult struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
}

type RecoveryReceipt struct {
	Status       string `json:"status"`
	TeacherEmail string `json:"teacher_email"`
	SentAt       string `json:"sent_at"`
}

type TokenValidation struct {
	Valid        bool   `json:"valid"`
	TeacherEmail string `json:"teacher_email,omitempty"`
}
