package operations

import (
	"context"
	"fmt"
	"sync"

	"aki/bff/internal/apperr"
	"aki/bff/internal/clients"
	"aki/bff/internal/model"
)

type fakePersonas struct {
	PersonasGateway

	mu       sync.Mutex
	calls    []string
	students map[int64]model.Student
	teachers map[int64]model.Teacher
	classes  map[int64]model.ClassWithMembers
	rosters  map[int64][]model.Student
	// rosterErr makes GetClassStudents fail for the listed classes.
	rosterErr map[int64]error
	deviceErr error
	bindErr   error
	bound     map[int64]string
	updates   map[int64]model.StudentPatch
	passwords map[int64]string
}

func newFakePersonas() *fakePersonas {
	return &fakePersonas{
		students:  map[int64]model.Student{},
		teachers:  map[int64]model.Teacher{},
		classes:   map[int64]model.ClassWithMembers{},
		rosters:   map[int64][]model.Student{},
		rosterErr: map[int64]error{},
		bound:     map[int64]string{},
		updates:   map[int64]model.StudentPatch{},
		passwords: map[int64]string{},
	}
}

func (f *fakePersonas) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakePersonas) called(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakePersonas) GetStudent(_ context.Context, id int64) (model.Student, error) {
	f.record("GetStudent")
	st, ok := f.students[id]
	if !ok {
		return model.Student{}, apperr.NotFound(fmt.Sprintf("Student %d not found", id))
	}
	return st, nil
}

func (f *fakePersonas) UpdateStudent(_ context.Context, id int64, patch model.StudentPatch) (model.Student, error) {
	f.record("UpdateStudent")
	f.mu.Lock()
	f.updates[id] = patch
	f.mu.Unlock()
	return f.students[id], nil
}

func (f *fakePersonas) GetStudentByDevice(_ context.Context, deviceID string) (model.Student, error) {
	f.record("GetStudentByDevice")
	if f.deviceErr != nil {
		return model.Student{}, f.deviceErr
	}
	for _, st := range f.students {
		if st.BoundDevice() == deviceID {
			return st, nil
		}
	}
	return model.Student{}, apperr.NotFound("Student not found for device " + deviceID)
}

func (f *fakePersonas) GetStudentByCPF(_ context.Context, cpf string) (model.Student, error) {
	f.record("GetStudentByCPF")
	for _, st := range f.students {
		if st.CPF == cpf {
			return st, nil
		}
	}
	return model.Student{}, apperr.NotFound("Student with CPF " + cpf + " not found")
}

func (f *fakePersonas) BindDevice(_ context.Context, studentID int64, deviceID string) (model.Student, error) {
	f.record("BindDevice")
	if f.bindErr != nil {
		return model.Student{}, f.bindErr
	}
	f.mu.Lock()
	f.bound[studentID] = deviceID
	f.mu.Unlock()
	st := f.students[studentID]
	st.DeviceID = &deviceID
	return st, nil
}

func (f *fakePersonas) GetTeacher(_ context.Context, id int64) (model.Teacher, error) {
	f.record("GetTeacher")
	t, ok := f.teachers[id]
	if !ok {
		return model.Teacher{}, apperr.NotFound("Teacher not found")
	}
	return t, nil
}

func (f *fakePersonas) GetTeacherByEmail(_ context.Context, email string) (model.Teacher, error) {
	f.record("GetTeacherByEmail")
	for _, t := range f.teachers {
		if t.Email == email {
			return t, nil
		}
	}
	return model.Teacher{}, apperr.NotFound("Teacher with email " + email + " not found")
}

func (f *fakePersonas) UpdateTeacher(_ context.Context, id int64, patch model.TeacherPatch) (model.Teacher, error) {
	f.record("UpdateTeacher")
	t := f.teachers[id]
	t.ID = id
	if patch.FullName != nil {
		t.FullName = *patch.FullName
	}
	if patch.Email != nil {
		t.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		t.PasswordHash = *patch.PasswordHash
	}
	return t, nil
}

func (f *fakePersonas) UpdateTeacherPassword(_ context.Context, teacherID int64, hash string) (model.Teacher, error) {
	f.record("UpdateTeacherPassword")
	f.mu.Lock()
	f.passwords[teacherID] = hash
	f.mu.Unlock()
	return f.teachers[teacherID], nil
}

func (f *fakePersonas) GetTeacherClasses(_ context.Context, teacherID int64) (model.Page[model.ClassWithMembers], error) {
	f.record("GetTeacherClasses")
	page := model.EmptyPage[model.ClassWithMembers]()
	for _, c := range f.classes {
		for _, t := range c.Teachers {
			if t.ID == teacherID {
				page.Items = append(page.Items, c)
			}
		}
	}
	page.Meta.Total = len(page.Items)
	return page, nil
}

func (f *fakePersonas) ListClasses(_ context.Context, _ clients.Filters) (model.Page[model.Class], error) {
	f.record("ListClasses")
	page := model.EmptyPage[model.Class]()
	for id := int64(1); id <= int64(len(f.classes)); id++ {
		if c, ok := f.classes[id]; ok {
			page.Items = append(page.Items, c.Class)
		}
	}
	page.Meta.Total = len(page.Items)
	return page, nil
}

func (f *fakePersonas) GetClass(_ context.Context, id int64) (model.Class, error) {
	f.record("GetClass")
	c, ok := f.classes[id]
	if !ok {
		return model.Class{}, apperr.NotFound("Class not found")
	}
	return c.Class, nil
}

func (f *fakePersonas) GetClassWithMembers(_ context.Context, id int64) (model.ClassWithMembers, error) {
	f.record("GetClassWithMembers")
	c, ok := f.classes[id]
	if !ok {
		return model.ClassWithMembers{}, apperr.NotFound("Class not found")
	}
	return c, nil
}

func (f *fakePersonas) GetClassStudents(_ context.Context, classID int64) ([]model.Student, error) {
	f.record("GetClassStudents")
	if err := f.rosterErr[classID]; err != nil {
		return nil, err
	}
	return f.rosters[classID], nil
}

func (f *fakePersonas) RecoverPassword(_ context.Context, email string) (model.RecoveryReceipt, error) {
	f.record("RecoverPassword")
	return model.RecoveryReceipt{Status: "sent", TeacherEmail: email}, nil
}

type fakeCore struct {
	CoreGateway

	mu          sync.Mutex
	events      map[string]model.Page[model.Event]
	eventsErr   error
	event       model.Event
	attendances map[string]model.Page[model.Attendance]
	attErr      error
	occurrences model.Page[model.Occurrence]
	occErr      error
	created     model.Attendance
	createErr   error
	inputs      []model.AttendanceInput
}

// filterKey renders the filters the fakes index pages by.
func filterKey(filters clients.Filters) string {
	return filters.Values().Encode()
}

func (f *fakeCore) GetEvent(_ context.Context, id string) (model.Event, error) {
	if f.event.ID != id {
		return model.Event{}, apperr.NotFound("Event not found")
	}
	return f.event, nil
}

func (f *fakeCore) CreateEvent(_ context.Context, in model.EventInput) (model.Event, error) {
	return model.Event{ID: "evt-new", ClassID: in.ClassID, TeacherID: in.TeacherID, StartTime: in.StartTime, EndTime: in.EndTime, Status: model.EventScheduled, QRToken: "qr"}, nil
}

func (f *fakeCore) ListEvents(_ context.Context, filters clients.Filters) (model.Page[model.Event], error) {
	if f.eventsErr != nil {
		return model.Page[model.Event]{}, f.eventsErr
	}
	if page, ok := f.events[filterKey(filters)]; ok {
		return page, nil
	}
	return model.EmptyPage[model.Event](), nil
}

func (f *fakeCore) ListAttendances(_ context.Context, filters clients.Filters) (model.Page[model.Attendance], error) {
	if f.attErr != nil {
		return model.Page[model.Attendance]{}, f.attErr
	}
	if page, ok := f.attendances[filterKey(filters)]; ok {
		return page, nil
	}
	return model.EmptyPage[model.Attendance](), nil
}

func (f *fakeCore) ListOccurrences(_ context.Context, _ clients.Filters) (model.Page[model.Occurrence], error) {
	if f.occErr != nil {
		return model.Page[model.Occurrence]{}, f.occErr
	}
	return f.occurrences, nil
}

func (f *fakeCore) CreateAttendance(_ context.Context, in model.AttendanceInput) (model.Attendance, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	if f.createErr != nil {
		return model.Attendance{}, f.createErr
	}
	return f.created, nil
}

type fakeRecovery struct {
	sendErr    error
	validation model.TokenValidation
	validErr   error
	sent       []string
}

func (f *fakeRecovery) SendPasswordRecovery(_ context.Context, email string) error {
	f.sent = append(f.sent, email)
	return f.sendErr
}

func (f *fakeRecovery) ValidateResetToken(_ context.Context, _ string) (model.TokenValidation, error) {
	return f.validation, f.validErr
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func students(n int) []model.Student {
	out := make([]model.Student, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.Student{ID: int64(i), CPF: fmt.Sprintf("%011d", i), FullName: fmt.Sprintf("Student %d", i)})
	}
	return out
}
