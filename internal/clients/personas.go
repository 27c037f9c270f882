package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"aki/bff/internal/apperr"
	"aki/bff/internal/httpclient"
	"aki/bff/internal/model"
)

// Personas is the gateway to the students, teachers and classes service.
type Personas struct {
	http *httpclient.Client
}

func NewPersonas(client *httpclient.Client) *Personas {
	return &Personas{http: client}
}

func (p *Personas) ListStudents(ctx context.Context, filters Filters) (model.Page[model.Student], error) {
	var raw json.RawMessage
	if err := p.http.Get(ctx, "/students", filters.Values(), &raw); err != nil {
		return model.Page[model.Student]{}, err
	}
	return decodePage[model.Student](raw)
}

func (p *Personas) GetStudent(ctx context.Context, id int64) (model.Student, error) {
	return getEntity[model.Student](ctx, p.http, idPath("/students", id))
}

func (p *Personas) CreateStudent(ctx context.Context, in model.StudentInput) (model.Student, error) {
	return postEntity[model.Student](ctx, p.http, "/students", in)
}

func (p *Personas) UpdateStudent(ctx context.Context, id int64, patch model.StudentPatch) (model.Student, error) {
	return putEntity[model.Student](ctx, p.http, idPath("/students", id), nil, patch)
}

func (p *Personas) DeleteStudent(ctx context.Context, id int64) error {
	return p.http.Delete(ctx, idPath("/students", id), nil)
}

func (p *Personas) GetStudentByDevice(ctx context.Context, deviceID string) (model.Student, error) {
	var raw json.RawMessage
	err := p.http.Get(ctx, "/students/device", url.Values{"device_id": {deviceID}}, &raw)
	if err != nil {
		if apperr.HasStatus(err, http.StatusNotFound) {
			return model.Student{}, apperr.NotFound("Student with device " + deviceID + " not found").Wrap(err)
		}
		return model.Student{}, err
	}
	return decodeFirst[model.Student](raw, "Student with device "+deviceID+" not found")
}

func (p *Personas) GetStudentByCPF(ctx context.Context, cpf string) (model.Student, error) {
	var raw json.RawMessage
	if err := p.http.Get(ctx, "/students", url.Values{"q": {cpf}}, &raw); err != nil {
		return model.Student{}, err
	}
	return decodeFirst[model.Student](raw, "Student with CPF "+cpf+" not found")
}

func (p *Personas) BindDevice(ctx context.Context, studentID int64, deviceID string) (model.Student, error) {
	query := url.Values{"studentId": {strconv.FormatInt(studentID, 10)}}
	return putEntity[model.Student](ctx, p.http, "/students/device", query, map[string]string{"device_id": deviceID})
}

func (p *Personas) ListTeachers(ctx context.Context, filters Filters) (model.Page[model.Teacher], error) {
	var raw json.RawMessage
	if err := p.http.Get(ctx, "/teachers", filters.Values(), &raw); err != nil {
		return model.Page[model.Teacher]{}, err
	}
	return decodePage[model.Teacher](raw)
}

func (p *Personas) GetTeacher(ctx context.Context, id int64) (model.Teacher, error) {
	return getEntity[model.Teacher](ctx, p.http, idPath("/teachers", id))
}

func (p *Personas) CreateTeacher(ctx context.Context, in model.TeacherInput) (model.Teacher, error) {
	return postEntity[model.Teacher](ctx, p.http, "/teachers", in)
}

func (p *Personas) UpdateTeacher(ctx context.Context, id int64, patch model.TeacherPatch) (model.Teacher, error) {
	return putEntity[model.Teacher](ctx, p.http, idPath("/teachers", id), nil, patch)
}

func (p *Personas) DeleteTeacher(ctx context.Context, id int64) error {
	return p.http.Delete(ctx, idPath("/teachers", id), nil)
}

func (p *Personas) RecoverPassword(ctx context.Context, email string) (model.RecoveryReceipt, error) {
	return postEntity[model.RecoveryReceipt](ctx, p.http, "/teachers/recover-password", map[string]string{"teacher_email": email})
}

func (p *Personas) GetTeacherByEmail(ctx context.Context, email string) (model.Teacher, error) {
	var raw json.RawMessage
	if err := p.http.Get(ctx, "/teachers", url.Values{"email": {email}}, &raw); err != nil {
		return model.Teacher{}, err
	}
	return decodeFirst[model.Teacher](raw, "Teacher with email "+email+" not found")
}

func (p *Personas) UpdateTeacherPassword(ctx context.Context, teacherID int64, passwordHash string) (model.Teacher, error) {
	return p.UpdateTeacher(ctx, teacherID, model.TeacherPatch{PasswordHash: &passwordHash})
}

func (p *Personas) ListClasses(ctx context.Context, filters Filters) (model.Page[model.Class], error) {
	var raw json.RawMessage
	if err := p.http.Get(ctx, "/classes", filters.Values(), &raw); err != nil {
		return model.Page[model.Class]{}, err
	}
	return decodePage[model.Class](raw)
}

func (p *Personas) GetClass(ctx context.Context, id int64) (model.Class, error) {
	return getEntity[model.Class](ctx, p.http, idPath("/classes", id))
}

// GetClassWithMembers reads the same resource as GetClass; Personas embeds the
// roster in the class payload.
func (p *Personas) GetClassWithMembers(ctx context.Context, id int64) (model.ClassWithMembers, error) {
	class, err := getEntity[model.ClassWithMembers](ctx, p.http, idPath("/classes", id))
	if err != nil {
		return class, err
	}
	if class.Students == nil {
		class.Students = []model.Student{}
	}
	if class.Teachers == nil {
		class.Teachers = []model.Teacher{}
	}
	return class, nil
}

func (p *Personas) CreateClass(ctx context.Context, in model.ClassInput) (model.Class, error) {
	return postEntity[model.Class](ctx, p.http, "/classes", in)
}

func (p *Personas) UpdateClass(ctx context.Context, id int64, in model.ClassInput) (model.Class, error) {
	return putEntity[model.Class](ctx, p.http, idPath("/classes", id), nil, in)
}

func (p *Personas) DeleteClass(ctx context.Context, id int64) error {
	return p.http.Delete(ctx, idPath("/classes", id), nil)
}

func (p *Personas) GetClassStudents(ctx context.Context, classID int64) ([]model.Student, error) {
	var raw json.RawMessage
	if err := p.http.Get(ctx, idPath("/classes", classID, "students"), nil, &raw); err != nil {
		return nil, err
	}
	page, err := decodePage[model.Student](raw)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (p *Personas) AddStudentToClass(ctx context.Context, classID, studentID int64) (model.ClassWithMembers, error) {
	return postEntity[model.ClassWithMembers](ctx, p.http, idPath("/classes", classID, "students"), map[string]int64{"student_id": studentID})
}

func (p *Personas) RemoveStudentFromClass(ctx context.Context, classID, studentID int64) error {
	return p.http.Delete(ctx, idPath("/classes", classID, "students", strconv.FormatInt(studentID, 10)), nil)
}

func (p *Personas) RemoveTeacherFromClass(ctx context.Context, classID, teacherID int64) error {
	return p.http.Delete(ctx, idPath("/classes", classID, "teachers", strconv.FormatInt(teacherID, 10)), nil)
}

// GetTeacherClasses returns the classes a teacher teaches, rosters included.
func (p *Personas) GetTeacherClasses(ctx context.Context, teacherID int64) (model.Page[model.ClassWithMembers], error) {
	var raw json.RawMessage
	if err := p.http.Get(ctx, idPath("/teachers", teacherID, "classes"), nil, &raw); err != nil {
		return model.Page[model.ClassWithMembers]{}, err
	}
	return decodePage[model.ClassWithMembers](raw)
}

func (p *Personas) SyncData(ctx context.Context, req model.SyncRequest) (model.SyncResult, error) {
	return postEntity[model.SyncResult](ctx, p.http, "/admin/sync", req)
}

func getEntity[T any](ctx context.Context, client *httpclient.Client, path string) (T, error) {
	var raw json.RawMessage
	if err := client.Get(ctx, path, nil, &raw); err != nil {
		var zero T
		return zero, err
	}
	return decodeEntity[T](raw)
}

func postEntity[T any](ctx context.Context, client *httpclient.Client, path string, body any) (T, error) {
	var raw json.RawMessage
	if err := client.Post(ctx, path, body, &raw); err != nil {
		var zero T
		return zero, err
	}
	return decodeEntity[T](raw)
}

func putEntity[T any](ctx context.Context, client *httpclient.Client, path string, query url.Values, body any) (T, error) {
	var raw json.RawMessage
	if err := client.Put(ctx, path, query, body, &raw); err != nil {
		var zero T
		return zero, err
	}
	return decodeEntity[T](raw)
}
