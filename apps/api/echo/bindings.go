package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/saber-pedagogico/saber/core"
	"github.com/saber-pedagogico/saber/core/school"
)

type validatable interface {
	Validate(validate *validator.Validate) error
}

func bindAndValidate(ctx echo.Context, req validatable, validate *validator.Validate) error {
	if err := ctx.Bind(req); err != nil {
		return err
	}
	return req.Validate(validate)
}

func fieldError(field, msg string) error {
	return core.NewFieldError(field, msg)
}

type loginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *loginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email)
	return validate.Struct(r)
}

type registerRequest struct {
	Name  string      `json:"name" validate:"required,max=100"`
	Email string      `json:"email" validate:"required,email"`
	Role  school.Role `json:"role" validate:"required,role"`
}

func (r *registerRequest) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	r.Email = core.CleanString(r.Email)
	if r.Role == "" {
		r.Role = school.RoleDocente
	}
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Role == school.RoleSuperAdm {
		return fieldError("role", "cannot register as "+string(school.RoleSuperAdm))
	}
	return nil
}

type profileRequest struct {
	Name   string  `json:"name" validate:"omitempty,max=100"`
	Email  string  `json:"email" validate:"omitempty,email"`
	Avatar *string `json:"avatar" validate:"omitempty,url"`
}

func (r *profileRequest) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	r.Email = core.CleanString(r.Email)
	return validate.Struct(r)
}

type classRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Year    int    `json:"year" validate:"required,min=1900,max=2100"`
	Subject string `json:"subject" validate:"required,max=100"`
}

func (r *classRequest) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	r.Subject = core.CleanString(r.Subject)
	return validate.Struct(r)
}

func (r classRequest) classRoom(id string) school.ClassRoom {
	return school.ClassRoom{ID: id, Name: r.Name, Year: r.Year, Subject: r.Subject}
}

type studentRequest struct {
	Name       string    `json:"name" validate:"required,max=100"`
	ClassID    string    `json:"classId" validate:"required"`
	Grades     []float64 `json:"grades" validate:"omitempty,dive,min=0,max=10"`
	Attendance float64   `json:"attendance" validate:"min=0,max=100"`
	PDI        string    `json:"pdi" validate:"max=2000"`
}

func (r *studentRequest) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	r.ClassID = core.CleanString(r.ClassID)
	r.PDI = core.CleanString(r.PDI)
	return validate.Struct(r)
}

type gradeRequest struct {
	Grade *float64 `json:"grade" validate:"required,min=0,max=10"`
}

func (r *gradeRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

type occurrenceRequest struct {
	Date        string          `json:"date" validate:"required,isodate"`
	Description string          `json:"description" validate:"required,max=1000"`
	Severity    school.Severity `json:"severity" validate:"required,severity"`
}

func (r *occurrenceRequest) Validate(validate *validator.Validate) error {
	r.Description = core.CleanString(r.Description)
	r.Severity = school.Severity(core.CleanString(string(r.Severity)))
	return validate.Struct(r)
}

type lessonPlanRequest struct {
	Subject    string `json:"subject" validate:"required,max=100"`
	Topic      string `json:"topic" validate:"required,max=200"`
	GradeLevel string `json:"gradeLevel" validate:"max=100"`
}

func (r *lessonPlanRequest) Validate(validate *validator.Validate) error {
	r.Subject = core.CleanString(r.Subject)
	r.Topic = core.CleanString(r.Topic)
	r.GradeLevel = core.CleanString(r.GradeLevel)
	return validate.Struct(r)
}

type checkoutRequest struct {
	Plan school.Role `json:"plan" validate:"required,role"`
}

func (r *checkoutRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

type roleRequest struct {
	Role school.Role `json:"role" validate:"required,role"`
}

func (r *roleRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

// errBadRequest wraps binding errors of path and query params.
func errBadRequest(err error, msg string) error {
	return core.NewValidationError(errors.Wrap(err, msg))
}
