package echoapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/saber-pedagogico/saber/core/access"
	"github.com/saber-pedagogico/saber/core/school"
	"github.com/saber-pedagogico/saber/core/store"
)

func registerSchoolAPI(g *echo.Group, auth echo.MiddlewareFunc, s *Server) {
	cg := g.Group("/classes", auth, requireFeature(s.Policy, access.FeatureClasses))
	cg.GET("", s.listClasses)
	cg.POST("", s.createClass)
	cg.GET("/:id", s.getClass)
	cg.PUT("/:id", s.updateClass)
	cg.DELETE("/:id", s.deleteClass)

	sg := g.Group("/students", auth, requireFeature(s.Policy, access.FeatureStudents))
	sg.GET("", s.listStudents)
	sg.POST("", s.createStudent)
	sg.GET("/:id", s.getStudent)
	sg.PUT("/:id", s.updateStudent)
	sg.DELETE("/:id", s.deleteStudent)
	sg.POST("/:id/grades", s.addGrade)
	sg.POST("/:id/occurrences", s.addOccurrence)
	sg.GET("/:id/analysis", s.studentAnalysis, requireFeature(s.Policy, access.FeatureAI))
}

// Classes

func (s *Server) listClasses(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.Store.GetState().Classes)
}

func (s *Server) getClass(ctx echo.Context) error {
	c, ok := s.Store.GetState().Class(ctx.Param("id"))
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *Server) createClass(ctx echo.Context) error {
	var req classRequest
	if err := bindAndValidate(ctx, &req, s.Validate); err != nil {
		return err
	}
	c := req.classRoom(uuid.NewString())
	s.Store.AddClass(c)
	return ctx.JSON(http.StatusCreated, c)
}

func (s *Server) updateClass(ctx echo.Context) error {
	var req classRequest
	if err := bindAndValidate(ctx, &req, s.Validate); err != nil {
		return err
	}
	c := req.classRoom(ctx.Param("id"))
	if !s.Store.UpdateClass(c) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, c)
}

// deleteClass keeps the students of the class; they are reported under "N/A".
func (s *Server) deleteClass(ctx echo.Context) error {
	if !s.Store.DeleteClass(ctx.Param("id")) {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Students

func (s *Server) listStudents(ctx echo.Context) error {
	st := s.Store.GetState()
	classID := ctx.QueryParam("classId")
	if classID == "" {
		return ctx.JSON(http.StatusOK, st.Students)
	}

	students := make([]school.Student, 0, len(st.Students))
	for _, stu := range st.Students {
		if stu.ClassID == classID {
			students = append(students, stu)
		}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (s *Server) getStudent(ctx echo.Context) error {
	stu, ok := s.Store.GetState().Student(ctx.Param("id"))
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (s *Server) createStudent(ctx echo.Context) error {
	var req studentRequest
	if err := bindAndValidate(ctx, &req, s.Validate); err != nil {
		return err
	}
	if _, ok := s.Store.GetState().Class(req.ClassID); !ok {
		return fieldError("classId", "class not found")
	}

	stu := school.Student{
		ID:          uuid.NewString(),
		Name:        req.Name,
		ClassID:     req.ClassID,
		Grades:      append([]float64{}, req.Grades...),
		Attendance:  req.Attendance,
		Occurrences: []school.Occurrence{},
		PDI:         req.PDI,
	}
	s.Store.AddStudent(stu)
	return ctx.JSON(http.StatusCreated, stu)
}

// updateStudent replaces the editable fields; occurrences and the cached analysis are kept.
func (s *Server) updateStudent(ctx echo.Context) error {
	var req studentRequest
	if err := bindAndValidate(ctx, &req, s.Validate); err != nil {
		return err
	}

	stu, err := s.Store.EditStudent(ctx.Param("id"), store.StudentEdit{
		Name:       req.Name,
		ClassID:    req.ClassID,
		Grades:     req.Grades,
		Attendance: req.Attendance,
		PDI:        req.PDI,
	})
	switch {
	case errors.Is(err, store.ErrStudentNotFound):
		return errHttpNotFound
	case errors.Is(err, store.ErrClassNotFound):
		return fieldError("classId", "class not found")
	case err != nil:
		return err
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (s *Server) deleteStudent(ctx echo.Context) error {
	if !s.Store.DeleteStudent(ctx.Param("id")) {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) addGrade(ctx echo.Context) error {
	var req gradeRequest
	if err := bindAndValidate(ctx, &req, s.Validate); err != nil {
		return err
	}
	id := ctx.Param("id")
	if !s.Store.UpdateGrade(id, *req.Grade) {
		return errHttpNotFound
	}
	return s.getStudent(ctx)
}

func (s *Server) addOccurrence(ctx echo.Context) error {
	var req occurrenceRequest
	if err := bindAndValidate(ctx, &req, s.Validate); err != nil {
		return err
	}
	occ := school.Occurrence{
		ID:          uuid.NewString(),
		Date:        req.Date,
		Description: req.Description,
		Severity:    req.Severity,
	}
	if !s.Store.AddOccurrence(ctx.Param("id"), occ) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusCreated, occ)
}
