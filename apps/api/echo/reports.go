package echoapi

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/saber-pedagogico/saber/core/access"
	"github.com/saber-pedagogico/saber/core/pedagogy"
)

const reportFilename = "relatorio_alunos.csv"

func registerReportsAPI(g *echo.Group, auth echo.MiddlewareFunc, s *Server) {
	g.GET("/dashboard", s.dashboard, auth, requireFeature(s.Policy, access.FeatureDashboard))

	rg := g.Group("/reports", auth, requireFeature(s.Policy, access.FeatureReports))
	rg.GET("/students", s.studentsReport)
	rg.GET("/students.csv", s.studentsCSV)
	rg.POST("/lesson-plans", s.lessonPlan)
}

func (s *Server) dashboard(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, pedagogy.Summarize(s.Store.GetState()))
}

func (s *Server) studentsReport(ctx echo.Context) error {
	rows := pedagogy.StudentRows(s.Store.GetState(), ctx.QueryParam("classId"))
	return ctx.JSON(http.StatusOK, rows)
}

func (s *Server) studentsCSV(ctx echo.Context) error {
	rows := pedagogy.StudentRows(s.Store.GetState(), ctx.QueryParam("classId"))

	var buf bytes.Buffer
	if err := pedagogy.WriteStudentsCSV(&buf, rows); err != nil {
		return errors.Wrap(err, "writing students csv")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+reportFilename+`"`)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) lessonPlan(ctx echo.Context) error {
	var req lessonPlanRequest
	if err := bindAndValidate(ctx, &req, s.Validate); err != nil {
		return err
	}
	lp, err := s.Analyzer.LessonPlan(ctx.Request().Context(), req.Subject, req.Topic, req.GradeLevel)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lp)
}

type analysisResponse struct {
	StudentID string            `json:"studentId"`
	Analysis  pedagogy.Analysis `json:"analysis"`
}

// studentAnalysis serves the cached analysis unless ?refresh=true.
func (s *Server) studentAnalysis(ctx echo.Context) error {
	var refresh bool
	if q := ctx.QueryParam("refresh"); q != "" {
		var err error
		if refresh, err = strconv.ParseBool(q); err != nil {
			return errBadRequest(err, "invalid refresh param")
		}
	}

	id := ctx.Param("id")
	an, _, err := s.Analyzer.Analyze(ctx.Request().Context(), id, refresh)
	if err != nil {
		if errors.Is(err, pedagogy.ErrStudentNotFound) {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, analysisResponse{StudentID: id, Analysis: an})
}
