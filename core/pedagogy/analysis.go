// Package pedagogy derives AI analyses, lesson plans and reports from the school state.
package pedagogy

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/saber-pedagogico/saber/core"
	"github.com/saber-pedagogico/saber/core/school"
)

type Status string

const (
	StatusAtencao   Status = "ATENÇÃO"
	StatusRegular   Status = "REGULAR"
	StatusExcelente Status = "EXCELENTE"
)

var ErrStudentNotFound = errors.New("student not found")

// unparseableAnalysis is shown when the AI answer is not JSON. It is never cached.
var unparseableAnalysis = Analysis{Prediction: "Erro ao processar dados da IA.", Status: StatusRegular}

type Analysis struct {
	Prediction    string `json:"prediction"`
	Highlights    string `json:"highlights"`
	BNCCAlignment string `json:"bnccAlignment"`
	Status        Status `json:"status"`
}

type Activity struct {
	Time        string `json:"time"`
	Description string `json:"description"`
}

type LessonPlan struct {
	Title       string     `json:"title"`
	Duration    string     `json:"duration,omitempty"`
	BNCCCode    string     `json:"bnccCode,omitempty"`
	Objective   string     `json:"objective"`
	Methodology string     `json:"methodology,omitempty"`
	Activities  []Activity `json:"activities"`
	Assessment  string     `json:"assessment,omitempty"`
}

// Generator produces raw JSON answers. Failures come back as fallback JSON, never as errors.
type Generator interface {
	GenerateStudentAnalysis(ctx context.Context, name string, grades []float64, attendance float64, occurrences int) string
	GenerateLessonPlan(ctx context.Context, subject, topic, gradeLevel string) string
}

// StudentStore is the part of the store the Analyzer reads and writes.
type StudentStore interface {
	GetState() school.AppState
	SetStudentAnalysis(studentID, raw string) bool
}

type Analyzer struct {
	store  StudentStore
	gen    Generator
	logger core.Logger
}

func NewAnalyzer(store StudentStore, gen Generator, logger core.Logger) *Analyzer {
	return &Analyzer{store: store, gen: gen, logger: logger}
}

// Analyze returns the cached analysis of a student, generating and caching it when
// there is none or refresh is set. raw is the JSON the analysis was parsed from.
// Answers that are not valid JSON are not cached and yield a generic REGULAR analysis.
func (a *Analyzer) Analyze(ctx context.Context, studentID string, refresh bool) (an Analysis, raw string, err error) {
	stu, ok := a.store.GetState().Student(studentID)
	if !ok {
		return Analysis{}, "", ErrStudentNotFound
	}

	if stu.AIAnalysis != "" && !refresh {
		if err = json.Unmarshal([]byte(stu.AIAnalysis), &an); err == nil {
			return an, stu.AIAnalysis, nil
		}
		a.logger.Warn("cached analysis is not valid JSON, generating a new one", errors.Wrap(err, studentID))
	}

	raw = a.gen.GenerateStudentAnalysis(ctx, stu.Name, stu.Grades, stu.Attendance, len(stu.Occurrences))
	if err = json.Unmarshal([]byte(raw), &an); err != nil {
		a.logger.Warn("AI analysis is not valid JSON", errors.Wrap(err, studentID))
		return unparseableAnalysis, raw, nil
	}

	// last write wins: a concurrent Analyze may overwrite this one
	a.store.SetStudentAnalysis(studentID, raw)
	return an, raw, nil
}

// LessonPlan generates a plan; gradeLevel may be empty.
func (a *Analyzer) LessonPlan(ctx context.Context, subject, topic, gradeLevel string) (LessonPlan, error) {
	raw := a.gen.GenerateLessonPlan(ctx, subject, topic, gradeLevel)
	var plan LessonPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return LessonPlan{}, errors.Wrap(err, "decoding lesson plan")
	}
	if plan.Activities == nil {
		plan.Activities = []Activity{}
	}
	return plan, nil
}
