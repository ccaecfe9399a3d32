package pedagogy

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/saber-pedagogico/saber/core/school"
)

// NoClass names the class of students whose class was deleted.
const NoClass = "N/A"

var csvHeader = []string{"Nome", "Turma", "Frequencia", "Media", "Ocorrencias"}

type StudentRow struct {
	StudentID   string  `json:"studentId"`
	Name        string  `json:"name"`
	ClassName   string  `json:"className"`
	Attendance  float64 `json:"attendance"`
	Average     float64 `json:"average"`
	Occurrences int     `json:"occurrences"`
}

// Average is the mean of grades, 0 without grades.
func Average(grades []float64) float64 {
	if len(grades) == 0 {
		return 0
	}
	var sum float64
	for _, g := range grades {
		sum += g
	}
	return sum / float64(len(grades))
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// StudentRows lists the students of classID, or all students when classID is empty.
func StudentRows(st school.AppState, classID string) []StudentRow {
	rows := make([]StudentRow, 0, len(st.Students))
	for _, stu := range st.Students {
		if classID != "" && stu.ClassID != classID {
			continue
		}
		className := NoClass
		if c, ok := st.Class(stu.ClassID); ok {
			className = c.Name
		}
		rows = append(rows, StudentRow{
			StudentID:   stu.ID,
			Name:        stu.Name,
			ClassName:   className,
			Attendance:  stu.Attendance,
			Average:     Average(stu.Grades),
			Occurrences: len(stu.Occurrences),
		})
	}
	return rows
}

func WriteStudentsCSV(w io.Writer, rows []StudentRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, r := range rows {
		record := []string{
			r.Name,
			r.ClassName,
			strconv.FormatFloat(r.Attendance, 'f', -1, 64) + "%",
			strconv.FormatFloat(round1(r.Average), 'f', 1, 64),
			strconv.Itoa(r.Occurrences),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

type ClassAverage struct {
	ClassID string  `json:"classId"`
	Name    string  `json:"name"`
	Average float64 `json:"media"`
}

// Summary feeds the dashboard.
type Summary struct {
	TotalStudents    int            `json:"totalStudents"`
	TotalClasses     int            `json:"totalClasses"`
	TotalOccurrences int            `json:"totalOccurrences"`
	AverageGrade     float64        `json:"averageGrade"`
	Classes          []ClassAverage `json:"classes"`
}

// Summarize averages every grade, not the student averages. Values are rounded to one decimal.
func Summarize(st school.AppState) Summary {
	sum := Summary{
		TotalStudents: len(st.Students),
		TotalClasses:  len(st.Classes),
		Classes:       make([]ClassAverage, 0, len(st.Classes)),
	}

	var all []float64
	byClass := make(map[string][]float64)
	for _, stu := range st.Students {
		sum.TotalOccurrences += len(stu.Occurrences)
		all = append(all, stu.Grades...)
		byClass[stu.ClassID] = append(byClass[stu.ClassID], stu.Grades...)
	}
	sum.AverageGrade = round1(Average(all))

	for _, c := range st.Classes {
		sum.Classes = append(sum.Classes, ClassAverage{
			ClassID: c.ID,
			Name:    c.Name,
			Average: round1(Average(byClass[c.ID])),
		})
	}
	return sum
}
