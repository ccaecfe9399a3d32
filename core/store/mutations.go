package store

import (
	"github.com/pkg/errors"

	"github.com/saber-pedagogico/saber/core/school"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrClassNotFound   = errors.New("class not found")
)

// StudentEdit holds the editable fields of a student. Nil Grades keeps the
// current grades.
type StudentEdit struct {
	Name       string
	ClassID    string
	Grades     []float64
	Attendance float64
	PDI        string
}

// Collection mutations. Updates and deletes of an unknown id change nothing and
// return false, but are still persisted and broadcast like any other mutation.

func (s *Store) AddClass(c school.ClassRoom) {
	s.update(func() {
		s.state.Classes = append(s.state.Classes, c)
	})
}

func (s *Store) UpdateClass(c school.ClassRoom) (found bool) {
	s.update(func() {
		for i := range s.state.Classes {
			if s.state.Classes[i].ID == c.ID {
				s.state.Classes[i] = c
				found = true
				return
			}
		}
	})
	return found
}

// DeleteClass removes the class only; its students keep a dangling ClassID.
func (s *Store) DeleteClass(id string) (found bool) {
	s.update(func() {
		for i := range s.state.Classes {
			if s.state.Classes[i].ID == id {
				s.state.Classes = append(s.state.Classes[:i:i], s.state.Classes[i+1:]...)
				found = true
				return
			}
		}
	})
	return found
}

func (s *Store) AddStudent(stu school.Student) {
	stu = stu.Clone()
	s.update(func() {
		s.state.Students = append(s.state.Students, stu)
	})
}

func (s *Store) UpdateStudent(stu school.Student) bool {
	stu = stu.Clone()
	return s.updateStudent(stu.ID, func(cur *school.Student) {
		*cur = stu
	})
}

// EditStudent applies e to the student with this id in one step, so grades,
// occurrences and the cached analysis written meanwhile are kept. The class
// must exist unless it is unchanged.
func (s *Store) EditStudent(id string, e StudentEdit) (school.Student, error) {
	s.mu.Lock()
	var cur *school.Student
	for i := range s.state.Students {
		if s.state.Students[i].ID == id {
			cur = &s.state.Students[i]
			break
		}
	}
	if cur == nil {
		s.mu.Unlock()
		return school.Student{}, ErrStudentNotFound
	}
	if e.ClassID != cur.ClassID {
		if _, ok := s.state.Class(e.ClassID); !ok {
			s.mu.Unlock()
			return school.Student{}, ErrClassNotFound
		}
	}

	cur.Name = e.Name
	cur.ClassID = e.ClassID
	if e.Grades != nil {
		cur.Grades = append([]float64{}, e.Grades...)
	}
	cur.Attendance = e.Attendance
	cur.PDI = e.PDI
	stu := cur.Clone()
	s.commit()
	s.mu.Unlock()
	s.flush()
	return stu, nil
}

func (s *Store) DeleteStudent(id string) (found bool) {
	s.update(func() {
		for i := range s.state.Students {
			if s.state.Students[i].ID == id {
				s.state.Students = append(s.state.Students[:i:i], s.state.Students[i+1:]...)
				found = true
				return
			}
		}
	})
	return found
}

// UpdateGrade appends grade to the student's grades.
func (s *Store) UpdateGrade(studentID string, grade float64) bool {
	return s.updateStudent(studentID, func(cur *school.Student) {
		cur.Grades = append(cur.Grades, grade)
	})
}

func (s *Store) AddOccurrence(studentID string, occ school.Occurrence) bool {
	return s.updateStudent(studentID, func(cur *school.Student) {
		cur.Occurrences = append(cur.Occurrences, occ)
	})
}

// SetStudentAnalysis caches the raw AI analysis of a student, replacing any
// previous one. Concurrent writers race; the last one wins.
func (s *Store) SetStudentAnalysis(studentID, raw string) bool {
	return s.updateStudent(studentID, func(cur *school.Student) {
		cur.AIAnalysis = raw
	})
}

func (s *Store) updateStudent(id string, fn func(cur *school.Student)) (found bool) {
	s.update(func() {
		for i := range s.state.Students {
			if s.state.Students[i].ID == id {
				fn(&s.state.Students[i])
				found = true
				return
			}
		}
	})
	return found
}
