package school

type Role string

// Roles, lowest tier first. A role is also the subscription plan of its user.
const (
	RoleDocente    Role = "DOCENTE"
	RoleMestre     Role = "MESTRE"
	RoleMestrePlus Role = "MESTRE_PLUS"
	RoleSuperAdm   Role = "SUPER_ADM"
)

var (
	AllRoles = []Role{RoleDocente, RoleMestre, RoleMestrePlus, RoleSuperAdm}

	rolePriorities = map[Role]int{
		RoleDocente:    1,
		RoleMestre:     2,
		RoleMestrePlus: 3,
		RoleSuperAdm:   4,
	}
)

// RolePriority returns the tier of role; 0 for unknown roles.
func RolePriority(role Role) int {
	return rolePriorities[role]
}

func (r Role) Valid() bool {
	return RolePriority(r) > 0
}

// AtLeast reports whether r is a known role whose tier is >= min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && RolePriority(r) >= RolePriority(min)
}

type Severity string

const (
	SeverityLeve  Severity = "LEVE"
	SeverityMedia Severity = "MEDIA"
	SeverityGrave Severity = "GRAVE"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLeve, SeverityMedia, SeverityGrave:
		return true
	}
	return false
}

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

type ClassRoom struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Year    int    `json:"year"`
	Subject string `json:"subject"`
}

type Occurrence struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"` // YYYY-MM-DD
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

type Student struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	ClassID     string       `json:"classId"`
	Grades      []float64    `json:"grades"`
	Attendance  float64      `json:"attendance"` // percentage
	Occurrences []Occurrence `json:"occurrences"`
	PDI         string       `json:"pdi,omitempty"`
	AIAnalysis  string       `json:"aiAnalysis,omitempty"` // raw JSON of the last AI result
}

// Clone returns a copy of s that shares no slices with it.
func (s Student) Clone() Student {
	c := s
	c.Grades = append(make([]float64, 0, len(s.Grades)), s.Grades...)
	c.Occurrences = append(make([]Occurrence, 0, len(s.Occurrences)), s.Occurrences...)
	return c
}

// AppState is the whole application state held by the store.
type AppState struct {
	CurrentUser     *User       `json:"currentUser"`
	Users           []User      `json:"users"`
	Classes         []ClassRoom `json:"classes"`
	Students        []Student   `json:"students"`
	IsAuthenticated bool        `json:"isAuthenticated"`
}

// Clone deep copies the state.
func (st AppState) Clone() AppState {
	c := AppState{
		Users:           append(make([]User, 0, len(st.Users)), st.Users...),
		Classes:         append(make([]ClassRoom, 0, len(st.Classes)), st.Classes...),
		Students:        make([]Student, 0, len(st.Students)),
		IsAuthenticated: st.IsAuthenticated,
	}
	if st.CurrentUser != nil {
		usr := *st.CurrentUser
		c.CurrentUser = &usr
	}
	for _, s := range st.Students {
		c.Students = append(c.Students, s.Clone())
	}
	return c
}

func (st AppState) UserByID(id string) (User, bool) {
	for _, u := range st.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// UserByEmail does an exact, case-sensitive match.
func (st AppState) UserByEmail(email string) (User, bool) {
	for _, u := range st.Users {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}

func (st AppState) Class(id string) (ClassRoom, bool) {
	for _, c := range st.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return ClassRoom{}, false
}

func (st AppState) Student(id string) (Student, bool) {
	for _, s := range st.Students {
		if s.ID == id {
			return s.Clone(), true
		}
	}
	return Student{}, false
}
