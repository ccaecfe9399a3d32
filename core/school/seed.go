package school

// SeedState returns the built-in demo dataset used when nothing was persisted yet.
// Nobody is logged in.
func SeedState() AppState {
	return AppState{
		Users: []User{
			{ID: "1", Name: "Erikson Moreira", Email: "erikson.moreira@gmail.com", Role: RoleSuperAdm},
			{ID: "2", Name: "Prof. Ana", Email: "ana@escola.com", Role: RoleMestrePlus},
			{ID: "3", Name: "Prof. Carlos", Email: "carlos@escola.com", Role: RoleDocente},
		},
		Classes: []ClassRoom{
			{ID: "c1", Name: "9º Ano A", Year: 2024, Subject: "Matemática"},
			{ID: "c2", Name: "3º Ano B", Year: 2024, Subject: "Física"},
		},
		Students: []Student{
			{ID: "s1", Name: "João Silva", ClassID: "c1", Grades: []float64{5.5, 6.0}, Attendance: 85, Occurrences: []Occurrence{}},
			{ID: "s2", Name: "Maria Souza", ClassID: "c1", Grades: []float64{9.0, 9.5}, Attendance: 98, Occurrences: []Occurrence{}},
			{
				ID: "s3", Name: "Pedro Santos", ClassID: "c2", Grades: []float64{4.0, 3.5}, Attendance: 70,
				Occurrences: []Occurrence{
					{ID: "o1", Date: "2024-03-10", Description: "Uso de celular em prova", Severity: SeverityGrave},
				},
			},
		},
	}
}
