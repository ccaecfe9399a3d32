// Package plan holds the subscription catalog. Each plan grants the role of the same name.
package plan

import "github.com/saber-pedagogico/saber/core/school"

type Plan struct {
	ID       school.Role `json:"id"`
	Name     string      `json:"name"`
	Price    float64     `json:"price"` // BRL per month
	Features []string    `json:"features"`
}

// ordered by tier
var catalog = []Plan{
	{
		ID:       school.RoleDocente,
		Name:     "Plano Docente",
		Price:    29.90,
		Features: []string{"Turmas", "Alunos", "Notas"},
	},
	{
		ID:       school.RoleMestre,
		Name:     "Plano Mestre",
		Price:    59.90,
		Features: []string{"Ocorrências", "Tutorias", "PDI"},
	},
	{
		ID:       school.RoleMestrePlus,
		Name:     "Plano Mestre Plus",
		Price:    89.90,
		Features: []string{"IA Gemini BNCC", "Análise Preditiva"},
	},
}

func clone(p Plan) Plan {
	p.Features = append([]string(nil), p.Features...)
	return p
}

// All returns the purchasable plans, lowest tier first.
func All() []Plan {
	plans := make([]Plan, 0, len(catalog))
	for _, p := range catalog {
		plans = append(plans, clone(p))
	}
	return plans
}

// Get returns the plan sold for role. SUPER_ADM is not for sale.
func Get(role school.Role) (Plan, bool) {
	for _, p := range catalog {
		if p.ID == role {
			return clone(p), true
		}
	}
	return Plan{}, false
}

// Features lists what role gets, including everything from the lower tiers.
func Features(role school.Role) []string {
	var feats []string
	for _, p := range catalog {
		if role.AtLeast(p.ID) {
			feats = append(feats, p.Features...)
		}
	}
	return feats
}

// RoleForItem maps the item id of a paid checkout to the role it grants.
// Unknown items fall back to the entry plan.
func RoleForItem(itemID string) school.Role {
	switch school.Role(itemID) {
	case school.RoleMestre:
		return school.RoleMestre
	case school.RoleMestrePlus:
		return school.RoleMestrePlus
	default:
		return school.RoleDocente
	}
}
