// Package access maps roles to the features they may use.
package access

import "github.com/saber-pedagogico/saber/core/school"

type Feature string

const (
	FeatureDashboard Feature = "dashboard"
	FeatureClasses   Feature = "classes"
	FeatureStudents  Feature = "students"
	FeatureReports   Feature = "reports"
	FeaturePricing   Feature = "pricing"
	FeatureAI        Feature = "ai"
	FeatureAdmin     Feature = "admin"
)

var (
	AllFeatures = []Feature{
		FeatureDashboard, FeatureClasses, FeatureStudents, FeatureReports, FeaturePricing, FeatureAI, FeatureAdmin,
	}

	// lowest role granted each feature; higher tiers inherit it
	minRoles = map[Feature]school.Role{
		FeatureDashboard: school.RoleDocente,
		FeatureClasses:   school.RoleDocente,
		FeatureStudents:  school.RoleDocente,
		FeaturePricing:   school.RoleDocente,
		FeatureReports:   school.RoleMestre,
		FeatureAI:        school.RoleMestrePlus,
		FeatureAdmin:     school.RoleSuperAdm,
	}
)

// CheckAccess reports whether role may use feature. Unknown roles and features are denied.
func CheckAccess(role school.Role, feature Feature) bool {
	min, ok := minRoles[feature]
	if !ok {
		return false
	}
	return role.AtLeast(min)
}

// Features lists every feature role may use.
func Features(role school.Role) []Feature {
	var feats []Feature
	for _, f := range AllFeatures {
		if CheckAccess(role, f) {
			feats = append(feats, f)
		}
	}
	return feats
}

// Policy is CheckAccess plus the configured admin email exception:
// users whose email is listed in AdminEmails always get the admin feature.
type Policy struct {
	adminEmails map[string]struct{}
}

func NewPolicy(adminEmails ...string) *Policy {
	p := &Policy{adminEmails: make(map[string]struct{}, len(adminEmails))}
	for _, email := range adminEmails {
		p.adminEmails[email] = struct{}{}
	}
	return p
}

// IsAdminEmail does an exact match against the configured admin emails.
func (p *Policy) IsAdminEmail(email string) bool {
	if p == nil || email == "" {
		return false
	}
	_, ok := p.adminEmails[email]
	return ok
}

// Allows reports whether usr may use feature.
func (p *Policy) Allows(usr school.User, feature Feature) bool {
	if feature == FeatureAdmin && p.IsAdminEmail(usr.Email) {
		return true
	}
	return CheckAccess(usr.Role, feature)
}

type MenuItem struct {
	Path    string  `json:"path"`
	Label   string  `json:"label"`
	Feature Feature `json:"feature"`
}

var menu = []MenuItem{
	{Path: "/", Label: "Visão Geral", Feature: FeatureDashboard},
	{Path: "/turmas", Label: "Turmas", Feature: FeatureClasses},
	{Path: "/alunos", Label: "Alunos & Tutoria", Feature: FeatureStudents},
	{Path: "/financeiro", Label: "Perfil & Plano", Feature: FeaturePricing},
	{Path: "/relatorios", Label: "Planejamento BNCC", Feature: FeatureReports},
	{Path: "/super-adm", Label: "Painel Admin", Feature: FeatureAdmin},
}

// Menu returns the navigation entries usr may see. It is recomputed on every call.
func (p *Policy) Menu(usr school.User) []MenuItem {
	items := make([]MenuItem, 0, len(menu))
	for _, item := range menu {
		if p.Allows(usr, item.Feature) {
			items = append(items, item)
		}
	}
	return items
}
