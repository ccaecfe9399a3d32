package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/saber-pedagogico/saber/core/access"
	"github.com/saber-pedagogico/saber/core/school"
)

func registerAdminAPI(g *echo.Group, auth echo.MiddlewareFunc, s *Server) {
	ag := g.Group("/admin", auth, requireFeature(s.Policy, access.FeatureAdmin))
	ag.GET("/users", s.listUsers)
	ag.PUT("/users/:id/role", s.setUserRole)
}

type adminStats struct {
	Users    int                 `json:"users"`
	Classes  int                 `json:"classes"`
	Students int                 `json:"students"`
	ByRole   map[school.Role]int `json:"byRole"`
}

type usersResponse struct {
	Users []school.User `json:"users"`
	Stats adminStats    `json:"stats"`
}

func (s *Server) listUsers(ctx echo.Context) error {
	st := s.Store.GetState()
	stats := adminStats{
		Users:    len(st.Users),
		Classes:  len(st.Classes),
		Students: len(st.Students),
		ByRole:   make(map[school.Role]int, len(school.AllRoles)),
	}
	for _, usr := range st.Users {
		stats.ByRole[usr.Role]++
	}
	return ctx.JSON(http.StatusOK, usersResponse{Users: st.Users, Stats: stats})
}

func (s *Server) setUserRole(ctx echo.Context) error {
	var req roleRequest
	if err := bindAndValidate(ctx, &req, s.Validate); err != nil {
		return err
	}
	target, ok := s.Store.GetState().UserByID(ctx.Param("id"))
	if !ok {
		return errHttpNotFound
	}
	usr, ok := s.Store.SetUserRole(target.Email, req.Role)
	if !ok {
		return errHttpNotFound
	}
	s.Logger.Info("user role changed", map[string]interface{}{"id": usr.ID, "role": usr.Role})
	return ctx.JSON(http.StatusOK, usr)
}
