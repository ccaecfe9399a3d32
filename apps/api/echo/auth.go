package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/saber-pedagogico/saber/core/access"
	"github.com/saber-pedagogico/saber/core/plan"
	"github.com/saber-pedagogico/saber/core/school"
	"github.com/saber-pedagogico/saber/core/store"
)

const (
	contextUserKey  = "user"
	contextTokenKey = "token"
)

func getContextUser(ctx echo.Context) (school.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(school.User); ok {
		return usr, nil
	}
	return school.User{}, errUnauthorized
}

func bearerToken(ctx echo.Context) string {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// authMiddleware resolves the bearer token to a known user.
// Tokens of deleted users are rejected even when not expired.
func authMiddleware(st *store.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := bearerToken(ctx)
			usr, ok := st.Authenticate(token)
			if !ok {
				return errUnauthorized
			}
			ctx.Set(contextUserKey, usr)
			ctx.Set(contextTokenKey, token)
			return next(ctx)
		}
	}
}

// requireFeature must run after authMiddleware.
func requireFeature(p *access.Policy, feature access.Feature) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if !p.Allows(usr, feature) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func registerAuthAPI(g *echo.Group, auth, limit echo.MiddlewareFunc, s *Server) {
	ag := g.Group("/auth")
	ag.POST("/login", s.login, limit)
	ag.POST("/register", s.register, limit)
	ag.POST("/logout", s.logout, auth)
	ag.GET("/me", s.me, auth)
	ag.PUT("/me", s.updateProfile, auth)
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  school.User `json:"user"`
}

type profile struct {
	User     school.User       `json:"user"`
	Plan     *plan.Plan        `json:"plan,omitempty"`
	Features []access.Feature  `json:"features"`
	Menu     []access.MenuItem `json:"menu"`
}

func (s *Server) profile(usr school.User) profile {
	pr := profile{
		User:     usr,
		Features: []access.Feature{},
		Menu:     s.Policy.Menu(usr),
	}
	for _, f := range access.AllFeatures {
		if s.Policy.Allows(usr, f) {
			pr.Features = append(pr.Features, f)
		}
	}
	if p, ok := plan.Get(usr.Role); ok {
		pr.Plan = &p
	}
	return pr
}

func (s *Server) login(ctx echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(ctx, &req, s.Validate); err != nil {
		return err
	}

	usr, token, ok := s.Store.LoginSession(req.Email)
	if !ok {
		return errLoginFailed
	}
	return ctx.JSON(http.StatusOK, sessionResponse{Token: token, User: usr})
}

func (s *Server) register(ctx echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(ctx, &req, s.Validate); err != nil {
		return err
	}

	usr, token, ok := s.Store.RegisterSession(req.Name, req.Email, req.Role)
	if !ok {
		return fieldError("email", "a user with this email already exists")
	}
	s.Logger.Info("user registered", usr)
	return ctx.JSON(http.StatusCreated, sessionResponse{Token: token, User: usr})
}

// logout revokes the caller's bearer token. The store session also ends when
// it belongs to the caller.
func (s *Server) logout(ctx echo.Context) error {
	token, _ := ctx.Get(contextTokenKey).(string)
	if token == "" {
		return errUnauthorized
	}
	s.Store.LogoutToken(token)
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s.profile(usr))
}

func (s *Server) updateProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var req profileRequest
	if err = bindAndValidate(ctx, &req, s.Validate); err != nil {
		return err
	}

	usr, err = s.Store.UpdateProfile(usr.ID, req.Name, req.Email, req.Avatar)
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		return fieldError("email", "a user with this email already exists")
	case errors.Is(err, store.ErrUserNotFound):
		return errUnauthorized
	case err != nil:
		return err
	}
	return ctx.JSON(http.StatusOK, s.profile(usr))
}
