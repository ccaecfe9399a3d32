package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saber-pedagogico/saber/core/access"
	"github.com/saber-pedagogico/saber/core/school"
	"github.com/saber-pedagogico/saber/core/session"
)

func Test_authApi_login(t *testing.T) {
	app := setup(t)
	path := "/v1/auth/login"

	tests := []httpTest{
		{
			name:     "no data",
			method:   http.MethodPost,
			path:     path,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "this field is required"}),
		},
		{
			name:     "invalid email",
			method:   http.MethodPost,
			path:     path,
			body:     marshalObj(t, loginRequest{Email: "not-an-email"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     path,
			body:     marshalObj(t, loginRequest{Email: "ghost@escola.com"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "no user with this email"}),
		},
		{
			name:     "email match is case sensitive",
			method:   http.MethodPost,
			path:     path,
			body:     marshalObj(t, loginRequest{Email: "Ana@escola.com"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "no user with this email"}),
		},
	}
	app.run(t, tests)

	t.Run("success", func(t *testing.T) {
		rec := app.do(http.MethodPost, path, "", marshalObj(t, loginRequest{Email: "  " + anaEmail + " "}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var sess sessionResponse
		unmarshalBody(t, rec, &sess)
		assert.Equal(t, "2", sess.User.ID)
		assert.Equal(t, school.RoleMestrePlus, sess.User.Role)

		claims, err := sessionCodec().VerifyToken(sess.Token)
		require.NoError(t, err)
		assert.Equal(t, anaEmail, claims.Email)

		st := app.Store.GetState()
		assert.True(t, st.IsAuthenticated)
		assert.Equal(t, anaEmail, st.CurrentUser.Email)
	})
}

func sessionCodec() *session.Codec {
	return session.NewCodec(testSecret, testIssuer, session.DefaultTTL)
}

func Test_authApi_register(t *testing.T) {
	app := setup(t)
	path := "/v1/auth/register"

	tests := []httpTest{
		{
			name:     "no data",
			method:   http.MethodPost,
			path:     path,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"name":  "this field is required",
				"email": "this field is required",
			}),
		},
		{
			name:     "invalid role",
			method:   http.MethodPost,
			path:     path,
			body:     marshalObj(t, registerRequest{Name: "Bia", Email: "bia@escola.com", Role: "ALUNO"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name:     "super admin is not for self service",
			method:   http.MethodPost,
			path:     path,
			body:     marshalObj(t, registerRequest{Name: "Bia", Email: "bia@escola.com", Role: school.RoleSuperAdm}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"role": "cannot register as SUPER_ADM"}),
		},
		{
			name:     "duplicate email",
			method:   http.MethodPost,
			path:     path,
			body:     marshalObj(t, registerRequest{Name: "Ana 2", Email: anaEmail, Role: school.RoleDocente}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
	}
	app.run(t, tests)
	assert.Len(t, app.Store.GetState().Users, 3, "failed registrations must not add users")

	t.Run("success defaults to DOCENTE", func(t *testing.T) {
		rec := app.do(http.MethodPost, path, "", marshalObj(t, map[string]string{"name": "Bia", "email": "bia@escola.com"}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var sess sessionResponse
		unmarshalBody(t, rec, &sess)
		assert.NotEmpty(t, sess.User.ID)
		assert.Equal(t, school.RoleDocente, sess.User.Role)
		assert.NotEmpty(t, sess.Token)

		st := app.Store.GetState()
		assert.Len(t, st.Users, 4)
		assert.Equal(t, "bia@escola.com", st.CurrentUser.Email)
	})
}

func Test_authApi_me(t *testing.T) {
	app := setup(t)
	path := "/v1/auth/me"

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     path,
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name:     "garbage token",
			method:   http.MethodGet,
			path:     path,
			token:    "lol.lol.lol",
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "user not authenticated"}),
		},
	}
	app.run(t, tests)

	t.Run("docente", func(t *testing.T) {
		rec := app.do(http.MethodGet, path, app.token(t, carlosEmail))
		require.Equal(t, http.StatusOK, rec.Code)

		var pr profile
		unmarshalBody(t, rec, &pr)
		assert.Equal(t, carlosEmail, pr.User.Email)
		assert.Equal(t, []access.Feature{access.FeatureDashboard, access.FeatureClasses, access.FeatureStudents, access.FeaturePricing}, pr.Features)
		assert.Len(t, pr.Menu, 4)
		require.NotNil(t, pr.Plan)
		assert.Equal(t, "Plano Docente", pr.Plan.Name)
	})

	t.Run("super admin has no plan", func(t *testing.T) {
		rec := app.do(http.MethodGet, path, app.token(t, adminEmail))
		require.Equal(t, http.StatusOK, rec.Code)

		var pr profile
		unmarshalBody(t, rec, &pr)
		assert.Nil(t, pr.Plan)
		assert.Len(t, pr.Menu, 6)
		assert.Equal(t, "/super-adm", pr.Menu[5].Path)
	})
}

func Test_authApi_updateProfile(t *testing.T) {
	app := setup(t)
	path := "/v1/auth/me"
	token := app.token(t, carlosEmail)

	tests := []httpTest{
		{
			name:     "email taken",
			method:   http.MethodPut,
			path:     path,
			token:    token,
			body:     marshalObj(t, map[string]string{"email": anaEmail}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name:     "invalid avatar",
			method:   http.MethodPut,
			path:     path,
			token:    token,
			body:     marshalObj(t, map[string]string{"avatar": "nope"}),
			wantCode: http.StatusBadRequest,
		},
	}
	app.run(t, tests)

	rec := app.do(http.MethodPut, path, token, marshalObj(t, map[string]string{
		"name":   "Carlos Lima",
		"avatar": "https://img.test/carlos.png",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	st := app.Store.GetState()
	usr, ok := st.UserByID("3")
	require.True(t, ok)
	assert.Equal(t, "Carlos Lima", usr.Name)
	assert.Equal(t, "https://img.test/carlos.png", usr.Avatar)
	assert.Equal(t, carlosEmail, usr.Email)
	assert.Len(t, st.Users, 3)

	t.Run("does not take over the store session", func(t *testing.T) {
		require.True(t, app.Store.Login(anaEmail))
		sessionToken := app.Store.Token()

		rec := app.do(http.MethodPut, path, token, marshalObj(t, map[string]string{"name": "Carlos 2"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		st := app.Store.GetState()
		require.NotNil(t, st.CurrentUser)
		assert.Equal(t, anaEmail, st.CurrentUser.Email)
		assert.Equal(t, sessionToken, app.Store.Token())
	})

	t.Run("keeps a role changed after authentication", func(t *testing.T) {
		_, ok := app.Store.SetUserRole(carlosEmail, school.RoleMestrePlus)
		require.True(t, ok)

		// the token still claims DOCENTE
		rec := app.do(http.MethodPut, path, token, marshalObj(t, map[string]string{"name": "Carlos 3"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var pr profile
		unmarshalBody(t, rec, &pr)
		assert.Equal(t, school.RoleMestrePlus, pr.User.Role)
		usr, _ := app.Store.GetState().UserByID("3")
		assert.Equal(t, school.RoleMestrePlus, usr.Role)
	})
}

func Test_authApi_logout(t *testing.T) {
	app := setup(t)

	require.True(t, app.Store.Login(anaEmail))

	t.Run("someone else's session is kept", func(t *testing.T) {
		token := app.token(t, carlosEmail)
		rec := app.do(http.MethodPost, "/v1/auth/logout", token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, app.Store.GetState().IsAuthenticated)

		rec = app.do(http.MethodGet, "/v1/auth/me", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "the token is revoked")
	})

	t.Run("token from login is revoked", func(t *testing.T) {
		_, token, ok := app.Store.LoginSession(anaEmail)
		require.True(t, ok)
		require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/v1/auth/me", token).Code)

		rec := app.do(http.MethodPost, "/v1/auth/logout", token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, app.Store.GetState().IsAuthenticated)

		rec = app.do(http.MethodGet, "/v1/auth/me", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		_, ok = app.Store.Authenticate(token)
		assert.False(t, ok)

		rec = app.do(http.MethodPost, "/v1/auth/logout", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "logging out twice")
		require.True(t, app.Store.Login(anaEmail))
	})

	t.Run("own session ends", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/auth/logout", app.token(t, anaEmail))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		st := app.Store.GetState()
		assert.False(t, st.IsAuthenticated)
		assert.Nil(t, st.CurrentUser)
		assert.Len(t, st.Users, 3)
	})
}

func Test_authApi_rateLimit(t *testing.T) {
	app := setup(t)
	app.Conf.Server.LoginRateLimit = 0.001
	app.Conf.Server.LoginBurst = 2
	// the limiter is built with the server
	app.Server = NewServer(app.ServerDeps)
	t.Cleanup(func() { _ = app.Server.Close() })

	body := marshalObj(t, loginRequest{Email: anaEmail})
	for i := 0; i < 2; i++ {
		rec := app.do(http.MethodPost, "/v1/auth/login", "", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := app.do(http.MethodPost, "/v1/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, rec.Body.String())

	rec = app.do(http.MethodGet, "/v1/auth/me", app.token(t, anaEmail))
	assert.Equal(t, http.StatusOK, rec.Code, "only login and register are limited")
}
