package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saber-pedagogico/saber/core/school"
)

func Test_adminApi(t *testing.T) {
	app := setup(t)
	adminToken := app.token(t, adminEmail)
	carlosToken := app.token(t, carlosEmail)

	tests := []httpTest{
		{
			name:     "MESTRE_PLUS is not admin",
			method:   http.MethodGet,
			path:     "/v1/admin/users",
			token:    app.token(t, anaEmail),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "invalid role",
			method:   http.MethodPut,
			path:     "/v1/admin/users/3/role",
			token:    adminToken,
			body:     []byte(`{"role":"ROOT"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name:     "unknown user",
			method:   http.MethodPut,
			path:     "/v1/admin/users/404/role",
			token:    adminToken,
			body:     []byte(`{"role":"MESTRE"}`),
			wantCode: http.StatusNotFound,
		},
	}
	app.run(t, tests)

	t.Run("list", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/admin/users", adminToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp usersResponse
		unmarshalBody(t, rec, &resp)
		assert.Len(t, resp.Users, 3)
		assert.Equal(t, 3, resp.Stats.Users)
		assert.Equal(t, 2, resp.Stats.Classes)
		assert.Equal(t, 3, resp.Stats.Students)
		assert.Equal(t, 1, resp.Stats.ByRole[school.RoleDocente])
	})

	t.Run("set role", func(t *testing.T) {
		rec := app.do(http.MethodPut, "/v1/admin/users/3/role", adminToken, []byte(`{"role":"MESTRE"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		usr, _ := app.Store.GetState().UserByID("3")
		assert.Equal(t, school.RoleMestre, usr.Role)

		// the new role applies to existing tokens of the user
		rec = app.do(http.MethodGet, "/v1/reports/students", carlosToken)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("admin email keeps admin access whatever the role", func(t *testing.T) {
		_, ok := app.Store.SetUserRole(adminEmail, school.RoleDocente)
		require.True(t, ok)

		token := app.token(t, adminEmail)
		rec := app.do(http.MethodGet, "/v1/admin/users", token)
		assert.Equal(t, http.StatusOK, rec.Code)
		rec = app.do(http.MethodGet, "/v1/students/s1/analysis", token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
