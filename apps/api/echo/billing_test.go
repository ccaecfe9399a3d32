package echoapi

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saber-pedagogico/saber/core/billing"
	"github.com/saber-pedagogico/saber/core/school"
	paymentsvc "github.com/saber-pedagogico/saber/services/payment"
)

func Test_billingApi_plans(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodGet, "/v1/plans", app.token(t, anaEmail))
	require.Equal(t, http.StatusOK, rec.Code)

	var items []planItem
	unmarshalBody(t, rec, &items)
	require.Len(t, items, 3)
	assert.False(t, items[0].Current)
	assert.False(t, items[1].Current)
	assert.True(t, items[2].Current)
	assert.Equal(t, school.RoleMestrePlus, items[2].ID)
	assert.Equal(t, 89.90, items[2].Price)
}

func Test_billingApi_checkout(t *testing.T) {
	app := setup(t)
	token := app.token(t, carlosEmail)
	path := "/v1/billing/checkout"

	tests := []httpTest{
		{
			name:     "no plan",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"plan": "this field is required"}),
		},
		{
			name:     "super admin is not for sale",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     marshalObj(t, checkoutRequest{Plan: school.RoleSuperAdm}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"plan": "plan not for sale"}),
		},
		{
			name:     "ok",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     marshalObj(t, checkoutRequest{Plan: school.RoleMestre}),
			wantCode: http.StatusOK,
			wantData: []byte(`{"url":"https://mp.test/pay/MESTRE"}`),
		},
	}
	app.run(t, tests)

	t.Run("gateway not configured", func(t *testing.T) {
		app.gateway.err = paymentsvc.ErrNotConfigured
		defer func() { app.gateway.err = nil }()

		rec := app.do(http.MethodPost, path, token, marshalObj(t, checkoutRequest{Plan: school.RoleMestre}))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func Test_billingApi_webhook(t *testing.T) {
	app := setup(t)
	ok := []byte(`{"status":"ok"}`)

	approved := billing.Payment{ID: 42, Status: billing.StatusApproved, ExternalReference: carlosEmail}
	approved.AdditionalInfo.Items = []billing.PaymentItem{{ID: "MESTRE_PLUS"}}
	app.gateway.payments["42"] = approved
	app.gateway.payments["43"] = billing.Payment{ID: 43, Status: "pending", ExternalReference: anaEmail}

	tests := []httpTest{
		{
			name:     "other topic",
			method:   http.MethodPost,
			path:     "/api/webhooks/mercadopago?topic=merchant_order&id=1",
			wantCode: http.StatusOK,
			wantData: ok,
		},
		{
			name:     "pending payment",
			method:   http.MethodPost,
			path:     "/api/webhooks/mercadopago?type=payment&data.id=43",
			wantCode: http.StatusOK,
			wantData: ok,
		},
		{
			name:     "approved payment",
			method:   http.MethodPost,
			path:     "/api/webhooks/mercadopago?topic=payment&id=42",
			wantCode: http.StatusOK,
			wantData: ok,
		},
	}
	app.run(t, tests)

	usr, found := app.Store.GetState().UserByEmail(carlosEmail)
	require.True(t, found)
	assert.Equal(t, school.RoleMestrePlus, usr.Role)
	ana, _ := app.Store.GetState().UserByEmail(anaEmail)
	assert.Equal(t, school.RoleMestrePlus, ana.Role, "pending payments change nothing")
	assert.Len(t, app.mailer.Sent(), 1)

	t.Run("gateway failure", func(t *testing.T) {
		app.gateway.err = errors.New("boom")
		defer func() { app.gateway.err = nil }()

		rec := app.do(http.MethodPost, "/api/webhooks/mercadopago?topic=payment&id=42", "")
		checkCodeAndData(t, httpTest{wantCode: http.StatusInternalServerError, wantData: []byte(`{"status":"error"}`)}, rec)
	})
}
