package paymentsvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saber-pedagogico/saber/core"
	"github.com/saber-pedagogico/saber/core/billing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *MercadoPago {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMercadoPago(core.MercadoPagoConfig{AccessToken: "TEST-token", BaseURL: srv.URL, Timeout: 2 * time.Second})
}

func TestGetPayment(t *testing.T) {
	mp := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/123", r.URL.Path)
		assert.Equal(t, "Bearer TEST-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{
			"id": 123,
			"status": "approved",
			"external_reference": "carlos@escola.com",
			"additional_info": {"items": [{"id": "MESTRE", "title": "Plano Mestre", "unit_price": "59.9"}]}
		}`)
	})

	p, err := mp.GetPayment(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, int64(123), p.ID)
	assert.Equal(t, billing.StatusApproved, p.Status)
	assert.Equal(t, "carlos@escola.com", p.ExternalReference)
	assert.Equal(t, "MESTRE", p.FirstItemID())
}

func TestGetPayment_Errors(t *testing.T) {
	mp := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	})
	_, err := mp.GetPayment(context.Background(), "999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = NewMercadoPago(core.MercadoPagoConfig{}).GetPayment(context.Background(), "1")
	assert.Equal(t, ErrNotConfigured, errors.Cause(err))

	assert.Equal(t, "", billing.Payment{}.FirstItemID())
}

func TestCreatePreference(t *testing.T) {
	var got billing.Preference
	mp := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"pref-1","init_point":"https://mp.test/checkout?pref=pref-1"}`)
	})

	res, err := mp.CreatePreference(context.Background(), billing.Preference{
		Items:             []billing.Item{{ID: "MESTRE", Title: "Plano Mestre", UnitPrice: 59.90, Quantity: 1}},
		Payer:             billing.Payer{Email: "carlos@escola.com"},
		ExternalReference: "carlos@escola.com",
		AutoReturn:        "approved",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://mp.test/checkout?pref=pref-1", res.InitPoint)
	assert.Equal(t, "MESTRE", got.Items[0].ID)
	assert.Equal(t, 59.90, got.Items[0].UnitPrice)
	assert.Equal(t, "carlos@escola.com", got.Payer.Email)
}
