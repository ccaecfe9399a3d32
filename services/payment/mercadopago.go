// Package paymentsvc talks to the Mercado Pago REST API.
package paymentsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/saber-pedagogico/saber/core"
	"github.com/saber-pedagogico/saber/core/billing"
)

// ErrNotConfigured is returned by every call when no access token is set.
var ErrNotConfigured = errors.New("mercado pago access token not configured")

// MercadoPago implements billing.Gateway.
type MercadoPago struct {
	accessToken string
	baseURL     string
	client      *rest.Client
}

var _ billing.Gateway = (*MercadoPago)(nil)

func NewMercadoPago(conf core.MercadoPagoConfig) *MercadoPago {
	return &MercadoPago{
		accessToken: conf.AccessToken,
		baseURL:     conf.BaseURL,
		client:      &rest.Client{HTTPClient: &http.Client{Timeout: conf.Timeout}},
	}
}

func (mp *MercadoPago) GetPayment(ctx context.Context, id string) (billing.Payment, error) {
	var p billing.Payment
	err := mp.call(ctx, rest.Get, "/v1/payments/"+url.PathEscape(id), nil, &p)
	return p, errors.Wrapf(err, "getting payment %s", id)
}

func (mp *MercadoPago) CreatePreference(ctx context.Context, pref billing.Preference) (billing.PreferenceResult, error) {
	var res billing.PreferenceResult
	err := mp.call(ctx, rest.Post, "/checkout/preferences", pref, &res)
	return res, errors.Wrap(err, "creating preference")
}

func (mp *MercadoPago) call(ctx context.Context, method rest.Method, path string, in, out interface{}) error {
	if mp.accessToken == "" {
		return ErrNotConfigured
	}

	req := rest.Request{
		Method:  method,
		BaseURL: mp.baseURL + path,
		Headers: map[string]string{
			"Authorization": "Bearer " + mp.accessToken,
			"Accept":        "application/json",
		},
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json"
	}

	res, err := mp.client.SendWithContext(ctx, req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.New(fmt.Sprintf("mercado pago status: %d - body: %s", res.StatusCode, res.Body))
	}
	if err = json.Unmarshal([]byte(res.Body), out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}
