package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/saber-pedagogico/saber/core/access"
	"github.com/saber-pedagogico/saber/core/billing"
	"github.com/saber-pedagogico/saber/core/plan"
	paymentsvc "github.com/saber-pedagogico/saber/services/payment"
)

var errPaymentsUnavailable = echo.NewHTTPError(http.StatusServiceUnavailable, "payments are not available")

func registerBillingAPI(g *echo.Group, auth echo.MiddlewareFunc, s *Server) {
	pricing := requireFeature(s.Policy, access.FeaturePricing)
	g.GET("/plans", s.listPlans, auth, pricing)
	g.POST("/billing/checkout", s.checkout, auth, pricing)
}

type planItem struct {
	plan.Plan
	Current bool `json:"current"`
}

func (s *Server) listPlans(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	plans := plan.All()
	items := make([]planItem, 0, len(plans))
	for _, p := range plans {
		items = append(items, planItem{Plan: p, Current: p.ID == usr.Role})
	}
	return ctx.JSON(http.StatusOK, items)
}

func (s *Server) checkout(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var req checkoutRequest
	if err = bindAndValidate(ctx, &req, s.Validate); err != nil {
		return err
	}

	url, err := s.Billing.Checkout(ctx.Request().Context(), usr, req.Plan)
	switch {
	case errors.Is(err, billing.ErrUnknownPlan):
		return fieldError("plan", err.Error())
	case errors.Is(err, paymentsvc.ErrNotConfigured):
		return errPaymentsUnavailable
	case err != nil:
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"url": url})
}

// mercadoPagoWebhook is called by the payment provider, unauthenticated.
// The topic comes as ?topic= or ?type=, the id as ?id= or ?data.id=.
func (s *Server) mercadoPagoWebhook(ctx echo.Context) error {
	topic := ctx.QueryParam("topic")
	if topic == "" {
		topic = ctx.QueryParam("type")
	}
	id := ctx.QueryParam("id")
	if id == "" {
		id = ctx.QueryParam("data.id")
	}

	if err := s.Billing.HandleNotification(ctx.Request().Context(), topic, id); err != nil {
		s.Logger.Error("handling payment notification", errors.WithMessagef(err, "topic=%s id=%s", topic, id))
		return ctx.JSON(http.StatusInternalServerError, echo.Map{"status": "error"})
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
