// Package billing sells plans and applies the upgrades confirmed by the payment provider.
package billing

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/saber-pedagogico/saber/core"
	"github.com/saber-pedagogico/saber/core/plan"
	"github.com/saber-pedagogico/saber/core/school"
)

const (
	TopicPayment = "payment"

	planUpgradedTemplate = "billing_plan_upgraded"
)

var ErrUnknownPlan = errors.New("plan not for sale")

func init() {
	core.MustRegisterEmailTemplate(planUpgradedTemplate,
		`Olá {{.Name}},

Seu pagamento foi aprovado e sua conta agora está no {{.Plan}}.
Recursos incluídos: {{range $i, $f := .Features}}{{if $i}}, {{end}}{{$f}}{{end}}.

Bom trabalho!`,
		`<p>Olá {{.Name}},</p>
<p>Seu pagamento foi aprovado e sua conta agora está no <strong>{{.Plan}}</strong>.</p>
<ul>{{range .Features}}<li>{{.}}</li>{{end}}</ul>
<p>Bom trabalho!</p>`)
}

// Gateway is the payment provider.
type Gateway interface {
	GetPayment(ctx context.Context, id string) (Payment, error)
	CreatePreference(ctx context.Context, pref Preference) (PreferenceResult, error)
}

// UserStore is where confirmed upgrades land.
type UserStore interface {
	SetUserRole(email string, role school.Role) (school.User, bool)
}

type Service struct {
	gateway   Gateway
	users     UserStore
	mailer    core.EmailService
	logger    core.Logger
	publicURL string
}

func NewService(gateway Gateway, users UserStore, mailer core.EmailService, logger core.Logger, publicURL string) *Service {
	return &Service{
		gateway:   gateway,
		users:     users,
		mailer:    mailer,
		logger:    logger,
		publicURL: publicURL,
	}
}

// Checkout creates a payment for the plan granting role and returns the URL to pay at.
// The payer email is the reference the payment notification is matched with.
func (svc *Service) Checkout(ctx context.Context, usr school.User, role school.Role) (string, error) {
	p, ok := plan.Get(role)
	if !ok {
		return "", ErrUnknownPlan
	}

	back := svc.publicURL + "/financeiro?status="
	res, err := svc.gateway.CreatePreference(ctx, Preference{
		Items: []Item{{
			ID:        string(p.ID),
			Title:     p.Name,
			UnitPrice: p.Price,
			Quantity:  1,
		}},
		Payer:             Payer{Email: usr.Email},
		ExternalReference: usr.Email,
		BackURLs: BackURLs{
			Success: back + "success",
			Failure: back + "failure",
			Pending: back + "pending",
		},
		AutoReturn: StatusApproved,
	})
	if err != nil {
		return "", errors.Wrap(err, "creating checkout")
	}
	if res.InitPoint == "" {
		return "", errors.New("checkout created without a payment URL")
	}
	return res.InitPoint, nil
}

// HandleNotification applies a payment notification. Only approved payments change
// anything: the payer gets the role of the first item paid for. Notifications about
// other topics and payments of unknown payers are ignored.
func (svc *Service) HandleNotification(ctx context.Context, topic, id string) error {
	if topic != TopicPayment || id == "" {
		return nil
	}

	payment, err := svc.gateway.GetPayment(ctx, id)
	if err != nil {
		return errors.Wrap(err, "fetching payment")
	}
	if payment.Status != StatusApproved {
		svc.logger.Info("ignoring payment", map[string]interface{}{"id": id, "status": payment.Status})
		return nil
	}

	email := payment.ExternalReference
	if email == "" {
		svc.logger.Warn("approved payment without reference", map[string]interface{}{"id": id})
		return nil
	}

	role := plan.RoleForItem(payment.FirstItemID())
	usr, ok := svc.users.SetUserRole(email, role)
	if !ok {
		svc.logger.Warn("approved payment for an unknown user", map[string]interface{}{"id": id, "email": email})
		return nil
	}
	svc.logger.Info("plan upgraded", map[string]interface{}{"id": id, "role": role}, usr)

	svc.notifyUpgrade(usr)
	return nil
}

func (svc *Service) notifyUpgrade(usr school.User) {
	if svc.mailer == nil {
		return
	}
	name := string(usr.Role)
	if p, ok := plan.Get(usr.Role); ok {
		name = p.Name
	}
	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Plano atualizado",
		TemplateName: planUpgradedTemplate,
		TemplateData: map[string]interface{}{
			"Name":     usr.Name,
			"Plan":     name,
			"Features": plan.Features(usr.Role),
		},
	})
}
