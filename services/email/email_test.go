package emailsvc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saber-pedagogico/saber/core"
)

var testConf = &core.Config{
	AppName:          "Saber",
	SendgridApiKey:   "SG.test",
	DefaultFromEmail: mail.Address{Name: "Saber", Address: "noreply@saber.test"},
}

func init() {
	core.MustRegisterEmailTemplate("test_welcome", "Olá {{.Name}}", "<p>Olá {{.Name}}</p>")
}

func TestConsoleService(t *testing.T) {
	out := new(bytes.Buffer)
	svc := NewConsoleService(testConf, out, core.NewNopLogger())
	svc.sync = true

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Ana", Address: "ana@escola.com"}},
			Subject:      "Bem-vinda",
			TemplateName: "test_welcome",
			TemplateData: map[string]string{"Name": "Ana"},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{{Address: "x@escola.com"}}, TemplateName: "missing"},
	)

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Olá Ana", sent[0].TextContent)
	assert.Equal(t, "<p>Olá Ana</p>", sent[0].HTMLContent)

	s := out.String()
	assert.Contains(t, s, "Subject: [Saber] Bem-vinda")
	assert.Contains(t, s, `To: "Ana" <ana@escola.com>`)
	assert.Contains(t, s, "<p>Olá Ana</p>")
}

func TestSendgridService(t *testing.T) {
	var got rest.Request
	svc := NewSendgridService(testConf, core.NewNopLogger())
	svc.api = func(req rest.Request) (*rest.Response, error) {
		got = req
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	err := svc.sendMessage(&core.EmailMessage{
		To:      []mail.Address{{Name: "Ana", Address: "ana@escola.com"}},
		Subject: "Plano atualizado",
		BodyStr: "Seu plano agora é MESTRE.",
	})
	require.NoError(t, err)

	assert.Equal(t, rest.Post, got.Method)
	assert.Equal(t, "https://api.sendgrid.com/v3/mail/send", got.BaseURL)
	assert.Equal(t, "Bearer SG.test", got.Headers["Authorization"])

	var body struct {
		From struct {
			Email string `json:"email"`
		} `json:"from"`
		Personalizations []struct {
			To []struct {
				Email string `json:"email"`
			} `json:"to"`
			Subject string `json:"subject"`
		} `json:"personalizations"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(got.Body, &body))
	assert.Equal(t, "noreply@saber.test", body.From.Email)
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "[Saber] Plano atualizado", body.Personalizations[0].Subject)
	assert.Equal(t, "ana@escola.com", body.Personalizations[0].To[0].Email)
	require.Len(t, body.Content, 1, "no empty html part")
	assert.Equal(t, "Seu plano agora é MESTRE.", body.Content[0].Value)
}

func TestSendgridService_ErrorStatus(t *testing.T) {
	svc := NewSendgridService(testConf, core.NewNopLogger())
	svc.api = func(rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: http.StatusUnauthorized, Body: `{"errors":[]}`}, nil
	}

	err := svc.sendMessage(&core.EmailMessage{To: []mail.Address{{Address: "a@b.c"}}, BodyStr: "x"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "401"))
}
