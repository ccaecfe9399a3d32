package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/saber-pedagogico/saber/core"
	"github.com/saber-pedagogico/saber/core/access"
	"github.com/saber-pedagogico/saber/core/billing"
	"github.com/saber-pedagogico/saber/core/pedagogy"
	"github.com/saber-pedagogico/saber/core/school"
	"github.com/saber-pedagogico/saber/core/session"
	"github.com/saber-pedagogico/saber/core/store"
	emailsvc "github.com/saber-pedagogico/saber/services/email"
)

const (
	adminEmail   = "erikson.moreira@gmail.com"
	anaEmail     = "ana@escola.com"
	carlosEmail  = "carlos@escola.com"
	testSecret   = "test-secret"
	testIssuer   = "test"
	analysisJSON = `{"prediction":"Vai melhorar","highlights":"Frequência boa","bnccAlignment":"EF09MA01","status":"REGULAR"}`
)

type fakeGenerator struct {
	analysis   string
	lessonPlan string
	calls      int
}

func (g *fakeGenerator) GenerateStudentAnalysis(context.Context, string, []float64, float64, int) string {
	g.calls++
	return g.analysis
}

func (g *fakeGenerator) GenerateLessonPlan(context.Context, string, string, string) string {
	g.calls++
	return g.lessonPlan
}

type fakeGateway struct {
	payments map[string]billing.Payment
	err      error
}

func (g *fakeGateway) GetPayment(_ context.Context, id string) (billing.Payment, error) {
	if g.err != nil {
		return billing.Payment{}, g.err
	}
	return g.payments[id], nil
}

func (g *fakeGateway) CreatePreference(_ context.Context, pref billing.Preference) (billing.PreferenceResult, error) {
	if g.err != nil {
		return billing.PreferenceResult{}, g.err
	}
	return billing.PreferenceResult{ID: "pref-1", InitPoint: "https://mp.test/pay/" + pref.Items[0].ID}, nil
}

type testApp struct {
	*Server
	gen     *fakeGenerator
	gateway *fakeGateway
	mailer  *emailsvc.ConsoleService
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{
		Env:      "TEST",
		TestMode: true,
		AppName:  "Saber Pedagógico",
		Access:   core.AccessConfig{AdminEmails: []string{adminEmail}},
	}
	logger := core.NewNopLogger()

	st := store.New(store.Options{Codec: session.NewCodec(testSecret, testIssuer, session.DefaultTTL)})
	t.Cleanup(func() { _ = st.Close() })

	gen := &fakeGenerator{
		analysis:   analysisJSON,
		lessonPlan: `{"title":"Frações","objective":"Somar frações","activities":[{"time":"10min","description":"Aquecimento"}]}`,
	}
	gw := &fakeGateway{payments: map[string]billing.Payment{}}
	mailer := emailsvc.NewConsoleServiceMock(conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	school.InitValidators(validate, translator)

	srv := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Store:      st,
		Policy:     access.NewPolicy(conf.Access.AdminEmails...),
		Analyzer:   pedagogy.NewAnalyzer(st, gen, logger),
		Billing:    billing.NewService(gw, st, mailer, logger, "https://saber.test"),
		Validate:   validate,
		Translator: translator,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testApp{Server: srv, gen: gen, gateway: gw, mailer: mailer}
}

func (app *testApp) token(t *testing.T, email string) string {
	t.Helper()
	token, ok := app.Store.IssueToken(email)
	if !ok {
		t.Fatalf("IssueToken(%q) failed", email)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func unmarshalBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("json.Unmarshal(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
