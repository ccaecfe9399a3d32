// Package aisvc generates pedagogical content with the Gemini API.
package aisvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/saber-pedagogico/saber/core"
)

// Fallback payloads. They are returned instead of errors so callers always get JSON.
var (
	analysisNoKey = mustJSON(map[string]string{
		"prediction":    "Chave de API não configurada no servidor.",
		"highlights":    "Contate o administrador.",
		"bnccAlignment": "N/A",
		"status":        "REGULAR",
	})
	analysisUnavailable = mustJSON(map[string]string{
		"prediction":    "Serviço de IA indisponível momentaneamente.",
		"highlights":    "Verifique sua conexão.",
		"bnccAlignment": "N/A",
		"status":        "REGULAR",
	})
	lessonPlanNoKey = mustJSON(map[string]interface{}{
		"title":      "Erro API Key",
		"objective":  "N/A",
		"activities": []interface{}{},
	})
	lessonPlanUnavailable = mustJSON(map[string]interface{}{
		"title":      "Erro na geração",
		"objective":  "Não foi possível conectar à IA.",
		"activities": []interface{}{},
	})
)

const DefaultGradeLevel = "Ensino Fundamental II"

type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *rest.Client
	logger  core.Logger
}

func NewGemini(conf core.GeminiConfig, logger core.Logger) *Gemini {
	return &Gemini{
		apiKey:  conf.ApiKey,
		model:   conf.Model,
		baseURL: conf.BaseURL,
		client:  &rest.Client{HTTPClient: &http.Client{Timeout: conf.Timeout}},
		logger:  logger,
	}
}

// GenerateStudentAnalysis returns a JSON object with prediction, highlights,
// bnccAlignment and status (ATENÇÃO, REGULAR or EXCELENTE).
func (g *Gemini) GenerateStudentAnalysis(ctx context.Context, name string, grades []float64, attendance float64, occurrences int) string {
	if g.apiKey == "" {
		return analysisNoKey
	}

	notes := make([]string, 0, len(grades))
	for _, grade := range grades {
		notes = append(notes, formatNumber(grade))
	}
	prompt := fmt.Sprintf(`Você é um especialista pedagógico com domínio da BNCC.
Perfil do aluno:
- Nome: %s
- Notas: %s
- Frequência: %s%%
- Ocorrências disciplinares: %d

Responda somente com um objeto JSON com os campos:
"prediction" (previsão de desempenho), "highlights" (pontos fortes e de atenção),
"bnccAlignment" (competência da BNCC sugerida) e "status" (ATENÇÃO, REGULAR ou EXCELENTE).`,
		name, strings.Join(notes, ", "), formatNumber(attendance), occurrences)

	text, err := g.generate(ctx, prompt)
	if err != nil {
		g.logger.Error("gemini student analysis", err)
		return analysisUnavailable
	}
	return text
}

// GenerateLessonPlan returns a JSON lesson plan following the BNCC.
func (g *Gemini) GenerateLessonPlan(ctx context.Context, subject, topic, gradeLevel string) string {
	if g.apiKey == "" {
		return lessonPlanNoKey
	}
	if gradeLevel == "" {
		gradeLevel = DefaultGradeLevel
	}

	prompt := fmt.Sprintf(`Monte um plano de aula de %s sobre "%s" para o nível %s,
alinhado à BNCC e baseado em metodologias ativas.
Responda somente com um objeto JSON com os campos:
"title", "duration", "bnccCode", "objective", "methodology",
"activities" (lista de {"time", "description"}) e "assessment".`, subject, topic, gradeLevel)

	text, err := g.generate(ctx, prompt)
	if err != nil {
		g.logger.Error("gemini lesson plan", err)
		return lessonPlanUnavailable
	}
	return text
}

type (
	part struct {
		Text string `json:"text"`
	}
	content struct {
		Parts []part `json:"parts"`
	}
	generateRequest struct {
		Contents         []content `json:"contents"`
		GenerationConfig struct {
			ResponseMimeType string `json:"responseMimeType"`
		} `json:"generationConfig"`
	}
	generateResponse struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
	}
)

// generate returns the text of the first candidate, "{}" when there is none.
func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	var payload generateRequest
	payload.Contents = []content{{Parts: []part{{Text: prompt}}}}
	payload.GenerationConfig.ResponseMimeType = "application/json"
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "encoding request")
	}

	res, err := g.client.SendWithContext(ctx, rest.Request{
		Method:      rest.Post,
		BaseURL:     fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model),
		Headers:     map[string]string{"Content-Type": "application/json"},
		QueryParams: map[string]string{"key": g.apiKey},
		Body:        body,
	})
	if err != nil {
		return "", errors.Wrap(err, "calling gemini")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return "", errors.Errorf("gemini status: %d - body: %s", res.StatusCode, res.Body)
	}

	var gr generateResponse
	if err = json.Unmarshal([]byte(res.Body), &gr); err != nil {
		return "", errors.Wrap(err, "decoding response")
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "{}", nil
	}
	text := strings.TrimSpace(gr.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "{}", nil
	}
	return text, nil
}

func formatNumber(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
