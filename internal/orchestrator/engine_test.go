package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solaracontrol/mission-control/internal/agent"
	"github.com/solaracontrol/mission-control/internal/llm"
	"github.com/solaracontrol/mission-control/internal/model"
)

type fakeClient struct {
	content string
	err     error
	reqs    []*llm.CompletionRequest
}

func (f *fakeClient) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content}, nil
}

func (f *fakeClient) Name() string { return "fake" }

func newEngine(client llm.Client) *Engine {
	return NewEngine(client, agent.Default(), Config{}, nil)
}

func TestDecideValidCompletion(t *testing.T) {
	client := &fakeClient{content: `{
		"final_answer": "Contexto: entendi sua dúvida sobre baterias.",
		"routed_to": "bess_architect",
		"risk_level": "medium",
		"category": "BESS",
		"confidence_score": 0.82
	}`}

	d := newEngine(client).Decide(context.Background(), model.OrchestratorInput{
		Message:        "Quero dimensionar baterias",
		ConversationID: "c1",
	})

	assert.Equal(t, "bess_architect", d.RoutedTo)
	assert.Equal(t, model.RiskMedium, d.RiskLevel)
	assert.Equal(t, "BESS", d.Category)
	require.NotNil(t, d.ConfidenceScore)
	assert.InDelta(t, 0.82, *d.ConfidenceScore, 1e-9)
	assert.Equal(t, model.OutcomeOK, d.Outcome)
	assert.False(t, d.Fallback())

	require.Len(t, client.reqs, 1)
	req := client.reqs[0]
	assert.True(t, req.JSONMode)
	assert.Equal(t, defaultModel, req.Model)
	assert.Equal(t, defaultMaxTokens, req.MaxTokens)
}

func TestDecideNormalizesFields(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		routedTo   string
		risk       model.RiskLevel
		category   string
		answer     string
		confidence *float64
		outcome    model.Outcome
	}{
		{
			name:     "unknown route and risk",
			content:  `{"final_answer":"ok","routed_to":"sales_bot","risk_level":"extreme","category":"COMERCIAL"}`,
			routedTo: "none", risk: model.RiskLow, category: "COMERCIAL", answer: "ok", outcome: model.OutcomeOK,
		},
		{
			name:     "orchestrator is not a route",
			content:  `{"final_answer":"ok","routed_to":"kuaray","risk_level":"high"}`,
			routedTo: "none", risk: model.RiskHigh, category: "GERAL", answer: "ok", outcome: model.OutcomeOK,
		},
		{
			name:     "missing answer",
			content:  `{"routed_to":"solara","risk_level":"low","category":"SUPORTE_PV"}`,
			routedTo: "solara", risk: model.RiskLow, category: "SUPORTE_PV", answer: SafeFallbackAnswer, outcome: model.OutcomeMalformed,
		},
		{
			name:     "wrong types",
			content:  `{"final_answer":42,"routed_to":true,"risk_level":1,"category":[],"confidence_score":"0.9"}`,
			routedTo: "none", risk: model.RiskLow, category: "GERAL", answer: SafeFallbackAnswer, outcome: model.OutcomeMalformed,
		},
		{
			name:     "blank answer",
			content:  `{"final_answer":"   ","routed_to":"bess_architect","risk_level":"medium"}`,
			routedTo: "bess_architect", risk: model.RiskMedium, category: "GERAL", answer: SafeFallbackAnswer, outcome: model.OutcomeMalformed,
		},
		{
			name:     "confidence out of range",
			content:  `{"final_answer":"ok","routed_to":"none","risk_level":"low","confidence_score":7}`,
			routedTo: "none", risk: model.RiskLow, category: "GERAL", answer: "ok", outcome: model.OutcomeOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newEngine(&fakeClient{content: tt.content}).Decide(context.Background(), model.OrchestratorInput{Message: "oi"})

			assert.Equal(t, tt.routedTo, d.RoutedTo)
			assert.Equal(t, tt.risk, d.RiskLevel)
			assert.Equal(t, tt.category, d.Category)
			assert.Equal(t, tt.answer, d.FinalAnswer)
			assert.Equal(t, tt.confidence, d.ConfidenceScore)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.Equal(t, tt.outcome != model.OutcomeOK, d.Fallback())
		})
	}
}

func TestDecideFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeClient
		answer  string
		outcome model.Outcome
	}{
		{"empty completion", &fakeClient{content: ""}, SafeFallbackAnswer, model.OutcomeMalformed},
		{"invalid json", &fakeClient{content: "Claro! Aqui está."}, SafeFallbackAnswer, model.OutcomeMalformed},
		{"json null", &fakeClient{content: "null"}, SafeFallbackAnswer, model.OutcomeMalformed},
		{"json array", &fakeClient{content: `["solara"]`}, SafeFallbackAnswer, model.OutcomeMalformed},
		{
			"provider error",
			&fakeClient{err: &llm.ProviderError{Provider: "fake", StatusCode: 500, Err: errors.New("boom")}},
			ProviderFailureAnswer,
			model.OutcomeProviderFailure,
		},
		{"timeout", &fakeClient{err: context.DeadlineExceeded}, ProviderFailureAnswer, model.OutcomeProviderFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newEngine(tt.client).Decide(context.Background(), model.OrchestratorInput{Message: "oi"})

			assert.Equal(t, tt.answer, d.FinalAnswer)
			assert.NotEmpty(t, d.FinalAnswer)
			assert.Equal(t, model.RouteNone, d.RoutedTo)
			assert.Equal(t, model.RiskLow, d.RiskLevel)
			assert.Equal(t, model.DefaultCategory, d.Category)
			assert.Nil(t, d.ConfidenceScore)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.True(t, d.Fallback())
		})
	}
}

func TestDecideTrimsHistoryToMostRecentTurns(t *testing.T) {
	client := &fakeClient{content: `{"final_answer":"ok","routed_to":"none","risk_level":"low"}`}

	var history []model.ConversationTurn
	for i := 0; i < 20; i++ {
		role := model.TurnRoleUser
		if i%2 == 1 {
			role = model.TurnRoleAssistant
		}
		history = append(history, model.ConversationTurn{Role: role, Content: fmt.Sprintf("turn-%d", i)})
	}

	newEngine(client).Decide(context.Background(), model.OrchestratorInput{Message: "nova", History: history})

	require.Len(t, client.reqs, 1)
	msgs := client.reqs[0].Messages
	require.Len(t, msgs, 1+historyWindow+1)

	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	for i := 0; i < historyWindow; i++ {
		assert.Equal(t, fmt.Sprintf("turn-%d", 15+i), msgs[1+i].Content)
	}
	assert.Equal(t, "assistant", msgs[1].Role)
	last := msgs[len(msgs)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.Equal(t, "nova", last.Content)
}

func TestDecideNeverDelegatesCrisis(t *testing.T) {
	client := &fakeClient{content: `{"final_answer":"Lamentamos o ocorrido.","routed_to":"solara","risk_level":"high","category":"FINANCEIRO"}`}

	d := newEngine(client).Decide(context.Background(), model.OrchestratorInput{
		Message: "Vou abrir processo no Procon, quero reembolso.",
	})

	assert.Equal(t, model.RouteNone, d.RoutedTo)
	assert.Equal(t, model.RiskHigh, d.RiskLevel)
	assert.Equal(t, "Lamentamos o ocorrido.", d.FinalAnswer)
}

func TestDecideKeepsRouteForTechnicalProcessing(t *testing.T) {
	client := &fakeClient{content: `{"final_answer":"Vamos verificar o monitoramento.","routed_to":"solara","risk_level":"medium","category":"SUPORTE_PV"}`}

	d := newEngine(client).Decide(context.Background(), model.OrchestratorInput{
		Message: "O inversor demora para processar os dados do painel solar",
	})

	assert.Equal(t, "solara", d.RoutedTo)
	assert.Equal(t, model.OutcomeOK, d.Outcome)
}

func TestDecideOnlyRoutesToActiveSpecialists(t *testing.T) {
	registry, err := agent.NewRegistry([]model.AgentDefinition{
		{Slug: "kuaray", Role: model.RoleOrchestrator, Active: true},
		{Slug: "solara", Role: model.RolePVSupport, Active: false},
		{Slug: "bess_architect", Role: model.RoleBESSSpecialist, Active: true},
	})
	require.NoError(t, err)

	client := &fakeClient{content: `{"final_answer":"ok","routed_to":"solara","risk_level":"low"}`}
	d := NewEngine(client, registry, Config{Model: "gpt-4o-mini", MaxTokens: 512}, nil).
		Decide(context.Background(), model.OrchestratorInput{Message: "inversor"})

	assert.Equal(t, model.RouteNone, d.RoutedTo)
	assert.Equal(t, "gpt-4o-mini", client.reqs[0].Model)
	assert.Equal(t, 512, client.reqs[0].MaxTokens)
	assert.NotContains(t, client.reqs[0].Messages[0].Content, `"solara"`)
}

func TestSystemPromptRendering(t *testing.T) {
	prompt := systemPrompt(agent.Default().ListSpecialists(), model.OrchestratorInput{
		TicketQueue:    "Suporte",
		TicketSeverity: "alta",
		VisitorName:    "Ana",
	})

	assert.Contains(t, prompt, `- "solara": Especialista em energia solar fotovoltaica`)
	assert.Contains(t, prompt, `- "bess_architect": Especialista em Battery Energy Storage Systems (BESS)`)
	assert.Contains(t, prompt, `"routed_to": "solara" | "bess_architect" | "none"`)
	assert.Contains(t, prompt, "ESTRUTURA OBRIGATÓRIA")
	assert.Contains(t, prompt, "PROTOCOLO DE CRISE")
	assert.Contains(t, prompt, `use routed_to="solara"`)
	assert.True(t, strings.HasSuffix(prompt, "\n\nContexto adicional:\nFila do ticket: Suporte\nSeveridade: alta\nNome do visitante: Ana"))

	bare := systemPrompt(nil, model.OrchestratorInput{})
	assert.NotContains(t, bare, "Contexto adicional")
	assert.Contains(t, bare, `"routed_to": "none"`)
}

func TestIsCrisis(t *testing.T) {
	assert.True(t, isCrisis("Vou abrir processo no Procon, quero reembolso."))
	assert.True(t, isCrisis("Quero fazer uma RECLAMAÇÃO"))
	assert.False(t, isCrisis("Qual o processo de instalação do inversor?"))
	assert.False(t, isCrisis("Preciso de um orçamento BESS."))

	assert.True(t, isCrisis("Vou processar vocês se não resolverem"))
	assert.True(t, isCrisis("quero processar a empresa"))
	assert.False(t, isCrisis("O inversor demora para processar os dados do painel solar"))
	assert.False(t, isCrisis("Quanto tempo o sistema leva para processar a leitura?"))
}
