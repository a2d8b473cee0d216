package audit

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solaracontrol/mission-control/internal/model"
)

const (
	bessAnswer = "**Contexto** — Você pediu 10 horas de autonomia com bateria. " +
		"**Explicação** — A autonomia depende da carga ligada ao sistema. " +
		"**Informações necessárias** — Informe a potência (kW) das cargas e o consumo diário em kWh. " +
		"**Próximo passo** — Envie esses dados para dimensionarmos o banco de baterias."
	pvAnswer       = "Para analisar o erro 29, preciso do modelo do inversor e de uma foto da etiqueta."
	pvBadAnswer    = "O erro 29 significa sobretensão na rede elétrica."
	crisisAnswer   = "Sentimos muito pelo ocorrido. Por favor, informe o número do pedido; sua situação será encaminhada ao setor responsável."
	evidenceAnswer = "Para confirmar, envie o modelo exato e o datasheet do inversor XYZ-5000."
	structAnswer   = "Para montar o orçamento BESS, informe o consumo mensal, as cargas críticas e a autonomia desejada."
)

// stubEngine answers each canned input with a fixed decision.
type stubEngine struct {
	mu      sync.Mutex
	answers map[string]model.OrchestratorDecision
	errs    map[string]error
	seen    []string
}

func newStub() *stubEngine {
	return &stubEngine{
		answers: map[string]model.OrchestratorDecision{
			"Quero 10 horas de autonomia com bateria.":      {FinalAnswer: bessAnswer, RoutedTo: "bess_architect"},
			"Meu inversor está com erro 29.":                {FinalAnswer: pvAnswer, RoutedTo: "solara"},
			"Vou abrir processo no Procon, quero reembolso.": {FinalAnswer: crisisAnswer, RoutedTo: "none"},
			"Essa bateria funciona com inversor XYZ-5000?":   {FinalAnswer: evidenceAnswer, RoutedTo: "bess_architect"},
			"Preciso de um orçamento BESS.":                  {FinalAnswer: structAnswer, RoutedTo: "bess_architect"},
		},
		errs: map[string]error{},
	}
}

func (s *stubEngine) decide(_ context.Context, in model.OrchestratorInput) (model.OrchestratorDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, in.ConversationID)
	if err := s.errs[in.Message]; err != nil {
		return model.OrchestratorDecision{}, err
	}
	return s.answers[in.Message], nil
}

func (s *stubEngine) deps() Deps {
	return Deps{Decide: s.decide, ConversationID: "run1"}
}

func TestFullAuditAllPass(t *testing.T) {
	stub := newStub()

	report, err := Run(context.Background(), ModeFull, stub.deps())
	require.NoError(t, err)

	assert.Equal(t, 100, report.Score)
	assert.True(t, report.AllPass)
	require.Len(t, report.Results, 5)

	names := make([]string, len(report.Results))
	for i, r := range report.Results {
		names[i] = r.Name
		assert.True(t, r.Pass, "%s: %s", r.Name, r.Reason)
	}
	assert.Equal(t, []string{"BESS", "PV", "CRISE", "EVIDÊNCIA", "ESTRUTURA"}, names)

	assert.Equal(t, strings.Join([]string{
		"🛡 AUDITORIA INSTITUCIONAL — EMBAIXADA SOLAR",
		"",
		"✔ BESS: PASS",
		"✔ PV: PASS",
		"✔ CRISE: PASS",
		"✔ EVIDÊNCIA: PASS",
		"✔ ESTRUTURA: PASS",
		"",
		"Score: 100/100",
		"✅ Todos os testes passaram.",
	}, "\n"), report.ReportText)

	sort.Strings(stub.seen)
	assert.Equal(t, []string{
		"run1-audit-bess", "run1-audit-crisis", "run1-audit-evidence", "run1-audit-pv", "run1-audit-structure",
	}, stub.seen)
}

func TestFullAuditOneFailureScoresEighty(t *testing.T) {
	stub := newStub()
	stub.answers["Meu inversor está com erro 29."] = model.OrchestratorDecision{FinalAnswer: pvBadAnswer, RoutedTo: "solara"}

	report, err := Run(context.Background(), ModeFull, stub.deps())
	require.NoError(t, err)

	assert.Equal(t, 80, report.Score)
	assert.False(t, report.AllPass)
	assert.Contains(t, report.ReportText, "⚠ 1 teste(s) falharam.")
	assert.Contains(t, report.ReportText, "Score: 80/100")
}

func TestBESSCasePasses(t *testing.T) {
	report, err := Run(context.Background(), ModeBESS, newStub().deps())
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, Result{Name: "BESS", Pass: true}, report.Results[0])
	assert.Equal(t, 100, report.Score)
}

func TestPVCaseFailsWithoutModelRequest(t *testing.T) {
	stub := newStub()
	stub.answers["Meu inversor está com erro 29."] = model.OrchestratorDecision{FinalAnswer: pvBadAnswer}

	report, err := Run(context.Background(), ModePV, stub.deps())
	require.NoError(t, err)

	r := report.Results[0]
	assert.False(t, r.Pass)
	assert.Contains(t, r.Reason, "não solicitou modelo")
	assert.Contains(t, r.Reason, "afirmou significado do erro sem pedir modelo/fonte")
	assert.Equal(t, 0, report.Score)
	assert.Contains(t, report.ReportText, "❌ PV: FAIL — não solicitou modelo/etiqueta/manual do inversor; afirmou significado")
}

func TestCrisisCase(t *testing.T) {
	const input = "Vou abrir processo no Procon, quero reembolso."

	tests := []struct {
		name     string
		decision model.OrchestratorDecision
		pass     bool
		reasons  []string
	}{
		{"institutional", model.OrchestratorDecision{FinalAnswer: crisisAnswer, RoutedTo: "none"}, true, nil},
		{"orchestrator slug", model.OrchestratorDecision{FinalAnswer: crisisAnswer, RoutedTo: "kuaray"}, true, nil},
		{
			"delegated",
			model.OrchestratorDecision{FinalAnswer: crisisAnswer, RoutedTo: "solara"},
			false,
			[]string{"delegou para especialista (solara) em vez de tratar institucionalmente"},
		},
		{
			"promises and no posture",
			model.OrchestratorDecision{FinalAnswer: "Garanto reembolso automático em 5 dias.", RoutedTo: "none"},
			false,
			[]string{"prometeu reembolso automático", "não adotou postura institucional"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStub()
			stub.answers[input] = tt.decision

			report, err := Run(context.Background(), ModeCrisis, stub.deps())
			require.NoError(t, err)

			r := report.Results[0]
			assert.Equal(t, "CRISE", r.Name)
			assert.Equal(t, tt.pass, r.Pass)
			assert.Equal(t, strings.Join(tt.reasons, "; "), r.Reason)
		})
	}
}

func TestEvidenceCaseRejectsUnsupportedCompatibilityClaim(t *testing.T) {
	stub := newStub()
	stub.answers["Essa bateria funciona com inversor XYZ-5000?"] = model.OrchestratorDecision{
		FinalAnswer: "Sim, essa bateria funciona com o XYZ-5000 sem problemas.",
	}

	report, err := Run(context.Background(), ModeEvidence, stub.deps())
	require.NoError(t, err)

	assert.Equal(t, "não pediu modelo/datasheet/manual; afirmou compatibilidade sem evidência", report.Results[0].Reason)
}

func TestStructureCase(t *testing.T) {
	stub := newStub()
	stub.answers["Preciso de um orçamento BESS."] = model.OrchestratorDecision{FinalAnswer: "Qual? Onde? Quando? Quanto? Como? Por quê? Quem?"}

	report, err := Run(context.Background(), ModeStructure, stub.deps())
	require.NoError(t, err)

	assert.Equal(t,
		"excedeu limite de perguntas (7 > 6); resposta muito curta para ser bem formatada",
		report.Results[0].Reason)
}

func TestCaseErrorDoesNotAbortRun(t *testing.T) {
	stub := newStub()
	stub.errs["Quero 10 horas de autonomia com bateria."] = errors.New("provider down")

	report, err := Run(context.Background(), ModeFull, stub.deps())
	require.NoError(t, err)

	assert.Equal(t, Result{Name: "BESS", Reason: "erro: provider down"}, report.Results[0])
	assert.Equal(t, 80, report.Score)
	assert.Len(t, stub.seen, 5)
}

func TestMissingReasonIsReportedAsUnknown(t *testing.T) {
	report := buildReport(ModePV, []Result{{Name: "PV"}})
	assert.Contains(t, report.ReportText, "❌ PV: FAIL — motivo desconhecido")
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"full", "bess", "pv", "crisis", "evidence", "structure"} {
		m, err := ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, Mode(s), m)
	}

	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeFull, m)

	_, err = ParseMode("chaos")
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = Run(context.Background(), "chaos", newStub().deps())
	assert.ErrorIs(t, err, ErrUnknownMode)
}

type totalEngine struct{}

func (totalEngine) Decide(context.Context, model.OrchestratorInput) model.OrchestratorDecision {
	return model.OrchestratorDecision{FinalAnswer: "ok", RoutedTo: "none"}
}

func TestFromDeciderReportsCancellation(t *testing.T) {
	decide := FromDecider(totalEngine{})

	d, err := decide(context.Background(), model.OrchestratorInput{})
	require.NoError(t, err)
	assert.Equal(t, "ok", d.FinalAnswer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = decide(ctx, model.OrchestratorInput{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStructureBlocks(t *testing.T) {
	assert.Empty(t, missingBlocks(bessAnswer))
	assert.Equal(t, []string{"contexto", "explicação", "informações", "próximo passo"}, missingBlocks("Olá!"))
}
