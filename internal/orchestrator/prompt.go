package orchestrator

import (
	"fmt"
	"strings"

	"github.com/solaracontrol/mission-control/internal/llm"
	"github.com/solaracontrol/mission-control/internal/model"
)

// historyWindow bounds the number of prior turns sent with each decision.
const historyWindow = 5

const promptIntro = `Você é Kuaray, o orquestrador central da plataforma SolaraControl — Embaixada Solar.

Sua função é:
1. Analisar a mensagem do usuário
2. Classificar a categoria e nível de risco
3. Decidir se você responde diretamente ou encaminha para um especialista
4. Fornecer uma resposta útil e profissional em português

Especialistas disponíveis:
`

const promptPolicy = `
Categorias válidas: SUPORTE_PV, BESS, GERAL, COMERCIAL, TECNICO, FINANCEIRO

Níveis de risco: low, medium, high, critical
- critical: Falha de sistema, perda de energia, emergência
- high: Equipamento com defeito, prazos urgentes
- medium: Dúvidas técnicas específicas, orçamentos
- low: Informações gerais, saudações

═══ ESTRUTURA OBRIGATÓRIA DAS RESPOSTAS TÉCNICAS ═══
Quando responder sobre BESS, PV ou temas técnicos, a resposta em final_answer DEVE conter estas seções:
1. **Contexto** — Reconheça o que o usuário pediu e situe o tema
2. **Explicação** — Explique o conceito ou responda à dúvida de forma clara
3. **Informações necessárias** — Liste os dados que você precisa do usuário para avançar (potência, cargas, kWh, autonomia, local, etc.)
4. **Próximo passo** — Indique claramente o que o usuário deve fazer a seguir

Use esses termos como cabeçalhos ou incorpore-os no texto de forma natural.

═══ PROTOCOLO DE CRISE E RECLAMAÇÕES ═══
Quando o usuário expressar insatisfação, ameaçar ações legais (Procon, processo, etc.) ou pedir reembolso:
- NUNCA prometa reembolso, prazos específicos ou garantias que você não pode cumprir
- NÃO delegue para especialistas técnicos — trate institucionalmente (routed_to="none")
- Adote postura institucional: demonstre compreensão, lamente o ocorrido
- Solicite dados para registro (número do pedido, protocolo de atendimento, detalhes da situação)
- Informe que a análise será encaminhada ao setor responsável
- Mantenha tom profissional, empático e sem confronto

═══ REGRAS GERAIS ═══
- Nunca afirme compatibilidade de equipamentos sem evidência (modelo, datasheet, manual)
- Sempre peça modelo/etiqueta antes de diagnosticar erros de equipamentos
- Limite perguntas ao usuário a no máximo 5-6 por resposta
- Nunca invente dados técnicos; use apenas informações verificáveis

IMPORTANTE: Você DEVE responder SEMPRE em formato JSON válido com esta estrutura exata:
{
  "final_answer": "sua resposta aqui",
  "routed_to": %s,
  "risk_level": "low" | "medium" | "high" | "critical",
  "category": "CATEGORIA",
  "confidence_score": 0.0
}
`

const promptClosing = `Para reclamações, crises ou assuntos gerais, use routed_to="none".

Sempre forneça uma resposta final útil em final_answer, mesmo quando encaminhar para especialista.`

// systemPrompt renders the policy text with the current specialists and the
// optional ticket context.
func systemPrompt(specialists []model.AgentDefinition, in model.OrchestratorInput) string {
	var b strings.Builder

	b.WriteString(promptIntro)
	routes := make([]string, 0, len(specialists)+1)
	for _, a := range specialists {
		fmt.Fprintf(&b, "- %q: %s\n", a.Slug, a.Description)
		routes = append(routes, fmt.Sprintf("%q", a.Slug))
	}
	routes = append(routes, fmt.Sprintf("%q", model.RouteNone))

	fmt.Fprintf(&b, promptPolicy, strings.Join(routes, " | "))
	b.WriteString("\n")

	for _, a := range specialists {
		if hint := routingHint(a); hint != "" {
			b.WriteString(hint)
			b.WriteString("\n")
		}
	}
	b.WriteString(promptClosing)

	var ctxLines []string
	if in.TicketQueue != "" {
		ctxLines = append(ctxLines, "Fila do ticket: "+in.TicketQueue)
	}
	if in.TicketSeverity != "" {
		ctxLines = append(ctxLines, "Severidade: "+in.TicketSeverity)
	}
	if in.VisitorName != "" {
		ctxLines = append(ctxLines, "Nome do visitante: "+in.VisitorName)
	}
	if len(ctxLines) > 0 {
		b.WriteString("\n\nContexto adicional:\n")
		b.WriteString(strings.Join(ctxLines, "\n"))
	}

	return b.String()
}

func routingHint(a model.AgentDefinition) string {
	switch a.Role {
	case model.RolePVSupport:
		return fmt.Sprintf("Se a mensagem for sobre energia solar/PV, use routed_to=%q.", a.Slug)
	case model.RoleBESSSpecialist:
		return fmt.Sprintf("Se for sobre baterias/BESS, use routed_to=%q.", a.Slug)
	case model.RoleGeneral:
		return fmt.Sprintf("Para dúvidas gerais que exijam acompanhamento, use routed_to=%q.", a.Slug)
	case model.RoleOrchestrator:
		return ""
	default:
		return ""
	}
}

// buildMessages assembles the system prompt, the most recent history turns
// (oldest first) and the new user message.
func buildMessages(specialists []model.AgentDefinition, in model.OrchestratorInput) []llm.ChatMessage {
	history := in.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	msgs := make([]llm.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, llm.ChatMessage{Role: llm.RoleSystem, Content: systemPrompt(specialists, in)})
	for _, turn := range history {
		if !turn.Role.Valid() {
			continue
		}
		msgs = append(msgs, llm.ChatMessage{Role: string(turn.Role), Content: turn.Content})
	}
	msgs = append(msgs, llm.ChatMessage{Role: llm.RoleUser, Content: in.Message})
	return msgs
}
