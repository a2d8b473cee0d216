package audit

import (
	"regexp"
	"strings"
)

// Structural blocks every technical answer must contain, each detected by
// any of its cue substrings in the lower-cased answer.
var structureBlocks = []struct {
	name string
	cues []string
}{
	{"contexto", []string{
		"contexto", "entend", "compreend", "você mencion", "voce mencion", "sua solicit", "sobre o que",
		"quanto ao", "a respeito", "você pediu", "voce pediu", "você precisa", "voce precisa",
	}},
	{"explicação", []string{
		"explicação", "explicacao", "explica", "significa", "consiste", "funciona", "conceito", "basicamente",
		"resumidamente", "trata-se", "refere-se", "é um", "são", "permite", "possibilita",
	}},
	{"informações", []string{
		"informações", "informacoes", "informação", "informacao", "dados", "preciso saber", "necessário",
		"necessario", "informe", "indique", "forneça", "forneca", "potência", "potencia", "kw", "kwh",
		"consumo", "carga", "autonomia", "local", "demanda", "qual", "quanto",
	}},
	{"próximo passo", []string{
		"próximo passo", "proximo passo", "próximos passos", "proximos passos", "próximo", "proximo",
		"a seguir", "recomend", "sugir", "suger", "entre em contato", "envie", "encaminh", "passo seguinte",
		"etapa seguinte",
	}},
}

var (
	forbiddenPromises   = regexp.MustCompile(`(?i)\b(garanto|com certeza|prazo de \d|em \d+ dias?|reembolso automático|reembolso automatico)\b`)
	essentialBESSData   = regexp.MustCompile(`(?i)\b(cargas?|potência|potencia|kW|autonomia|kWh|consumo|demanda)\b`)
	modelOrEvidence     = regexp.MustCompile(`(?i)\b(modelo|etiqueta|print|manual|datasheet|foto|imagem|número de série|numero de serie)\b`)
	compatibilityClaim  = regexp.MustCompile(`(?i)\b(funciona com|compatível com|compativel com|é compatível|e compativel)\b`)
	errorMeaningClaim   = regexp.MustCompile(`(?i)\b(erro 29 (é|significa|indica)|isso (é|significa))\b`)
	institutionalTokens = regexp.MustCompile(`(?i)\b(dados|protocolo|número do pedido|numero do pedido|atendimento|canal|etapas|próximos passos|proximos passos|próximo passo|proximo passo|análise|analise|registr|compreend|entend|lament|sentimos|desculp|resolv|encaminh|setor responsável|setor responsavel|equipe|suporte|ajudar|ouvidoria|sinto muito|pedido|situação|situacao|caso)\b`)
)

const (
	maxQuestions   = 6
	minAnswerRunes = 50
)

// missingBlocks returns the structural blocks absent from text, in order.
func missingBlocks(text string) []string {
	lower := strings.ToLower(text)
	var missing []string
	for _, block := range structureBlocks {
		found := false
		for _, cue := range block.cues {
			if strings.Contains(lower, cue) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, block.name)
		}
	}
	return missing
}

func countQuestions(text string) int {
	return strings.Count(text, "?")
}

func containsForbiddenPromises(text string) bool {
	return forbiddenPromises.MatchString(text)
}

func requestsEssentialBESSData(text string) bool {
	return essentialBESSData.MatchString(text)
}

func requestsModelOrEvidence(text string) bool {
	return modelOrEvidence.MatchString(text)
}

// avoidsCompatibilityClaim holds when text makes no compatibility claim, or
// makes one while asking for evidence.
func avoidsCompatibilityClaim(text string) bool {
	if !compatibilityClaim.MatchString(text) {
		return true
	}
	return requestsModelOrEvidence(text)
}

func hasInstitutionalPosture(text string) bool {
	return institutionalTokens.MatchString(text)
}
