package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/solaracontrol/mission-control/internal/model"
)

// OrchestratorSlug is the slug of the built-in orchestrator.
const OrchestratorSlug = "kuaray"

// DefaultAgents returns the built-in catalog.
func DefaultAgents() []model.AgentDefinition {
	return []model.AgentDefinition{
		{
			Slug:        OrchestratorSlug,
			Name:        "Kuaray",
			Role:        model.RoleOrchestrator,
			Description: "Orquestrador central que analisa intenção e roteia para especialistas",
			Active:      true,
			SystemPrompt: "Você é Kuaray, o orquestrador de atendimento da Embaixada Solar. " +
				"Responda em português, com postura institucional, de forma clara e objetiva. " +
				"Nunca prometa prazos, reembolsos ou garantias. Se faltar informação, peça os dados necessários.",
		},
		{
			Slug:        "solara",
			Name:        "Solara",
			Role:        model.RolePVSupport,
			Description: "Especialista em energia solar fotovoltaica, automações e sistemas de energia renovável",
			Active:      true,
			Keywords: []string{
				"painel solar", "placa solar", "energia solar", "fotovoltaic",
				"inversor", "microgeração", "geração solar",
			},
			SystemPrompt: "Você é Solara, especialista em energia solar fotovoltaica da Embaixada Solar. " +
				"Ajude com dúvidas sobre painéis, inversores, automações e sistemas de energia renovável. " +
				"Antes de diagnosticar qualquer erro, peça o modelo do equipamento, a etiqueta ou o manual. " +
				"Nunca invente dados técnicos e nunca prometa prazos ou garantias.",
		},
		{
			Slug:        "bess_architect",
			Name:        "BESS Architect",
			Role:        model.RoleBESSSpecialist,
			Description: "Especialista em Battery Energy Storage Systems (BESS), dimensionamento e engenharia",
			Active:      true,
			Keywords: []string{
				"bateria", "bess", "armazenamento", "autonomia", "kwh", "backup",
			},
			SystemPrompt: "Você é o BESS Architect, especialista em sistemas de armazenamento de energia em baterias da Embaixada Solar. " +
				"Para qualquer dimensionamento, peça potência (kW), cargas, consumo (kWh), autonomia desejada e local de instalação. " +
				"Não afirme compatibilidade entre equipamentos sem modelo ou datasheet. Nunca invente dados.",
		},
	}
}

// Default returns a registry over the built-in catalog.
func Default() *Registry {
	r, err := NewRegistry(DefaultAgents())
	if err != nil {
		panic(fmt.Sprintf("built-in agent catalog: %v", err))
	}
	return r
}

type catalogFile struct {
	Agents []catalogEntry `yaml:"agents"`
}

type catalogEntry struct {
	Slug         string   `yaml:"slug"`
	Name         string   `yaml:"name"`
	Role         string   `yaml:"role"`
	Description  string   `yaml:"description"`
	Keywords     []string `yaml:"keywords"`
	SystemPrompt string   `yaml:"system_prompt"`
	Model        string   `yaml:"model"`

	// Active defaults to true when omitted.
	Active *bool `yaml:"active"`
}

// ParseCatalog decodes a YAML catalog of the form
//
//	agents:
//	  - slug: solara
//	    role: pv_support
//	    description: ...
//	    keywords: [inversor, painel solar]
func ParseCatalog(data []byte) (*Registry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(f.Agents) == 0 {
		return nil, fmt.Errorf("%w: no agents defined", ErrInvalidCatalog)
	}

	agents := make([]model.AgentDefinition, 0, len(f.Agents))
	for _, e := range f.Agents {
		agents = append(agents, model.AgentDefinition{
			Slug:         e.Slug,
			Name:         e.Name,
			Role:         model.Role(e.Role),
			Description:  e.Description,
			Active:       e.Active == nil || *e.Active,
			Keywords:     e.Keywords,
			SystemPrompt: e.SystemPrompt,
			Model:        e.Model,
		})
	}
	return NewRegistry(agents)
}

// LoadCatalog reads a YAML catalog from path. An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent catalog: %w", err)
	}
	return ParseCatalog(data)
}
