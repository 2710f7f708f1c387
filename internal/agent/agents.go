package agent

import (
	"context"
	"fmt"
	"sort"

	"github.com/gtmhq/gtm-advisor/internal/llm"
)

// Agent names accepted in analysis run requests.
const (
	NameMarketIntelligence = "market_intelligence"
	NameCompetitor         = "competitor"
	NamePersona            = "persona"
	NameLeadHunter         = "lead_hunter"
	NameCampaign           = "campaign"
)

var agentBriefs = map[string]string{
	NameMarketIntelligence: "Produce a market intelligence brief: market size, growth drivers, notable trends and risks.",
	NameCompetitor:         "Identify the main competitors and summarize their positioning, pricing posture and weaknesses.",
	NamePersona:            "Draft ideal customer personas: role, goals, pain points and buying triggers.",
	NameLeadHunter:         "Suggest lead sources and qualification criteria matching the ideal customer profile.",
	NameCampaign:           "Draft outreach campaign angles and messaging aligned with the personas and competitive gaps.",
}

// llmAgent is the shared thin strategy: build a prompt from the task and
// context, hand it to the provider, wrap the answer.
type llmAgent struct {
	name      string
	brief     string
	completer llm.Completer
}

func (a *llmAgent) Name() string { return a.name }

func (a *llmAgent) Run(ctx context.Context, task string, input Context) (*Result, error) {
	prompt := a.brief + "\n\nTask: " + task
	for _, key := range sortedKeys(input) {
		prompt += fmt.Sprintf("\n%s: %v", key, input[key])
	}

	summary, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &Result{Agent: a.name, Summary: summary}, nil
}

// NewRegistry builds the standard agent set over one provider client.
func NewRegistry(completer llm.Completer) map[string]Agent {
	registry := make(map[string]Agent, len(agentBriefs))
	for name, brief := range agentBriefs {
		registry[name] = &llmAgent{name: name, brief: brief, completer: completer}
	}
	return registry
}

func sortedKeys(input Context) []string {
	keys := make([]string, 0, len(input))
	for key := range input {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
