package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/postforge/provider"
)

// Agent binds one pipeline stage's persona to the generative provider.
type Agent struct {
	name     string
	system   string
	provider provider.Provider
	logger   *log.Logger
}

// NewResearcher creates the research agent
func NewResearcher(p provider.Provider) *Agent {
	return &Agent{
		name:     "researcher",
		system:   researcherPrompt,
		provider: p,
		logger:   log.New(log.Writer(), "[RESEARCHER-AGENT] ", log.LstdFlags),
	}
}

// NewAnalyst creates the analysis agent
func NewAnalyst(p provider.Provider) *Agent {
	return &Agent{
		name:     "analyst",
		system:   analystPrompt,
		provider: p,
		logger:   log.New(log.Writer(), "[ANALYST-AGENT] ", log.LstdFlags),
	}
}

// NewCreator creates the content creation agent
func NewCreator(p provider.Provider) *Agent {
	return &Agent{
		name:     "creator",
		system:   creatorPrompt,
		provider: p,
		logger:   log.New(log.Writer(), "[CREATOR-AGENT] ", log.LstdFlags),
	}
}

func (a *Agent) Name() string { return a.name }

// Chat sends one user message under the agent's system prompt.
func (a *Agent) Chat(ctx context.Context, message string) (string, error) {
	a.logger.Printf("chat (%d chars)", len(message))
	return a.provider.Chat(ctx, a.system, message)
}

// Stage user-message templates.

func ResearchMessage(topic string) string {
	return fmt.Sprintf("Research this topic deeply: %s", topic)
}

func AnalysisMessage(research string) string {
	return fmt.Sprintf("Verify and structure this raw research data: \n\n%s", research)
}

func CreationMessage(analysis string) string {
	return fmt.Sprintf("Create a LinkedIn post and slide deck from this analysis: \n\n%s", analysis)
}
