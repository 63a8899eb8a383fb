package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/mohammad-safakhou/postforge/internal/agent"
	"github.com/mohammad-safakhou/postforge/internal/runstate"
	"github.com/mohammad-safakhou/postforge/internal/telemetry"
	"github.com/mohammad-safakhou/postforge/tools/web_fetch"
	"github.com/mohammad-safakhou/postforge/tools/web_search"
)

// maxFallbackResults caps how many search hits the research fallback fetches.
const maxFallbackResults = 10

// Saga drives one run through the three-stage pipeline, persisting a merged
// snapshot after every transition. Stages run strictly sequentially; each
// stage's output is the next stage's input.
type Saga struct {
	store      runstate.Store
	invoker    *Invoker
	researcher *agent.Agent
	analyst    *agent.Agent
	creator    *agent.Agent
	search     *web_search.Tool
	fetcher    web_fetch.WebFetcher
	tele       *telemetry.Telemetry
	logger     *log.Logger
}

func NewSaga(
	store runstate.Store,
	invoker *Invoker,
	researcher, analyst, creator *agent.Agent,
	search *web_search.Tool,
	fetcher web_fetch.WebFetcher,
	tele *telemetry.Telemetry,
) *Saga {
	return &Saga{
		store:      store,
		invoker:    invoker,
		researcher: researcher,
		analyst:    analyst,
		creator:    creator,
		search:     search,
		fetcher:    fetcher,
		tele:       tele,
		logger:     log.New(log.Writer(), "[SAGA] ", log.LstdFlags),
	}
}

// Execute runs the pipeline for one run id. The returned error is for the
// execution host's alerting policy; every failure is also persisted as a
// terminal failed status before returning.
func (s *Saga) Execute(ctx context.Context, runID, topic string) error {
	s.tele.RunStarted()
	if _, err := s.store.Write(ctx, runID, runstate.Patch{Status: runstate.StatusRunning, Topic: topic}); err != nil {
		return fmt.Errorf("persist running: %w", err)
	}

	if err := s.run(ctx, runID, topic); err != nil {
		s.logger.Printf("error: run %s failed: %v", runID, err)
		s.tele.RunFailed()
		if _, perr := s.store.Write(ctx, runID, runstate.Patch{
			Status: runstate.StatusFailed,
			Error:  UserFacingMessage(err),
		}); perr != nil {
			s.logger.Printf("error: run %s: persist failed status: %v", runID, perr)
		}
		return err
	}

	s.tele.RunCompleted()
	return nil
}

func (s *Saga) run(ctx context.Context, runID, topic string) error {
	research, err := s.researchStage(ctx, topic)
	if err != nil {
		return err
	}
	if _, err := s.store.Write(ctx, runID, runstate.Patch{
		Status:   runstate.StatusResearchCompleted,
		Research: research,
	}); err != nil {
		return fmt.Errorf("persist research: %w", err)
	}

	analysis, err := s.invoker.Invoke(ctx, "analysis", func(ctx context.Context) (string, error) {
		return s.analyst.Chat(ctx, agent.AnalysisMessage(research))
	})
	if err != nil {
		return err
	}
	if _, err := s.store.Write(ctx, runID, runstate.Patch{
		Status:   runstate.StatusAnalysisCompleted,
		Analysis: analysis,
	}); err != nil {
		return fmt.Errorf("persist analysis: %w", err)
	}

	finalRaw, err := s.invoker.Invoke(ctx, "creation", func(ctx context.Context) (string, error) {
		return s.creator.Chat(ctx, agent.CreationMessage(analysis))
	})
	if err != nil {
		return err
	}
	final := parseFinal(finalRaw)
	if _, err := s.store.Write(ctx, runID, runstate.Patch{
		Status:   runstate.StatusCompleted,
		Final:    final,
		FinalRaw: finalRaw,
	}); err != nil {
		return fmt.Errorf("persist final: %w", err)
	}
	return nil
}

// researchStage invokes the research agent; when the agent is persistently
// rate limited it synthesizes findings from a direct search plus best-effort
// page fetches instead of failing the run.
func (s *Saga) researchStage(ctx context.Context, topic string) (string, error) {
	research, err := s.invoker.Invoke(ctx, "research", func(ctx context.Context) (string, error) {
		return s.researcher.Chat(ctx, agent.ResearchMessage(topic))
	})
	if err == nil {
		return research, nil
	}

	var inv *InvocationError
	if !errors.As(err, &inv) || !inv.RateLimited {
		return "", err
	}

	s.logger.Printf("warn: research agent rate limited, trying direct search fallback for %q", topic)
	synthesized, fbErr := s.fallbackResearch(ctx, topic)
	if fbErr != nil {
		// report the rate limit, not the fallback's internal error
		s.logger.Printf("error: research fallback failed: %v", fbErr)
		return "", err
	}
	s.tele.FallbackUsed()
	return synthesized, nil
}

func (s *Saga) fallbackResearch(ctx context.Context, topic string) (string, error) {
	result := s.search.Search(ctx, topic, maxFallbackResults)
	if len(result.Findings) == 0 {
		if result.Error != "" {
			return "", fmt.Errorf("fallback search: %s", result.Error)
		}
		return "", fmt.Errorf("fallback search returned no results")
	}

	findings := make([]map[string]interface{}, 0, len(result.Findings))
	for _, f := range result.Findings {
		if f.SourceURL == "" {
			continue
		}
		entry := map[string]interface{}{
			"fact":       f.Fact,
			"context":    f.Context,
			"source_url": f.SourceURL,
		}
		// best effort per URL; a failed fetch does not abort the others
		page := s.fetcher.Exec(ctx, f.SourceURL)
		if page.Error == "" && page.Excerpt != "" {
			entry["excerpt"] = page.Excerpt
			if page.Title != "" {
				entry["title"] = page.Title
			}
		}
		findings = append(findings, entry)
	}

	doc := map[string]interface{}{
		"findings": findings,
		"provider": result.Provider,
		"note":     "synthesized via direct search fallback; research agent was rate limited",
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal fallback findings: %w", err)
	}
	return string(data), nil
}

var (
	fenceOpenRe  = regexp.MustCompile("^```[a-zA-Z0-9]*[ \t]*\n?")
	fenceCloseRe = regexp.MustCompile("```$")
)

// stripCodeFences removes a leading ```lang marker and a trailing ``` from
// content. Content that does not start with a fence is used as-is.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = fenceOpenRe.ReplaceAllString(trimmed, "")
	trimmed = fenceCloseRe.ReplaceAllString(trimmed, "")
	return strings.TrimSpace(trimmed)
}

// parseFinal decodes the creation stage's raw output. Anything that is not a
// JSON object becomes the fallback document carrying the raw text.
func parseFinal(raw string) map[string]interface{} {
	sanitized := stripCodeFences(raw)

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(sanitized), &decoded); err == nil && decoded != nil {
		return decoded
	}
	return map[string]interface{}{
		"post_text": raw,
		"slides":    []interface{}{},
		"warning":   "Creator agent " + fallbackWarningSuffix,
	}
}
