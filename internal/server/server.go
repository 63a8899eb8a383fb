package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/mohammad-safakhou/postforge/config"
	"github.com/mohammad-safakhou/postforge/internal/agent"
	"github.com/mohammad-safakhou/postforge/internal/pipeline"
	"github.com/mohammad-safakhou/postforge/internal/queue"
	"github.com/mohammad-safakhou/postforge/internal/runstate"
	"github.com/mohammad-safakhou/postforge/internal/telemetry"
	"github.com/mohammad-safakhou/postforge/provider"
	"github.com/mohammad-safakhou/postforge/tools/web_fetch"
	"github.com/mohammad-safakhou/postforge/tools/web_search"
)

// Run wires the full service and blocks serving HTTP until the context is
// cancelled or the listener fails.
func Run(ctx context.Context, cfg *appconfig.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	store, err := runstate.NewStore(cfg.Storage)
	if err != nil {
		return err
	}

	llm, err := provider.NewProvider(provider.Gemini, cfg.LLM)
	if err != nil {
		return err
	}

	searcher, err := web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), cfg.Search.APIKey)
	if err != nil {
		return err
	}
	fetcher, err := web_fetch.NewWebFetcher(web_fetch.HTTPFetcherType, cfg.Fetch.Timeout, cfg.Fetch.MaxChars)
	if err != nil {
		return err
	}

	tele := telemetry.New(prometheus.DefaultRegisterer)
	saga := pipeline.NewSaga(
		store,
		pipeline.NewInvoker(cfg.LLM.MaxAttempts, tele),
		agent.NewResearcher(llm),
		agent.NewAnalyst(llm),
		agent.NewCreator(llm),
		web_search.NewTool(searcher, web_search.NewBudget(cfg.Search.MaxCalls)),
		fetcher,
		tele,
	)

	dispatcher := queue.NewDispatcher(saga, cfg.Server.Workers, 0)
	dispatcher.Start(ctx)

	NewRunsHandler(store, dispatcher).Register(e)

	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
		dispatcher.Wait()
	}()

	if err := e.Start(cfg.Server.Address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
