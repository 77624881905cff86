// Package server assembles the agent runtime: store, vector indexes,
// tool catalog, reasoning loop, and the HTTP surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/philippgille/chromem-go"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/strandlabs/strand/plugin/mcptools"
	"github.com/strandlabs/strand/plugin/memobank"
	"github.com/strandlabs/strand/plugin/toolindex"
	"github.com/strandlabs/strand/plugin/vectorstore"
	"github.com/strandlabs/strand/server/a2a"
	"github.com/strandlabs/strand/server/agent"
	"github.com/strandlabs/strand/server/llm"
	"github.com/strandlabs/strand/server/profile"
	apiv1 "github.com/strandlabs/strand/server/router/api/v1"
	"github.com/strandlabs/strand/store"
	"github.com/strandlabs/strand/store/db/mysql"
	"github.com/strandlabs/strand/store/db/postgres"
	"github.com/strandlabs/strand/store/db/sqlite"
)

// Server owns every long-lived component of the process.
type Server struct {
	Profile *profile.Profile

	httpServer *http.Server
	store      *store.Store
	mcp        *mcptools.Manager
	service    *agent.Service
}

// New builds a fully wired server from a validated profile. Startup is
// all-or-nothing: a component that cannot initialize fails the process
// rather than limping along without it.
func New(ctx context.Context, p *profile.Profile) (*Server, error) {
	setupLogger(p.LogLevel)

	if err := os.MkdirAll(p.Data, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data directory")
	}

	driver, err := newDriver(p)
	if err != nil {
		return nil, err
	}
	st, err := store.New(ctx, driver)
	if err != nil {
		return nil, errors.Wrap(err, "initialize conversation store")
	}

	model := llm.NewOpenAIClient(p.ModelBaseURL, p.ModelAPIKey, p.Model)
	embedFn := newEmbeddingFunc(p)

	var memory agent.MemoryStore
	if p.MemoryEnabled {
		memVS, err := vectorstore.New(p.Data, embedFn)
		if err != nil {
			return nil, errors.Wrap(err, "open memory vector store")
		}
		memory = memobank.New(memVS)
	}

	registry := agent.NewRegistry()
	if err := agent.RegisterBuiltins(registry); err != nil {
		return nil, errors.Wrap(err, "register builtin tools")
	}

	mcp := mcptools.NewManager()
	if p.MCPServers != "" {
		configs, err := mcptools.ParseServers(p.MCPServers)
		if err != nil {
			return nil, errors.Wrap(err, "parse mcp server configs")
		}
		loaded, err := mcp.Load(ctx, configs)
		if err != nil {
			mcp.Close()
			return nil, errors.Wrap(err, "load mcp servers")
		}
		for _, lt := range loaded {
			if _, err := registry.Register(lt.Tool, lt.Parameters); err != nil {
				mcp.Close()
				return nil, err
			}
		}
	}

	if p.PeerURL != "" {
		peer := a2a.NewClient(p.PeerURL, p.PeerAgentID, 2*time.Minute)
		delegate := a2a.NewDelegateTool(peer, "delegate_to_peer",
			"Delegate a task to a peer agent and return its answer. Use for work outside your own capabilities.")
		if _, err := registry.Register(delegate, a2a.DelegateToolParameters()); err != nil {
			mcp.Close()
			return nil, err
		}
	}

	// The tool index is rebuilt from scratch on every boot, so it lives
	// in memory rather than alongside the persistent memory collections.
	index := toolindex.New(vectorstore.NewInMemory(embedFn), p.ToolSelection, p.ToolTopK)
	if err := index.Build(ctx, toolCatalog(registry)); err != nil {
		mcp.Close()
		return nil, errors.Wrap(err, "build tool index")
	}

	loop := agent.NewLoop(model, registry, index, memory, st, agent.LoopConfig{
		ContextBudget: p.ContextBudget,
		MaxRounds:     p.MaxRounds,
		MemoryEnabled: p.MemoryEnabled,
		MemoryLimit:   p.MemoryLimit,
	})
	service := agent.NewService(loop, st)

	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	apiv1.NewAPIV1Service(service, p).RegisterRoutes(e)

	s := &Server{
		Profile: p,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", p.Addr, p.Port),
			Handler: e,
		},
		store:   st,
		mcp:     mcp,
		service: service,
	}

	slog.Info("server initialized",
		"driver", p.Driver,
		"model", p.Model,
		"tools", len(registry.IDs()),
		"tool_selection", p.ToolSelection,
		"memory", p.MemoryEnabled)
	return s, nil
}

// Start serves HTTP until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases external resources. Safe to call after a failed Start.
func (s *Server) Close() {
	s.mcp.Close()
	if err := s.store.Close(); err != nil {
		slog.Error("close conversation store", "err", err)
	}
}

func newDriver(p *profile.Profile) (store.Driver, error) {
	switch p.Driver {
	case "sqlite":
		dsn := p.DSN
		if dsn == "" {
			dsn = filepath.Join(p.Data, "strand.db")
		}
		return sqlite.New(dsn)
	case "mysql":
		return mysql.New(p.DSN)
	case "postgres":
		return postgres.New(p.DSN)
	default:
		return nil, errors.Errorf("unknown driver %q", p.Driver)
	}
}

// newEmbeddingFunc picks the embedding backend: a dedicated Ollama
// endpoint when configured, otherwise the chat provider's
// OpenAI-compatible embeddings API.
func newEmbeddingFunc(p *profile.Profile) chromem.EmbeddingFunc {
	if p.EmbedBaseURL != "" {
		return chromem.NewEmbeddingFuncOllama(p.EmbedModel, p.EmbedBaseURL)
	}
	normalized := true
	return chromem.NewEmbeddingFuncOpenAICompat(p.ModelBaseURL, p.ModelAPIKey, p.EmbedModel, &normalized)
}

func toolCatalog(r *agent.Registry) []toolindex.Tool {
	var catalog []toolindex.Tool
	for _, d := range r.All() {
		catalog = append(catalog, toolindex.Tool{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
		})
	}
	return catalog
}

func setupLogger(level string) {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
