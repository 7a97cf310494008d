package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/jobpilot/internal/agent"
	"github.com/kalambet/jobpilot/internal/analyzer"
	"github.com/kalambet/jobpilot/internal/api"
	"github.com/kalambet/jobpilot/internal/config"
	"github.com/kalambet/jobpilot/internal/coverletter"
	"github.com/kalambet/jobpilot/internal/engine"
	"github.com/kalambet/jobpilot/internal/ingest"
	"github.com/kalambet/jobpilot/internal/intent"
	"github.com/kalambet/jobpilot/internal/jobs"
	"github.com/kalambet/jobpilot/internal/logger"
	"github.com/kalambet/jobpilot/internal/research"
	"github.com/kalambet/jobpilot/internal/session"
	"github.com/kalambet/jobpilot/internal/storage"
	"github.com/kalambet/jobpilot/internal/supervisor"
)

// httpProviderLimit is the number of postings requested from each job board.
const httpProviderLimit = 50

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the jobpilot server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running jobpilot server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show jobpilot status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "jobpilot.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func engineOptions(cfg config.Config) engine.Options {
	return engine.Options{
		Provider:         cfg.LLM.Provider,
		OllamaBaseURL:    cfg.Ollama.BaseURL,
		OllamaModel:      cfg.Ollama.Model,
		GeminiAPIKey:     cfg.Gemini.APIKey,
		GeminiModel:      cfg.Gemini.Model,
		OpenRouterAPIKey: cfg.OpenRouter.APIKey,
		OpenRouterModel:  cfg.OpenRouter.Model,
	}
}

// buildJobProvider combines every configured job source.
func buildJobProvider(cfg config.JobsConfig) (*jobs.MultiProvider, error) {
	var providers []jobs.NamedProvider
	for _, raw := range cfg.ProviderURLs {
		name := raw
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			name = u.Host
		}
		providers = append(providers, jobs.NewHTTPProvider(name, raw, httpProviderLimit))
	}
	if cfg.CatalogFile != "" {
		catalog, err := jobs.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("loading job catalog: %w", err)
		}
		providers = append(providers, catalog)
	}
	return jobs.NewMultiProvider(providers...), nil
}

// buildSupervisor binds one handler to every routable intent.
func buildSupervisor(cfg config.Config, eng engine.Engine, resumeAgent *agent.ResumeAnalyzer, rec supervisor.Recorder) (*supervisor.Supervisor, error) {
	provider, err := buildJobProvider(cfg.Jobs)
	if err != nil {
		return nil, err
	}
	if len(cfg.Jobs.ProviderURLs) == 0 && cfg.Jobs.CatalogFile == "" {
		printWarning("no job sources configured; set jobs.provider_urls or jobs.catalog_file")
	}

	handlers := map[intent.Kind]agent.Handler{
		intent.JobSearch:      agent.NewJobSearch(provider, cfg.Jobs.TopN),
		intent.ResumeAnalysis: resumeAgent,
		intent.CoverLetter:    agent.NewCoverLetter(coverletter.New(eng)),
		intent.WebResearch:    agent.NewWebResearcher(research.NewWikipedia(cfg.Research.BaseURL)),
	}
	return supervisor.New(intent.NewClassifier(), handlers, supervisor.WithRecorder(rec))
}

func runServer(withMCP bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zl, err := logger.New(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	syncLogs := logger.Install(zl)
	defer syncLogs()

	slog.Info("starting jobpilot", "version", version, "llm_provider", cfg.LLM.Provider)

	// Refuse to start twice on the same port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := engine.New(ctx, engineOptions(cfg))
	if err != nil {
		return fmt.Errorf("creating llm engine: %w", err)
	}
	if err := engine.EnsureReady(ctx, eng, os.Stderr); err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	if n, err := store.RequeueRunningJobs(); err != nil {
		slog.Warn("requeueing interrupted jobs", "error", err)
	} else if n > 0 {
		slog.Info("requeued interrupted jobs", "count", n)
	}

	sessions := session.NewManager(store)
	defer sessions.Shutdown()

	resumeAgent := agent.NewResumeAnalyzer(analyzer.New(eng))
	sup, err := buildSupervisor(cfg, eng, resumeAgent, api.NewHistory(store))
	if err != nil {
		return err
	}

	worker := ingest.NewWorker(store, resumeAgent, sessions, cfg.Worker.PollInterval)
	go worker.Run(ctx)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewHandler(api.AppDeps{Store: store, Sessions: sessions, Router: sup}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Sessions: sessions, Router: sup, Queue: store})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("jobpilot is not running (no PID file): %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("could not find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		removePIDFile(pidPath)
		return fmt.Errorf("could not stop jobpilot (PID %d): %w", pid, err)
	}

	printSuccess("Sent stop signal to jobpilot (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if eng, err := engine.New(checkCtx, engineOptions(cfg)); err != nil {
		printStatus("LLM", "%s (error: %v)", cfg.LLM.Provider, err)
	} else if eng.IsRunning(checkCtx) {
		printStatus("LLM", "%s reachable", eng.Name())
	} else {
		printStatus("LLM", "%s not reachable", eng.Name())
	}

	sources := len(cfg.Jobs.ProviderURLs)
	if cfg.Jobs.CatalogFile != "" {
		sources++
	}
	printStatus("Job sources", "%d", sources)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
