package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"lazyxplane/internal/config"
	"lazyxplane/internal/crossplane"
	"lazyxplane/internal/ui"
)

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}

func main() {
	var (
		configPath string
		useMock    bool
		server     string
		token      string
		insecure   bool
		namespace  string
		logLevel   string
		logFile    string
	)

	flag.StringVar(&configPath, "config", "", "path to config file (optional)")
	flag.BoolVar(&useMock, "mock", false, "use built-in mock data instead of a cluster")
	flag.StringVar(&server, "server", "", "Kubernetes API server URL (overrides config + LAZYXPLANE_SERVER)")
	flag.StringVar(&token, "token", "", "bearer token (overrides config + LAZYXPLANE_TOKEN)")
	flag.BoolVar(&insecure, "insecure", false, "skip TLS verification (or set LAZYXPLANE_INSECURE=true)")
	flag.StringVar(&namespace, "namespace", "", "fallback namespace for rescoped lookups")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.StringVar(&logFile, "log-file", "", "write logs to this file (default: discard; the TUI owns the terminal)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// CLI and env overrides.
	if s := firstNonEmpty(server, os.Getenv("LAZYXPLANE_SERVER")); s != "" {
		cfg.Cluster.Server = s
	}
	if t := firstNonEmpty(token, os.Getenv("LAZYXPLANE_TOKEN")); t != "" {
		cfg.Cluster.Token = t
	}
	if insecure || strings.EqualFold(os.Getenv("LAZYXPLANE_INSECURE"), "true") {
		cfg.Cluster.InsecureSkipVerify = true
	}
	if namespace != "" {
		cfg.Cluster.DefaultNamespace = namespace
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	setupLogging(cfg.LogLevel, logFile)

	var client crossplane.Client
	if useMock || cfg.Cluster.Server == "" {
		client = crossplane.NewMockClient()
	} else {
		gw := crossplane.NewKubeGateway(cfg.Cluster.Server)
		gw.BearerToken = cfg.Cluster.Token
		gw.Insecure = cfg.Cluster.InsecureSkipVerify
		explorer := crossplane.NewExplorer(gw)
		explorer.Tracer.MaxDepth = cfg.Trace.MaxDepth
		explorer.Tracer.DefaultNamespace = cfg.Cluster.DefaultNamespace
		client = explorer
	}

	m := ui.NewModel(cfg, client)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging routes slog away from the terminal, which belongs to the TUI.
func setupLogging(level, path string) {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}

	var w io.Writer = io.Discard
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "log file:", err)
		} else {
			w = f
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})))
}
