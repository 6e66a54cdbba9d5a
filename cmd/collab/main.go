package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hilthontt/collaby/internal/agent"
	"github.com/hilthontt/collaby/internal/infrastructure/compiler"
	"github.com/hilthontt/collaby/internal/infrastructure/env"
	"github.com/hilthontt/collaby/internal/infrastructure/logging"
	"github.com/hilthontt/collaby/internal/tui"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	server := flag.String("server", env.GetString("COLLABY_SERVER", "ws://localhost:8080/ws"), "registry websocket url")
	api := flag.String("api", env.GetString("COLLABY_API", "http://localhost:8080"), "registry http base url")
	compileURL := flag.String("compiler", env.GetString("COLLABY_COMPILER", "http://localhost:8080/api/compile"), "code execution url")
	logDir := flag.String("log-dir", env.GetString("COLLABY_LOG_DIR", "./logs/"), "directory for the client log")
	highlight := flag.String("highlight", "", "highlight color, e.g. #F59E0B")
	flag.Parse()

	logger, err := logging.NewLogger(&logging.LoggerConfig{
		FilePath: *logDir,
		Encoding: "json",
		Level:    env.GetString("LOGGER_LEVEL", "info"),
		Logger:   env.GetString("LOGGER_LOGGER", "zerolog"),
		Quiet:    true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	wsOpts := agent.DefaultWebSocketOptions()
	wsOpts.Logger = logger
	dialer := agent.NewWebSocketDialer(*server, wsOpts)
	rooms := agent.NewRoomsClient(*api, 10*time.Second)

	bridge := tui.NewBridge()
	defer bridge.Close()

	session := agent.New(dialer, compiler.NewClient(*compileURL, 30*time.Second, logger), logger, bridge.Handlers())

	opts := tui.Options{
		NewRoomID: func(ctx context.Context) string {
			return agent.NewRoomID(ctx, rooms)
		},
	}
	if *highlight != "" {
		opts.Highlight = highlight
	}

	logger.Info(logging.General, logging.Startup, "starting terminal client", map[logging.ExtraKey]any{
		"server": *server,
	})

	model := tui.NewModel(lipgloss.DefaultRenderer(), session, bridge, opts)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Println("Error running program:", err)
		os.Exit(1)
	}

	_ = session.Leave()
}
