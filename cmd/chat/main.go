package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"growth-companion/cmd"
	"growth-companion/internal/client"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
)

type ChatConfig struct {
	ServerURL   string        `env:"COMPANION_URL" envDefault:"http://localhost:5000"`
	Timeout     time.Duration `env:"COMPANION_TIMEOUT" envDefault:"120s"`
	Style       string        `env:"GLAMOUR_STYLE"`
	Width       int           `env:"COMPANION_WIDTH" envDefault:"80"`
	HistoryFile string        `env:"COMPANION_HISTORY" envDefault:"~/.growth-companion/history"`
}

var (
	bannerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

type repl struct {
	controller *client.Controller
	export     *client.HTMLView
}

// handleCommand returns false when the session should end.
func (r *repl) handleCommand(ctx context.Context, input string) (bool, error) {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/quit", "/q", "/exit":
		return false, nil

	case "/mode", "/m":
		if len(args) == 0 {
			fmt.Println(infoStyle.Render("mode: " + r.controller.Mode().Label()))
			return true, nil
		}
		mode, err := client.ParseMode(args[0])
		if err != nil {
			return true, err
		}
		r.controller.SetMode(mode)
		return true, nil

	case "/brief", "/b":
		if len(args) == 0 {
			return true, errors.New("usage: /brief <topic>")
		}
		fmt.Println(infoStyle.Render("researching, drafting and critiquing a brief..."))
		return true, r.controller.Brief(ctx, strings.Join(args, " "))

	case "/deliberation", "/d":
		on := !r.controller.State().Deliberation()
		if len(args) > 0 {
			switch strings.ToLower(args[0]) {
			case "on":
				on = true
			case "off":
				on = false
			default:
				return true, errors.New("usage: /deliberation [on|off]")
			}
		}
		r.controller.SetDeliberation(on)
		if on {
			fmt.Println(infoStyle.Render("council replies will include each mentor's answer"))
		} else {
			fmt.Println(infoStyle.Render("council replies will show the synthesis only"))
		}
		return true, nil

	case "/health":
		r.controller.CheckHealth(ctx)
		return true, nil

	case "/export":
		if len(args) == 0 {
			return true, errors.New("usage: /export <file.html>")
		}
		f, err := os.Create(args[0])
		if err != nil {
			return true, fmt.Errorf("error creating export file: %w", err)
		}
		defer f.Close()
		if err := r.export.Export(f); err != nil {
			return true, fmt.Errorf("error writing export: %w", err)
		}
		fmt.Println(infoStyle.Render("conversation exported to " + args[0]))
		return true, nil

	case "/help", "/h", "/?", "/":
		printHelp()
		return true, nil
	}

	return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
}

func printHelp() {
	fmt.Println(infoStyle.Render(strings.Join([]string{
		"/mode kb|council   switch between the knowledge base and the marketing council",
		"/brief <topic>     research, plan and critique a strategic brief",
		"/deliberation      toggle each mentor's answer in council replies",
		"/health            check the server",
		"/export <file>     save the conversation as HTML",
		"/quit              leave",
	}, "\n")))
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func main() {
	cmd.LoadEnvFile()

	var cfg ChatConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	term, err := client.NewTermView(os.Stdout, cfg.Width, cfg.Style)
	if err != nil {
		log.Fatalf("error creating terminal view: %v", err)
	}
	export := client.NewHTMLView("GrowthBoss Growth Companion")

	controller := client.NewController(
		client.NewHTTPBackend(cfg.ServerURL, cfg.Timeout),
		client.MultiView{term, export},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(bannerStyle.Render("GrowthBoss Growth Companion"))
	fmt.Println(infoStyle.Render("connected to " + cfg.ServerURL + ", type /help for commands"))

	controller.CheckHealth(ctx)
	controller.Start(ctx)

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile := expandHome(cfg.HistoryFile)
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	defer func() {
		if err := os.MkdirAll(filepath.Dir(historyFile), 0700); err == nil {
			if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
				_, _ = line.WriteHistory(f)
				f.Close()
			}
		}
		line.Close()
	}()

	r := &repl{controller: controller, export: export}

	for {
		input, err := line.Prompt("you> ")
		if err != nil {
			// Ctrl+C or EOF
			fmt.Println()
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			cont, err := r.handleCommand(ctx, input)
			if err != nil {
				fmt.Println(warningStyle.Render(err.Error()))
			}
			if !cont {
				return
			}
			continue
		}

		if err := controller.Send(ctx, input); err != nil {
			slog.Debug("message not sent", "error", err)
		}
	}
}
