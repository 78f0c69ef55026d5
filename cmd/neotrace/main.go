// NeoTrace terminal client: drives the assistant core against a running
// API server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"neotrace/internal/assistant"
	"neotrace/internal/config"
	"neotrace/internal/feedback"
	"neotrace/internal/session"
	"neotrace/internal/store"
	"neotrace/internal/telemetry"
	"neotrace/internal/transport"
)

const serverURLPref = "server_url"

func main() {
	var cfg config.ClientConfig
	flag.StringVar(&cfg.ServerURL, "server-url", "", "NeoTrace API server URL (default: last used, then http://localhost:3001)")
	flag.StringVar(&cfg.DBPath, "db", "neotrace-client.db", "Path to the local preferences database")
	flag.StringVar(&cfg.ToolContext, "context", "", "Tool/page context attached to questions")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.ClientConfig) error {
	logger, err := telemetry.InitLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx := context.Background()
	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx, "neotrace")
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer cleanup()

	prefs, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open preferences: %w", err)
	}
	defer prefs.Close()

	serverURL := cfg.ServerURL
	if serverURL == "" {
		if saved, perr := prefs.Preference(ctx, serverURLPref); perr == nil {
			serverURL = saved
		} else {
			serverURL = "http://localhost:3001"
		}
	}
	if err := prefs.SetPreference(ctx, serverURLPref, serverURL); err != nil {
		logger.Warn("failed to save server url preference", "error", err)
	}

	chat := transport.NewClient(transport.Config{BaseURL: serverURL}, logger, tracer, meter)
	fb := feedback.NewClient(serverURL, 0, logger)
	st := assistant.NewStore(chat, fb, logger, meter)
	st.SetContext(cfg.ToolContext)
	st.Open()

	fmt.Println("=== NeoTrace Assistant ===")
	fmt.Printf("Server: %s\n", serverURL)
	fmt.Println("Type /help for commands, /quit to exit")
	fmt.Println()
	printSuggestions(st)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := handleCommand(ctx, st, input)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				logger.Error("command error", "error", err)
			}
			if quit {
				break
			}
			continue
		}

		printReply(st.SendMessage(ctx, input))
	}

	fmt.Println("Goodbye!")
	return nil
}

func printReply(msg *session.Message) {
	if msg == nil {
		return
	}
	if msg.Degraded {
		fmt.Printf("Bot (offline): %s\n\n", msg.Content)
		return
	}
	fmt.Printf("Bot: %s\n\n", msg.Content)
}

func printSuggestions(st *assistant.Store) {
	sugs := st.Suggestions()
	if len(sugs) == 0 {
		return
	}
	fmt.Println("Quick questions:")
	for i, sug := range sugs {
		fmt.Printf("  %d. %s\n", i+1, sug.Label)
	}
	fmt.Println("Pick one with /ask <number>, or just type your own.")
	fmt.Println()
}

func handleCommand(ctx context.Context, st *assistant.Store, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/clear":
		st.ClearHistory()
		fmt.Println("History cleared.")
		printSuggestions(st)
		return false, nil

	case "/ask":
		if len(parts) < 2 {
			return false, errors.New("usage: /ask <number>")
		}
		n, err := strconv.Atoi(parts[1])
		sugs := st.Suggestions()
		if err != nil || n < 1 || n > len(sugs) {
			return false, errors.New("no such suggestion")
		}
		printReply(st.SelectSuggestion(ctx, sugs[n-1]))
		return false, nil

	case "/context":
		st.SetContext(strings.TrimSpace(strings.TrimPrefix(cmd, "/context")))
		fmt.Println("Context updated.")
		return false, nil

	case "/feedback":
		if len(parts) < 2 {
			return false, errors.New("usage: /feedback <rating 1-5> [comment]")
		}
		rating, err := strconv.Atoi(parts[1])
		if err != nil {
			return false, errors.New("usage: /feedback <rating 1-5> [comment]")
		}
		comment := strings.TrimSpace(strings.TrimPrefix(cmd, "/feedback "+parts[1]))
		if err := st.SubmitFeedback(ctx, rating, comment, "terminal"); err != nil {
			// Feedback is the one flow that surfaces failures directly.
			return false, fmt.Errorf("feedback not sent: %w", err)
		}
		fmt.Println("Feedback sent, thank you!")
		return false, nil

	case "/export":
		if len(parts) < 2 {
			return false, errors.New("usage: /export <file.html>")
		}
		if err := exportTranscript(st, parts[1]); err != nil {
			return false, err
		}
		fmt.Printf("Transcript written to %s\n", parts[1])
		return false, nil

	case "/help":
		fmt.Println("Available commands:")
		fmt.Println("  /quit, /exit          - Exit")
		fmt.Println("  /clear                - Reset the conversation")
		fmt.Println("  /ask <number>         - Send a quick question")
		fmt.Println("  /context <text>       - Attach tool/page context to questions")
		fmt.Println("  /feedback <1-5> [msg] - Rate the assistant")
		fmt.Println("  /export <file.html>   - Write the rendered transcript to a file")
		return false, nil

	default:
		return false, nil
	}
}

func exportTranscript(st *assistant.Store, path string) error {
	var b strings.Builder
	b.WriteString("<!doctype html><meta charset=\"utf-8\"><title>NeoTrace transcript</title><body>")
	for _, msg := range st.Transcript() {
		class := string(msg.Role)
		if msg.Degraded {
			class += " degraded"
		}
		fmt.Fprintf(&b, `<div class="message %s">%s</div>`, class, msg.HTML)
	}
	b.WriteString("</body>")

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}
