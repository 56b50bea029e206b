// Package main provides the modelmux CLI entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/modelmux/modelmux"
	"github.com/modelmux/modelmux/chat"
	"github.com/modelmux/modelmux/logging"
	"github.com/modelmux/modelmux/provider"
	"github.com/modelmux/modelmux/provider/anthropic"
	"github.com/modelmux/modelmux/provider/gemini"
	"github.com/modelmux/modelmux/provider/openai"
	"github.com/modelmux/modelmux/store"
	"github.com/spf13/cobra"
)

var (
	providerName string
	modelName    string
	maxTurns     int
	verbose      bool
)

func main() {
	// Load .env if present; a missing file is not an error.
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "modelmux",
		Short: "Provider-agnostic LLM chat with automatic tool calling",
		Long: `modelmux drives tool-calling chat sessions against OpenAI, Anthropic or
Gemini behind one interface: the model's tool calls are executed locally and
fed back until it produces a final answer.`,
	}

	rootCmd.PersistentFlags().StringVarP(&providerName, "provider", "p", "openai", "LLM provider (openai, anthropic, gemini, mock)")
	rootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "", "Model id (provider default if empty)")
	rootCmd.PersistentFlags().IntVar(&maxTurns, "max-turns", 10, "Maximum provider calls per session (0 = unlimited)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(sessionsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func chatCmd() *cobra.Command {
	var (
		sessionID string
		dbPath    string
		stream    bool
	)

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a prompt, executing any tool calls the model makes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := buildClient(ctx)
			if err != nil {
				return err
			}

			conversations, closeStore, err := buildStore(dbPath)
			if err != nil {
				return err
			}
			defer closeStore()

			mux := modelmux.New(client, func(o *modelmux.Options) {
				o.Store = conversations
				o.Logger = buildLogger()
				o.Defaults = chat.Options{Model: modelName, MaxTurns: maxTurns}
			})

			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			if stream {
				return runStreaming(ctx, mux, sessionID, args[0])
			}
			resp, err := mux.Chat(ctx, sessionID, args[0])
			if err != nil {
				return err
			}
			fmt.Println(resp.Message.Content)
			printUsage(resp.Usage)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session id for conversation persistence (random if empty)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite path for durable history (in-memory if empty)")
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream the response incrementally")

	return cmd
}

func sessionsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored conversation sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return fmt.Errorf("sessions requires --db")
			}
			conversations, err := store.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer conversations.Close()

			ids, err := conversations.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite path holding conversation history")

	return cmd
}

func runStreaming(ctx context.Context, mux *modelmux.Mux, sessionID, prompt string) error {
	responses, errCh := mux.ChatStream(ctx, sessionID, prompt)
	var usage *chat.TokenUsage
	for resp := range responses {
		fmt.Print(resp.Message.Content)
		if resp.Usage != nil {
			usage = resp.Usage
		}
	}
	fmt.Println()
	if err := <-errCh; err != nil {
		return err
	}
	printUsage(usage)
	return nil
}

func buildClient(ctx context.Context) (provider.Client, error) {
	switch providerName {
	case "openai":
		return openai.New(func(o *openai.Options) {
			if modelName != "" {
				o.Model = modelName
			}
		}), nil
	case "anthropic":
		return anthropic.New(), nil
	case "gemini":
		return gemini.New(ctx, func(o *gemini.Options) {
			o.APIKey = os.Getenv("GEMINI_API_KEY")
			if modelName != "" {
				o.Model = modelName
			}
		})
	case "mock":
		return provider.NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", providerName)
	}
}

func buildStore(dbPath string) (store.ConversationStore, func(), error) {
	if dbPath == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	s, err := store.OpenSQLite(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}

func buildLogger() logging.Logger {
	if !verbose {
		return logging.NoOpLogger{}
	}
	return logging.New(&logging.Config{Level: slog.LevelDebug, Format: "text", Output: os.Stderr})
}

func printUsage(usage *chat.TokenUsage) {
	if !verbose || usage == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "tokens: prompt=%d completion=%d total=%d\n",
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}
