// File: cmd/chat.go
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/llmclient"
	"github.com/xkilldash9x/sage-cli/internal/observability"
	"github.com/xkilldash9x/sage-cli/internal/pipeline"
	"github.com/xkilldash9x/sage-cli/internal/search"
	"github.com/xkilldash9x/sage-cli/internal/store"
	"github.com/xkilldash9x/sage-cli/internal/workflow"
)

type chatOptions struct {
	sessionID    string
	language     string
	deepThinking bool
	webSearch    bool
	stream       bool
}

func newChatCommand() *cobra.Command {
	opts := &chatOptions{}

	chatCmd := &cobra.Command{
		Use:   "chat [query]",
		Short: "Run one query through the analysis pipeline.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), args[0], opts)
		},
	}

	chatCmd.Flags().StringVarP(&opts.sessionID, "session", "s", "", "continue an existing session")
	chatCmd.Flags().StringVarP(&opts.language, "language", "l", "", "response language (中文, 日本語, English)")
	chatCmd.Flags().BoolVar(&opts.deepThinking, "deep-thinking", false, "enable the reflection pass")
	chatCmd.Flags().BoolVar(&opts.webSearch, "web-search", false, "enable web search")
	chatCmd.Flags().BoolVar(&opts.stream, "stream", false, "stream progress and content as they are produced")

	return chatCmd
}

func runChat(ctx context.Context, query string, opts *chatOptions) error {
	logger := observability.GetLogger()

	repo, cleanup, err := newRepository(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	llm, err := llmclient.NewRouterFromConfig(appConfig.LLM, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize llm clients: %w", err)
	}
	defer func() {
		if closeErr := llm.Close(); closeErr != nil {
			logger.Warn("Failed to close llm clients", zap.Error(closeErr))
		}
	}()

	searchClient := search.NewTavilyClient(appConfig.Search, logger)

	stages := workflow.NewStages(llm, searchClient, logger)
	pipe, err := pipeline.New(stages, repo, appConfig.History, logger)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	sessionID := opts.sessionID
	if sessionID == "" {
		sessionID, err = repo.CreateSession(ctx, query, schemas.DomainGeneral, opts.language)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		logger.Info("Created session", zap.String("session_id", sessionID))
	}

	if opts.stream {
		return consumeStream(ctx, pipe.RunStreaming(ctx, query, sessionID, opts.language, opts.deepThinking, opts.webSearch))
	}

	result := pipe.Run(ctx, query, sessionID, opts.language, opts.deepThinking, opts.webSearch)
	fmt.Println(result.Answer)
	if result.Err != "" {
		return fmt.Errorf("pipeline completed with error: %s", result.Err)
	}
	return nil
}

// consumeStream drains the event channel, writing progress to stderr and
// content to stdout so the answer stays pipeable.
func consumeStream(ctx context.Context, events <-chan schemas.StreamEvent) error {
	g, _ := errgroup.WithContext(ctx)

	var failure string
	g.Go(func() error {
		for ev := range events {
			switch ev.Type {
			case schemas.EventStatus:
				fmt.Fprintln(os.Stderr, ev.Content)
			case schemas.EventContent:
				fmt.Print(ev.Content)
			case schemas.EventFinal:
				fmt.Print("\n\n" + ev.Content + "\n")
			case schemas.EventError:
				failure = ev.Content
				fmt.Fprintln(os.Stderr, ev.Content)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if failure != "" {
		return fmt.Errorf("pipeline completed with error: %s", failure)
	}
	return nil
}

// newRepository picks the PostgreSQL store when a database URL is configured
// and an in-process one otherwise.
func newRepository(ctx context.Context, logger *zap.Logger) (schemas.Repository, func(), error) {
	if appConfig.Database.URL == "" {
		logger.Debug("No database configured; conversation state is in-memory only")
		return store.NewMemory(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, appConfig.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	crypto, err := store.NewEncryptor(appConfig.Database.EncryptionKey, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	st, err := store.New(ctx, pool, crypto, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return st, pool.Close, nil
}
