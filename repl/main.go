// Command surmiser-repl is an interactive terminal for trying suggestions.
// It attaches a controller to a raw-mode line editor, shows ghost text in
// faint style and writes every accepted suggestion as TOML to stdout.
//
// Usage:
//
//	./surmiser-repl                      # interactive, TOML on screen
//	./surmiser-repl > accepted.toml      # prompt on screen, TOML to file
//	./surmiser-repl --corpus phrases.txt # own corpus
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Paranoid-AF/surmiser"
	"github.com/Paranoid-AF/surmiser/controller"
	"github.com/Paranoid-AF/surmiser/corpus"
	"github.com/Paranoid-AF/surmiser/generate"
	"github.com/Paranoid-AF/surmiser/index"
)

const prompt = "> "

func main() {
	app := &cli.Command{
		Name:  "surmiser-repl",
		Usage: "Type with inline suggestions (Tab or → accepts, Esc dismisses)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file (default: $SURMISER_CONFIG_DIR/config.{toml,yaml,json})",
				Sources: cli.EnvVars("SURMISER_CONFIG"),
			},
			&cli.StringSliceFlag{
				Name:  "corpus",
				Usage: "Phrase file (.txt, .json, .toml, .yaml); repeatable",
			},
			&cli.StringSliceFlag{
				Name:  "endpoint",
				Usage: "Remote suggestion endpoint URL; repeatable",
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Usage: "Quiet period before providers are queried",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug output to stderr",
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelWarn
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(termWriter(os.Stderr), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	for _, w := range surmiser.ValidateConfig(cfg) {
		slog.Warn("config", "warning", w)
	}

	opts := cfg.Options()
	if d := cmd.Duration("debounce"); d > 0 {
		opts.Debounce = d
	}
	for _, endpoint := range cmd.StringSlice("endpoint") {
		opts.Providers = append(opts.Providers, surmiser.Remote(surmiser.RemoteProviderConfig{
			ID:       endpoint,
			Endpoint: endpoint,
			Redact:   cfg.Privacy.Redact,
		}))
	}

	files := append(cmd.StringSlice("corpus"), cfg.Corpus.Files...)
	mode, err := surmiser.ParseCorpusMode(cfg.Corpus.Mode)
	if err != nil {
		mode = surmiser.CorpusReplace
	}
	load := func() ([]string, error) {
		own, err := corpus.LoadFiles(files)
		if err != nil {
			return nil, err
		}
		return corpus.Compose(nil, own, mode), nil
	}

	predictive := corpus.Default()
	if len(files) > 0 {
		phrases, err := load()
		if err != nil {
			return err
		}
		predictive.SetPhrases(phrases)
		if cfg.Corpus.Watch {
			go func() {
				if err := corpus.Watch(ctx, files, load, predictive); err != nil {
					slog.Warn("corpus watch stopped", "error", err)
				}
			}()
		}
	}
	opts.Providers = append(opts.Providers, surmiser.Local(predictive))

	if p := generate.FromConfig(cfg); p != nil {
		opts.Providers = append(opts.Providers, surmiser.Local(p))
	}
	if surmiser.EmbeddingEnabled(cfg) {
		idx := semanticIndex(ctx, cfg, load, len(files) > 0)
		defer idx.Close()
		opts.Providers = append(opts.Providers, surmiser.Local(index.NewProvider(idx, index.ProviderOptions{
			TopK:     cfg.Embedding.TopK,
			Priority: cfg.Embedding.Priority,
			Redact:   cfg.Privacy.Redact,
		})))
	}

	editor, err := NewEditor(prompt)
	if err != nil {
		return err
	}
	defer editor.Close()

	out := termWriter(os.Stdout)
	opts.OnAccept = func(s surmiser.Suggestion) {
		text := editor.Value()
		editor.Above(func() {
			if err := writeEntry(out, text, s); err != nil {
				slog.Warn("failed to write accept log", "error", err)
			}
		})
	}

	c, err := controller.Attach(editor, opts, controller.Env{
		NewRenderer: editor.NewRenderer,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer c.Detach()

	fmt.Fprint(editor.tty, "\x1b[2J\x1b[H") // clear screen
	fmt.Fprintf(editor.tty, "surmiser repl (%d providers)\r\n", len(opts.Providers))
	fmt.Fprint(editor.tty, "Tab/→ accept, Esc dismiss, Enter new line, Ctrl-C quit\r\n\r\n")

	err = editor.Run(ctx)
	if errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupt) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func loadConfig(path string) (*surmiser.Config, error) {
	if path != "" {
		return surmiser.LoadConfigFile(path)
	}
	return surmiser.LoadConfig()
}

// semanticIndex builds the embedding index over the corpus in the
// background. Suggestions start once the first indexing pass finishes.
func semanticIndex(ctx context.Context, cfg *surmiser.Config, load func() ([]string, error), own bool) *index.Indexer {
	embedder := index.NewEmbedder(
		surmiser.ResolveEmbeddingBaseURL(cfg),
		surmiser.ResolveEmbeddingAPIKey(cfg),
		surmiser.ResolveEmbeddingModel(cfg),
	)
	idx := index.NewIndexer(embedder, time.Duration(cfg.Embedding.TTLMinutes)*time.Minute)

	go func() {
		phrases := corpus.Compose(nil, nil, surmiser.CorpusAppend)
		if own {
			var err error
			if phrases, err = load(); err != nil {
				slog.Warn("failed to load corpus for indexing", "error", err)
				return
			}
		}
		start := time.Now()
		if err := idx.IndexPhrases(ctx, phrases); err != nil {
			slog.Warn("failed to build semantic index", "error", err)
			return
		}
		slog.Info("semantic index ready", "phrases", idx.Len(), "elapsed", time.Since(start))
	}()
	return idx
}
