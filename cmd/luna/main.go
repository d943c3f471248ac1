package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"luna/cmd/luna/chat"
	"luna/internal/config"
	"luna/internal/conversation"
	"luna/internal/domain"
	"luna/internal/logging"
	"luna/internal/playbook"
	"luna/internal/resolver"
	"luna/internal/server"
	"luna/internal/store"
)

var (
	// Global flags
	workspace string
	role      string
	debug     bool

	// Chat flags
	freshSession bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "luna",
	Short: "Luna - conversational assistant for the org dashboard",
	Long: `Luna is the dashboard's conversational assistant. It answers questions
about tasks and programmes, and turns natural-language commands into
previewed actions that only run after you confirm them.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(debug); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

// sendCmd resolves a single message and prints the outcome
var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send one message and print the assistant's reply",
	Long: `Runs a single message through the engine without the interactive UI.
Action commands stop at the preview: nothing executes without an
interactive confirmation, so this is a safe way to test resolution.

Example:
  luna send "what's overdue this week?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

// serveCmd runs the HTTP API for the dashboard front-end
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversation API over HTTP",
	Long: `Starts the HTTP server the dashboard front-end talks to, and watches
the workspace playbook directory so definition edits apply live.`,
	RunE: runServe,
}

// playbooksCmd lists the loaded playbook definitions
var playbooksCmd = &cobra.Command{
	Use:   "playbooks",
	Short: "List available playbooks",
	RunE:  runPlaybooks,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().StringVar(&role, "role", "", "override the configured role (member, manager, admin)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&freshSession, "new", false, "start a new conversation instead of resuming the last one")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playbooksCmd)
}

// deps is everything a session host needs, built once from config.
type deps struct {
	cfg       *config.Luna
	resolver  resolver.Resolver
	domain    domain.API
	playbooks *playbook.Library
	history   *store.History
}

// buildDeps loads config and wires the resolver, domain, playbook library and
// history store. The caller owns closing history.
func buildDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	if role != "" {
		cfg.Role = role
	}

	lib := playbook.NewLibrary()
	if _, err := os.Stat(cfg.PlaybookDir); err == nil {
		if err := lib.LoadDir(cfg.PlaybookDir); err != nil {
			return nil, err
		}
	}

	var res resolver.Resolver
	switch cfg.Resolver {
	case config.ResolverGenAI:
		res, err = resolver.NewGenAI(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model, lib.Names)
		if err != nil {
			return nil, fmt.Errorf("genai resolver: %w", err)
		}
	default:
		res = resolver.NewKeyword(lib)
	}

	var dom domain.API
	if cfg.DomainURL != "" {
		dom = domain.NewHTTPClient(cfg.DomainURL)
	} else {
		dom = domain.NewMemory()
	}

	history, err := store.OpenHistory(cfg.HistoryDB)
	if err != nil {
		return nil, err
	}

	return &deps{
		cfg:       cfg,
		resolver:  res,
		domain:    dom,
		playbooks: lib,
		history:   history,
	}, nil
}

func runChat(ctx context.Context) error {
	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.history.Close()

	recorder := store.NewRecorder(d.history)

	// Resume the most recent conversation unless asked for a fresh one.
	sessionID := ""
	var restored []conversation.Message
	if !freshSession {
		ids, err := d.history.Sessions(ctx)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			sessionID = ids[0]
			restored, err = recorder.Restore(ctx, sessionID)
			if err != nil {
				return err
			}
		}
	}

	sess, err := conversation.NewSession(conversation.Options{
		ID:        sessionID,
		Role:      d.cfg.Role,
		Resolver:  d.resolver,
		Domain:    d.domain,
		Playbooks: d.playbooks,
		Observers: []conversation.Observer{recorder},
	})
	if err != nil {
		return err
	}
	sess.Restore(restored)
	return chat.Run(sess, d.cfg.Role)
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.history.Close()

	sess, err := conversation.NewSession(conversation.Options{
		Role:      d.cfg.Role,
		Resolver:  d.resolver,
		Domain:    d.domain,
		Playbooks: d.playbooks,
	})
	if err != nil {
		return err
	}

	text := ""
	for i, a := range args {
		if i > 0 {
			text += " "
		}
		text += a
	}
	if err := sess.SendMessage(ctx, text); err != nil {
		return err
	}

	msgs := sess.Messages()
	for _, m := range msgs[1:] {
		fmt.Println(m.Content)
		if m.Action != nil {
			fmt.Printf("\n  %s (%s)\n", m.Action.Title, m.Action.Status)
			for _, f := range m.Action.Fields {
				fmt.Printf("    %s: %s\n", f.Label, f.Value)
			}
		}
		for _, it := range m.Items {
			fmt.Printf("  - %s %s\n", it.Label, it.Href)
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.history.Close()

	recorder := store.NewRecorder(d.history)
	srv := server.New(server.Options{
		Role:      d.cfg.Role,
		Resolver:  d.resolver,
		Domain:    d.domain,
		Playbooks: d.playbooks,
		Observers: []conversation.Observer{recorder},
		Restorer:  recorder,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(d.cfg.PlaybookDir); err == nil {
		watcher, err := playbook.NewWatcher(d.playbooks, d.cfg.PlaybookDir)
		if err != nil {
			return err
		}
		if err := watcher.Start(gctx); err != nil {
			return err
		}
		defer watcher.Close()
	}

	g.Go(func() error {
		return srv.Start(d.cfg.Listen)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runPlaybooks(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.history.Close()

	for _, name := range d.playbooks.Names() {
		def, _ := d.playbooks.Get(name)
		fmt.Printf("%s (%d steps)\n", def.Name, len(def.Steps))
		for i, s := range def.Steps {
			fmt.Printf("  %d. %s\n", i+1, s.Title)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
