package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/igoryan-dao/thinking-tools/internal/app"
	"github.com/igoryan-dao/thinking-tools/internal/catalog"
	"github.com/igoryan-dao/thinking-tools/internal/config"
	"github.com/igoryan-dao/thinking-tools/internal/conversation"
	"github.com/igoryan-dao/thinking-tools/internal/discord"
	"github.com/igoryan-dao/thinking-tools/internal/httpapi"
	"github.com/igoryan-dao/thinking-tools/internal/install"
	"github.com/igoryan-dao/thinking-tools/internal/logging"
	"github.com/igoryan-dao/thinking-tools/internal/mcp"
	"github.com/igoryan-dao/thinking-tools/internal/telegram"
)

var (
	verbose   bool
	console   bool
	httpAddr  string
	demoUser  string
	demoPlain bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "thinking-tools",
	Short: "Structured thinking methods over MCP, chat bots and HTTP",
	Long: `thinking-tools stays silent until asked, then walks a problem through a
questioning method such as 5 Whys, SCAMPER or SWOT.

Run without a subcommand it serves MCP over stdio.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Double-clicked binary: nothing is speaking MCP on stdin
		if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			return cmd.Help()
		}
		return runServe(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	RunE:  runServe,
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram and/or Discord bots",
	RunE:  runBot,
}

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Serve the REST API and websocket chat",
	Long: `Serve the REST API and the /ws/chat websocket.

Browsers may open /ws/chat only from this server's own host or from origins
listed in THINKING_HTTP_ALLOWED_ORIGINS (comma-separated, "*" allows any).`,
	RunE:  runHTTP,
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Chat with the trigger flow in the terminal",
	RunE:  runDemoCmd,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Register this binary in detected MCP clients",
	RunE:  runInstall,
}

var methodsCmd = &cobra.Command{
	Use:   "methods [category]",
	Short: "List the method catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMethods,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&console, "console-log", false, "Human-readable log output")
	httpCmd.Flags().StringVar(&httpAddr, "addr", "", "Listen address (default from THINKING_HTTP_ADDR)")
	demoCmd.Flags().StringVar(&demoUser, "user", "demo_user", "User id that owns demo sessions")
	demoCmd.Flags().BoolVar(&demoPlain, "plain", false, "Print replies without markdown rendering")

	rootCmd.AddCommand(serveCmd, botCmd, httpCmd, demoCmd, installCmd, methodsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	var err error
	if cfg, err = config.Load(); err != nil {
		return err
	}

	logger, err = logging.New(logging.Options{Level: cfg.LogLevel, Verbose: verbose, Console: console})
	if err != nil {
		return err
	}
	logger = logger.With(zap.String("cmd", cmd.Name()))
	return nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func openApp() (*app.App, error) {
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	srv := mcp.NewServer(a.Hub, cfg.DefaultUser, logger)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

func runBot(cmd *cobra.Command, _ []string) error {
	if cfg.TelegramToken == "" && cfg.DiscordToken == "" {
		return errors.New("set TELEGRAM_BOT_TOKEN or DISCORD_BOT_TOKEN to run a bot")
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.DiscordToken != "" {
		db, err := discord.New(cfg.DiscordToken, cfg.DiscordGuildID, a.Hub, logger)
		if err != nil {
			return fmt.Errorf("failed to create Discord bot: %w", err)
		}
		if err := db.Start(); err != nil {
			return fmt.Errorf("failed to start Discord bot: %w", err)
		}
		defer db.Stop()
		logger.Info("Discord bot started")
	}

	if cfg.TelegramToken != "" {
		tg, err := telegram.New(cfg.TelegramToken, cfg.AllowedUserIDs, a.Hub, logger)
		if err != nil {
			return fmt.Errorf("failed to create Telegram bot: %w", err)
		}

		tr, err := app.NewTranscriber(cfg, logger)
		if err != nil {
			logger.Warn("voice notes disabled", zap.Error(err))
		} else if tr != nil {
			tg.SetTranscriber(tr)
			logger.Info("voice notes enabled", zap.String("provider", cfg.Voice.Provider))
		}

		tg.Start(ctx)
		return nil
	}

	<-ctx.Done()
	return nil
}

func runHTTP(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	addr := httpAddr
	if addr == "" {
		addr = cfg.HTTPAddr
	}
	srv := httpapi.New(a.Hub, logger)
	srv.SetAllowedOrigins(cfg.AllowedOrigins)
	return srv.ListenAndServe(ctx, addr)
}

func runDemoCmd(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	render := plainRender
	if !demoPlain {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err != nil {
			logger.Warn("markdown renderer unavailable", zap.Error(err))
		} else {
			render = func(s string) string {
				out, err := r.Render(s)
				if err != nil {
					return s
				}
				return strings.TrimRight(out, "\n")
			}
		}
	}

	conv := conversation.New(demoUser, a.Hub.Deps())
	defer conv.Close()
	return runDemo(ctx, conv, os.Stdin, cmd.OutOrStdout(), render)
}

func runInstall(cmd *cobra.Command, _ []string) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("error getting executable path: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🚀 thinking-tools installer")
	fmt.Fprintln(out, "---------------------------")

	env := map[string]string{}
	for _, key := range []string{"THINKING_STORAGE", "THINKING_DATA_DIR", "THINKING_CATALOG_PATH", "SUPABASE_URL", "SUPABASE_KEY", "OPENAI_API_KEY"} {
		if v := os.Getenv(key); v != "" {
			env[key] = v
		}
	}

	installed, err := install.Install(install.Options{
		BinaryPath: executable,
		Args:       []string{"serve"},
		Env:        env,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("installation failed: %w", err)
	}

	for _, name := range installed {
		fmt.Fprintf(out, "✅ %s\n", name)
	}
	fmt.Fprintln(out, "\nRestart your IDE or AI CLI to apply changes.")
	return nil
}

var headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

func runMethods(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return err
	}

	categories := catalog.Categories()
	if len(args) == 1 {
		c := catalog.Category(args[0])
		if !c.Valid() {
			return fmt.Errorf("invalid category %q", args[0])
		}
		categories = []catalog.Category{c}
	}

	out := cmd.OutOrStdout()
	for _, c := range categories {
		methods := cat.Summaries(c)
		if len(methods) == 0 {
			continue
		}
		fmt.Fprintln(out, headingStyle.Render(c.DisplayName()))
		for _, m := range methods {
			fmt.Fprintf(out, "  %-18s %s (%d단계) - %s\n", m.ID, m.Name, m.Steps, m.BestFor)
		}
		fmt.Fprintln(out)
	}
	return nil
}
