package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/Asanta4/pdf2xls/internal/config"
	"github.com/Asanta4/pdf2xls/internal/engine"
	"github.com/Asanta4/pdf2xls/internal/extract"
	"github.com/Asanta4/pdf2xls/internal/session"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// parseLogLevel parses the LOG_LEVEL environment variable and returns the
// appropriate logrus level. Defaults to WarnLevel if not set or invalid.
func parseLogLevel() logrus.Level {
	logLevelStr := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	switch logLevelStr {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.WarnLevel
	}
}

func main() {
	// Optional .env next to the binary; absence is fine.
	_ = godotenv.Load()

	// Create context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(parseLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	app := &cli.Command{
		Name:    "pdf2xls",
		Usage:   "Convert tabular PDF documents (Latin and Hebrew) to CSV or Excel",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("pdf2xls version %s\n", Version)
					fmt.Printf("Commit: %s\n", Commit)
					fmt.Printf("Built: %s\n", BuildDate)
					return nil
				},
			},
			{
				Name:  "convert",
				Usage: "Convert a PDF file to a tabular output file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to the source PDF",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "csv",
						Usage:   "Output format (csv or xlsx)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Destination path (default: input name with the output extension)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runConvert(ctx, cmd, logger)
				},
			},
			{
				Name:  "sessions",
				Usage: "List known conversion sessions",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSessions(logger)
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatalf("Error: %v", err)
	}
}

// newEngine wires the store and PDF opener from environment configuration.
func newEngine(logger *logrus.Logger) (*engine.Engine, config.Config, error) {
	cfg := config.FromEnv()

	store := session.NewStore(filepath.Join(cfg.WorkDir, "sessions"), logger)
	if err := store.Load(); err != nil {
		return nil, cfg, fmt.Errorf("loading session records: %w", err)
	}

	opener := func(ctx context.Context, inputRef string) (extract.Source, error) {
		return extract.OpenPDF(inputRef, logger,
			extract.WithOCR(extract.NewTesseractEngine()),
			extract.WithMinTextChars(cfg.MinTextChars),
			extract.WithLanguages(cfg.TesseractLangs),
		)
	}

	return engine.New(cfg, store, opener, logger), cfg, nil
}

func runConvert(ctx context.Context, cmd *cli.Command, logger *logrus.Logger) error {
	format := session.Format(strings.ToLower(cmd.String("format")))
	if !format.Valid() {
		return fmt.Errorf("unsupported output format %q (want csv or xlsx)", cmd.String("format"))
	}

	eng, cfg, err := newEngine(logger)
	if err != nil {
		return err
	}

	input, err := resolveInput(cfg, cmd.String("input"))
	if err != nil {
		return err
	}
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}
	if info.Size() > cfg.MaxUploadSize {
		return fmt.Errorf("input file is %d bytes, exceeds the %d byte limit", info.Size(), cfg.MaxUploadSize)
	}

	sess, err := eng.CreateSession(input)
	if err != nil {
		return err
	}
	if _, err := eng.Start(sess.ID, format); err != nil {
		return err
	}

	final, err := watchSession(ctx, eng, sess.ID)
	if err != nil {
		return err
	}

	switch final.Status {
	case session.StatusCancelled:
		fmt.Fprintln(os.Stderr, "\nconversion cancelled")
		return nil
	case session.StatusError:
		return fmt.Errorf("conversion failed: %s", final.ErrorDetail)
	}

	dest := cmd.String("output")
	if dest == "" {
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		dest = base + "." + string(format)
	}
	if err := copyArtifact(eng, final.ID, dest); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n%s (%d pages)\n", dest, final.TotalPages)
	for _, warn := range final.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warn)
	}
	return nil
}

// resolveInput locates the source PDF: first the path as given, then
// relative to the configured upload directory.
func resolveInput(cfg config.Config, input string) (string, error) {
	if _, err := os.Stat(input); err == nil {
		return input, nil
	}
	if !filepath.IsAbs(input) {
		candidate := filepath.Join(cfg.UploadDir, input)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("input file not found: %s", input)
}

// watchSession polls progress until the session reaches a terminal state.
// An interrupt cancels the session and waits for it to wind down.
func watchSession(ctx context.Context, eng *engine.Engine, id string) (session.Session, error) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := eng.Cancel(id); err != nil {
				return session.Session{}, err
			}
			eng.Wait(id)
			return eng.Progress(id)
		case <-ticker.C:
			sess, err := eng.Progress(id)
			if err != nil {
				return session.Session{}, err
			}
			if sess.Status.Terminal() {
				eng.Wait(id)
				return sess, nil
			}
			if sess.TotalPages > 0 {
				fmt.Fprintf(os.Stderr, "\rpage %d/%d (%d%%)", sess.CurrentPage, sess.TotalPages, sess.Progress)
			}
		}
	}
}

func copyArtifact(eng *engine.Engine, id, dest string) error {
	src, _, err := eng.Output(id)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("writing output file: %w", err)
	}
	return out.Close()
}

func runSessions(logger *logrus.Logger) error {
	eng, _, err := newEngine(logger)
	if err != nil {
		return err
	}

	sessions := eng.Sessions()
	if len(sessions) == 0 {
		fmt.Println("no sessions recorded")
		return nil
	}

	fmt.Printf("%-36s  %-10s  %8s  %5s  %-6s  %s\n", "SESSION", "STATUS", "PROGRESS", "PAGES", "FORMAT", "UPDATED")
	for _, s := range sessions {
		fmt.Printf("%-36s  %-10s  %7d%%  %5d  %-6s  %s\n",
			s.ID, s.Status, s.Progress, s.TotalPages, s.Format,
			s.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}
