package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/stepdeck/internal/assets"
	"github.com/naveenspark/stepdeck/internal/browser"
	"github.com/naveenspark/stepdeck/internal/config"
	"github.com/naveenspark/stepdeck/internal/document"
	"github.com/naveenspark/stepdeck/internal/mail"
	"github.com/naveenspark/stepdeck/internal/platform/logger"
	"github.com/naveenspark/stepdeck/internal/quiz"
	"github.com/naveenspark/stepdeck/internal/scene"
	"github.com/naveenspark/stepdeck/internal/store"
	"github.com/naveenspark/stepdeck/internal/store/gcs"
	"github.com/naveenspark/stepdeck/internal/store/local"
	"github.com/naveenspark/stepdeck/internal/tui"
	"github.com/naveenspark/stepdeck/pkg/client"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env holds the collaborators every command runs against.
type env struct {
	cfg      config.Config
	log      *logger.Logger
	projects store.ProjectStore
	assets   store.AssetStore
	mailer   quiz.Mailer
	closers  []io.Closer
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i].Close() //nolint:errcheck
	}
	e.log.Sync()
}

// tokenFilePath returns ~/.stepdeck/token.
func tokenFilePath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "token"), nil
}

// readToken returns the API token using precedence: config/env > file > empty.
func readToken(configured string) string {
	if configured != "" {
		return configured
	}
	path, err := tokenFilePath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func run(args []string, out io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "version", "-v":
			fmt.Fprintln(out, "stepdeck "+version)
			return nil
		case "help", "--help", "-h":
			printHelp(out)
			return nil
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	e, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.close()
	return dispatch(ctx, e, args, out)
}

// setup opens the configured stores and mailer. The log goes to a file so
// the terminal UI is left alone.
func setup(ctx context.Context, cfg config.Config) (*env, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	log, err := logger.New(cfg.LogMode, cfg.LogPath())
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: log}

	switch cfg.Backend {
	case "remote":
		c := client.New(cfg.APIURL, readToken(cfg.APIToken))
		e.projects, e.assets = c, c
	default:
		s, err := local.Open(cfg.DataDir, log)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, s)
		e.projects, e.assets = s, s
	}
	if cfg.Assets == "gcs" {
		g, err := gcs.New(ctx, cfg.GCSBucket, log)
		if err != nil {
			e.close()
			return nil, err
		}
		e.closers = append(e.closers, g)
		e.assets = g
	}

	e.mailer, err = newMailer(cfg, log)
	if err != nil {
		e.close()
		return nil, err
	}
	log.Info("stepdeck starting", "version", version, "backend", cfg.Backend, "assets", cfg.Assets)
	return e, nil
}

// newMailer sends through SendGrid when a key is configured and only logs
// reports otherwise.
func newMailer(cfg config.Config, log *logger.Logger) (quiz.Mailer, error) {
	if cfg.SendGridKey == "" {
		return mail.NewLogMailer(log), nil
	}
	sg, err := mail.NewSendGrid(mail.Config{
		APIKey:     cfg.SendGridKey,
		BaseURL:    cfg.SendGridURL,
		FromEmail:  cfg.MailFrom,
		FromName:   cfg.MailFromName,
		MaxRetries: cfg.MailRetries,
	}, log)
	if err != nil {
		return nil, err
	}
	return mail.NewReportMailer(sg, cfg.OwnerEmail), nil
}

func dispatch(ctx context.Context, e *env, args []string, out io.Writer) error {
	if len(args) == 0 {
		return runTUI(e, "", false)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "view", "edit":
		if len(rest) != 1 {
			return fmt.Errorf("usage: stepdeck %s <project>", cmd)
		}
		return runTUI(e, rest[0], cmd == "edit")
	case "new":
		return runNew(ctx, e, strings.Join(rest, " "), out)
	case "list", "ls":
		return runList(ctx, e, out)
	case "delete", "rm":
		if len(rest) != 1 {
			return fmt.Errorf("usage: stepdeck delete <project>")
		}
		return runDelete(ctx, e, rest[0], out)
	case "export":
		o, err := parseExportArgs(rest)
		if err != nil {
			return err
		}
		return runExport(ctx, e, o, out)
	case "import-asset":
		if len(rest) != 2 {
			return fmt.Errorf("usage: stepdeck import-asset <project> <file>")
		}
		return runImportAsset(ctx, e, rest[0], rest[1], out)
	case "assets":
		if len(rest) > 1 {
			return fmt.Errorf("usage: stepdeck assets [project]")
		}
		var id string
		if len(rest) == 1 {
			id = rest[0]
		}
		return runAssets(ctx, e, id, out)
	}
	return fmt.Errorf("unknown command %q (try stepdeck help)", cmd)
}

func runTUI(e *env, open string, edit bool) error {
	app := tui.NewApp(tui.Deps{
		Projects:    e.projects,
		Assets:      e.assets,
		Mailer:      e.mailer,
		Log:         e.log,
		Version:     version,
		ExportDir:   filepath.Join(e.cfg.DataDir, "exports"),
		ExportWidth: e.cfg.ExportWidth,
		Open:        open,
		Edit:        edit,
	})

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func runNew(ctx context.Context, e *env, title string, out io.Writer) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}
	m := document.New(e.log, document.Editor)
	m.CreateProject(title)
	data, err := m.Serialize()
	if err != nil {
		return err
	}
	res, err := e.projects.Save(ctx, data, "", title)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created %s  %s\n", res.ID, title)
	return nil
}

func runList(ctx context.Context, e *env, out io.Writer) error {
	list, err := e.projects.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		printEmptyLibrary(out)
		return nil
	}
	printProjects(out, list, time.Now())
	return nil
}

func runDelete(ctx context.Context, e *env, id string, out io.Writer) error {
	ok, err := e.projects.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(out, "no project %s\n", id)
		return nil
	}
	fmt.Fprintf(out, "deleted %s\n", id)
	return nil
}

type exportOptions struct {
	id    string
	slide int // 1-based
	width int
	out   string
	open  bool
}

// parseExportArgs accepts flags before or after the positional
// arguments: project id, then optionally slide number and output file.
func parseExportArgs(args []string) (exportOptions, error) {
	const usage = "usage: stepdeck export <project> [slide#] [out.png] [--width PX] [--open]"
	var o exportOptions
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&o.slide, "slide", 1, "")
	fs.IntVar(&o.width, "width", 0, "")
	fs.StringVar(&o.out, "o", "", "")
	fs.BoolVar(&o.open, "open", false, "")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return exportOptions{}, fmt.Errorf("%w\n%s", err, usage)
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
	if len(positional) == 0 || len(positional) > 3 {
		return exportOptions{}, errors.New(usage)
	}
	o.id = positional[0]
	if len(positional) > 1 {
		n, err := strconv.Atoi(positional[1])
		if err != nil {
			return exportOptions{}, fmt.Errorf("slide number %q is not a number\n%s", positional[1], usage)
		}
		o.slide = n
	}
	if len(positional) > 2 {
		o.out = positional[2]
	}
	switch {
	case o.slide < 1:
		return exportOptions{}, fmt.Errorf("slide number must be 1 or more")
	case o.width < 0:
		return exportOptions{}, fmt.Errorf("--width must be positive")
	}
	return o, nil
}

// runExport renders one slide headlessly with every element visible.
func runExport(ctx context.Context, e *env, o exportOptions, out io.Writer) error {
	data, err := e.projects.Load(ctx, o.id)
	if err != nil {
		return err
	}
	doc := document.New(e.log, document.Viewer)
	if err := doc.LoadDocument(data); err != nil {
		return err
	}
	p := doc.Project()
	if o.slide > len(p.Slides) {
		return fmt.Errorf("slide %d out of range: %q has %d", o.slide, p.Title, len(p.Slides))
	}

	var cache *assets.Cache
	if e.assets != nil {
		cache = assets.New(e.assets, e.log)
	}
	ctrl := scene.NewController(doc, cache, e.log)
	frame, err := ctrl.Prepare(ctx, p.Slides[o.slide-1])
	if err != nil {
		return err
	}
	if err := ctrl.Commit(frame); err != nil {
		return err
	}
	if frame.Failures > 0 {
		fmt.Fprintf(out, "warning: %d element(s) could not be loaded\n", frame.Failures)
	}

	width := o.width
	if width == 0 {
		width = e.cfg.ExportWidth
	}
	path := o.out
	if path == "" {
		path = scene.ExportFileName(p.Title, o.slide)
	}
	if err := ctrl.Scene().SavePNG(path, width); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	if o.open {
		if err := browser.Open(path); err != nil {
			e.log.Warn("export not opened", "path", path, "error", err)
		}
	}
	return nil
}

func runImportAsset(ctx context.Context, e *env, projectID, file string, out io.Writer) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	ref, err := e.assets.UploadAsset(ctx, domain.Blob{Data: data, MIMEType: store.MIMEFromName(file)}, filepath.Base(file), projectID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s  %s\n", ref.AssetID, ref.AssetURL)
	return nil
}

func runAssets(ctx context.Context, e *env, projectID string, out io.Writer) error {
	lister, ok := e.assets.(store.AssetLister)
	if !ok {
		return fmt.Errorf("the configured asset store cannot list assets")
	}
	ids, err := lister.ListAssets(ctx, projectID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "no assets")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}
