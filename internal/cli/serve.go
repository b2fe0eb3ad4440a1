package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eringen/blogsite"
	"github.com/eringen/blogsite/importer"
)

var (
	serveAddr  string
	serveWatch string
	serveWarm  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveWatch, "watch", "", "re-import Markdown posts from this directory when it changes")
	serveCmd.Flags().BoolVar(&serveWarm, "warm", false, "generate every sitemap before accepting requests")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	app := blogsite.New(cfg, blogsite.ViewFuncs{})
	if err := app.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveWarm {
		if err := app.Sitemaps.Warm(ctx); err != nil {
			app.Echo.Logger.Warnf("sitemap warm: %v", err)
		}
	}

	if serveWatch != "" {
		if err := syncMarkdown(ctx, app, serveWatch); err != nil {
			app.Echo.Logger.Warnf("import %s: %v", serveWatch, err)
		}
		go func() {
			err := importer.Watch(ctx, serveWatch, importer.DefaultDebounce, func() {
				if err := syncMarkdown(ctx, app, serveWatch); err != nil {
					app.Echo.Logger.Warnf("import %s: %v", serveWatch, err)
				}
			})
			if err != nil && ctx.Err() == nil {
				app.Echo.Logger.Errorf("watch %s: %v", serveWatch, err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- app.Start() }()

	select {
	case err := <-errCh:
		app.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// syncMarkdown saves every post found in dir and refreshes cached content.
func syncMarkdown(ctx context.Context, app *blogsite.App, dir string) error {
	posts, err := importer.LoadDir(dir)
	if err != nil {
		return err
	}
	for _, p := range posts {
		if err := app.Store.SavePost(ctx, p); err != nil {
			return fmt.Errorf("save %s: %w", p.Slug, err)
		}
	}
	app.InvalidateContent(ctx)
	app.Echo.Logger.Infof("imported %d post(s) from %s", len(posts), dir)
	return nil
}
