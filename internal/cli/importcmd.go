package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/blogsite"
	"github.com/eringen/blogsite/importer"
)

var (
	importDir    string
	importFeed   string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import posts from a Markdown directory or an RSS/Atom feed",
	Long:  "Reads posts from --dir (Markdown files with YAML front matter) or --feed (an RSS, Atom or JSON feed URL) and saves them to the database.",
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVar(&importDir, "dir", "", "directory of Markdown posts")
	importCmd.Flags().StringVar(&importFeed, "feed", "", "feed URL to import")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "list posts without saving them")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	if (importDir == "") == (importFeed == "") {
		return errors.New("exactly one of --dir or --feed is required")
	}

	var (
		posts []blogsite.BlogPost
		err   error
	)
	if importDir != "" {
		posts, err = importer.LoadDir(importDir)
	} else {
		posts, err = importer.ImportFeed(cmd.Context(), importFeed)
	}
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	out := cmd.OutOrStdout()
	if importDryRun {
		for _, p := range posts {
			fmt.Fprintf(out, "%s  %s  %s\n", p.Date, p.Slug, p.Title)
		}
		fmt.Fprintf(out, "%d post(s) found (dry run)\n", len(posts))
		return nil
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	app := blogsite.New(cfg, blogsite.ViewFuncs{})
	if err := app.Open(); err != nil {
		return err
	}
	defer app.Close()

	for _, p := range posts {
		if err := app.Store.SavePost(cmd.Context(), p); err != nil {
			return fmt.Errorf("save %s: %w", p.Slug, err)
		}
	}
	app.InvalidateContent(cmd.Context())
	fmt.Fprintf(out, "Imported %d post(s)\n", len(posts))
	return nil
}
