package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eringen/blogsite"
	"github.com/eringen/blogsite/linkcheck"
	"github.com/eringen/blogsite/sitemap"
)

var (
	sitemapForce bool
	sitemapKind  string
	checkURL     string
)

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Generate or check XML sitemaps",
}

var sitemapGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate sitemaps into the configured store",
	RunE:  runSitemapGenerate,
}

var sitemapCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Crawl a published sitemap and report broken locations",
	RunE:  runSitemapCheck,
}

func init() {
	sitemapGenerateCmd.Flags().BoolVar(&sitemapForce, "force", false, "regenerate even when the stored copy is fresh")
	sitemapGenerateCmd.Flags().StringVar(&sitemapKind, "kind", "", "only this kind (index, posts, posts-audio, tags)")
	sitemapCheckCmd.Flags().StringVar(&checkURL, "url", "", "sitemap URL (default: <url>/sitemap.xml from config)")
	sitemapCmd.AddCommand(sitemapGenerateCmd, sitemapCheckCmd)
	rootCmd.AddCommand(sitemapCmd)
}

func runSitemapGenerate(cmd *cobra.Command, _ []string) error {
	kinds := sitemap.Kinds()
	if sitemapKind != "" {
		k, err := sitemap.ParseKind(sitemapKind)
		if err != nil {
			return err
		}
		kinds = []sitemap.Kind{k}
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

	out := cmd.OutOrStdout()
	for _, k := range kinds {
		var body []byte
		if sitemapForce {
			body, err = app.Sitemaps.Regenerate(cmd.Context(), k)
		} else {
			body, err = app.Sitemaps.ReadOrGenerate(cmd.Context(), k)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", k.Path(), err)
		}
		fmt.Fprintf(out, "%-24s %d bytes\n", k.Path(), len(body))
	}
	return nil
}

func runSitemapCheck(cmd *cobra.Command, _ []string) error {
	target := checkURL
	if target == "" {
		cfg, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		target = strings.TrimRight(cfg.URL, "/") + sitemap.KindIndex.Path()
	}

	results, err := linkcheck.New().Check(cmd.Context(), target)
	if err != nil {
		return err
	}
	if len(results) > 0 {
		fmt.Fprint(cmd.OutOrStdout(), linkcheck.Summary(results))
		return fmt.Errorf("%d broken location(s)", len(results))
	}
	fmt.Fprintln(cmd.OutOrStdout(), linkcheck.Summary(results))
	return nil
}
