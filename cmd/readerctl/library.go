package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"page-reader/internal/domain"
	"page-reader/internal/notes"
)

func newSaveCmd(opts *rootOptions) *cobra.Command {
	var (
		pageURL string
		title   string
		in      string
	)
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a page to the library",
		Long:  "Save a page to the library. When --in is given the page HTML fills in the title, favicon and excerpt.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var pageHTML string
			if in != "" {
				data, err := readInput(cmd, in)
				if err != nil {
					return err
				}
				pageHTML = string(data)
			}

			c, err := openContainer(cmd, opts)
			if err != nil {
				return err
			}
			defer c.Close()

			article, err := c.ArticleService.SaveArticle(cmd.Context(), &domain.Article{URL: pageURL, Title: title}, pageHTML)
			if err != nil {
				return fmt.Errorf("failed to save article: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", article.ID, article.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "Page URL (required)")
	cmd.Flags().StringVar(&title, "title", "", "Article title")
	cmd.Flags().StringVarP(&in, "in", "i", "", "Path to the page HTML (- for stdin)")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		query  domain.LibraryQuery
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the library",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openContainer(cmd, opts)
			if err != nil {
				return err
			}
			defer c.Close()

			view, err := c.LibraryService.Load(cmd.Context(), query)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printSection := func(name string, articles []*domain.Article) {
				for _, a := range articles {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", name, a.ID, a.URL, view.HighlightCounts[a.URL])
				}
			}
			printSection("read-later", view.ReadLater)
			printSection("saved", view.Saved)
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&query.Search, "search", "", "Only articles whose title or URL contains this text")
	cmd.Flags().StringVar(&query.Scope, "scope", domain.ScopeAll, "Library scope: all, read-later, saved, favorites or highlights")
	cmd.Flags().StringVar(&query.Sort, "sort", domain.SortNewest, "Sort order: newest or oldest")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the library as JSON")
	return cmd
}

func newNotesCmd(opts *rootOptions) *cobra.Command {
	var (
		search, order string
		out           string
	)
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Write every highlight as Markdown reading notes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openContainer(cmd, opts)
			if err != nil {
				return err
			}
			defer c.Close()

			groups, err := c.LibraryService.Groups(cmd.Context(), search, order)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := notes.Write(&buf, groups); err != nil {
				return fmt.Errorf("failed to render notes: %w", err)
			}
			return writeOutput(cmd, out, buf.Bytes())
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Only highlights whose text or article title contains this text")
	cmd.Flags().StringVar(&order, "sort", domain.SortNewest, "Sort order: newest or oldest")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Path for the Markdown file (default stdout)")
	return cmd
}
