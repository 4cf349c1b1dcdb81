package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHighlightCmd(opts *rootOptions) *cobra.Command {
	var (
		pageURL    string
		in, out    string
		start, end int
	)
	cmd := &cobra.Command{
		Use:   "highlight",
		Short: "Highlight a character range of a saved page",
		Long:  "Highlight the text between --start and --end (rune offsets into the page text), store it, and write the marked-up page.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pageHTML, err := readInput(cmd, in)
			if err != nil {
				return err
			}

			c, err := openContainer(cmd, opts)
			if err != nil {
				return err
			}
			defer c.Close()

			id, marked, err := c.HighlightService.HighlightSelection(cmd.Context(), pageURL, string(pageHTML), start, end)
			if err != nil {
				return fmt.Errorf("failed to highlight selection: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "created highlight %s\n", id)
			return writeOutput(cmd, out, []byte(marked))
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "Page URL (required)")
	cmd.Flags().StringVarP(&in, "in", "i", "", "Path to the page HTML (- for stdin)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Path for the marked-up HTML (default stdout)")
	cmd.Flags().IntVar(&start, "start", 0, "Start offset of the selection")
	cmd.Flags().IntVar(&end, "end", 0, "End offset of the selection")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newAnnotateCmd(opts *rootOptions) *cobra.Command {
	var (
		pageURL string
		in, out string
	)
	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Render stored highlights onto a page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pageHTML, err := readInput(cmd, in)
			if err != nil {
				return err
			}

			c, err := openContainer(cmd, opts)
			if err != nil {
				return err
			}
			defer c.Close()

			marked, report, err := c.HighlightService.RenderPage(cmd.Context(), pageURL, string(pageHTML))
			if err != nil {
				return fmt.Errorf("failed to render highlights: %w", err)
			}
			for _, id := range report.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "could not anchor highlight %s\n", id)
			}
			return writeOutput(cmd, out, []byte(marked))
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "Page URL (required)")
	cmd.Flags().StringVarP(&in, "in", "i", "", "Path to the page HTML (- for stdin)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Path for the marked-up HTML (default stdout)")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
