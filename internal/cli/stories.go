package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gwi.com/testcase-dashboard/internal/dashboard"
	"gwi.com/testcase-dashboard/internal/storyapi"
)

func newStoriesCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stories",
		Short: "List, search and show user stories",
	}
	cmd.AddCommand(newStoriesListCommand(opts), newStoriesSearchCommand(opts), newStoriesShowCommand(opts))
	return cmd
}

func newStoriesListCommand(opts *options) *cobra.Command {
	params := storyapi.ListParams{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a page of stories",
		Example: `  qactl stories list --page 2
  qactl stories list --from 2024-01-01 --to 2024-03-31 --project Alpha --sort asc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.storyClient()
			if err != nil {
				return err
			}
			page, err := client.ListStories(cmd.Context(), params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, page)
			}
			renderStories(out, page.Stories)
			fmt.Fprintln(out)
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("Page %d of %d (%d stories)", page.CurrentPage, page.TotalPages, page.TotalStories)))
			return nil
		},
	}

	cmd.Flags().IntVar(&params.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&params.PerPage, "per-page", dashboard.PerPage, "Stories per page")
	cmd.Flags().StringVar(&params.FromDate, "from", "", "Only stories created on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&params.ToDate, "to", "", "Only stories created on or before this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&params.ProjectID, "project", "", "Only stories from this project")
	cmd.Flags().StringVar(&params.SortOrder, "sort", "desc", "Sort order by creation date: asc or desc")
	return cmd
}

func newStoriesSearchCommand(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "search [query]",
		Short:   "Find stories similar to a free-text query",
		Example: `  qactl stories search "password reset by email" --limit 5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.storyClient()
			if err != nil {
				return err
			}
			stories, err := client.SearchStories(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), stories)
			}
			renderStories(cmd.OutOrStdout(), stories)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 3, "Maximum number of results")
	return cmd
}

func newStoriesShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show [story-id]",
		Short: "Show a single story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.storyClient()
			if err != nil {
				return err
			}
			story, err := client.GetStory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), story)
			}
			renderStory(cmd.OutOrStdout(), story)
			return nil
		},
	}
}

func newTestCasesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "testcases [story-id]",
		Short: "Show the generated test cases of a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.storyClient()
			if err != nil {
				return err
			}
			set, err := client.GetTestCases(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), set)
			}
			renderTestCases(cmd.OutOrStdout(), set)
			return nil
		},
	}
}

func newImpactsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "impacts [story-id]",
		Short: "Show test cases impacted by changes to a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.storyClient()
			if err != nil {
				return err
			}
			raw, err := client.GetStoryImpacts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			impacts, parseErrs := dashboard.NormalizeImpacts(*raw)
			for _, perr := range parseErrs {
				fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("warning: "+perr.Error()))
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), impacts)
			}
			renderImpacts(cmd.OutOrStdout(), args[0], impacts)
			return nil
		},
	}
}

func newDownloadCommand(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download [story-id]",
		Short: "Download the test case spreadsheet of a story",
		Example: `  qactl download US-12
  qactl download US-12 -o ./exports/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.storyClient()
			if err != nil {
				return err
			}
			download, err := client.DownloadTestCases(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer download.Body.Close()

			path := download.Filename
			if output != "" {
				path = output
				if info, err := os.Stat(output); err == nil && info.IsDir() {
					path = filepath.Join(output, download.Filename)
				}
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			n, err := io.Copy(f, download.Body)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Saved %s (%d bytes)", path, n)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory")
	return cmd
}

func newReloadCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Inspect or trigger the story service data reload",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show when the next reload is scheduled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.storyClient()
			if err != nil {
				return err
			}
			payload, err := client.NextReload(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), payload)
		},
	}

	trigger := &cobra.Command{
		Use:   "trigger",
		Short: "Start a reload now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.storyClient()
			if err != nil {
				return err
			}
			payload, err := client.TriggerReload(cmd.Context())
			if err != nil {
				return err
			}
			if !opts.jsonOutput {
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Reload triggered"))
			}
			return printJSON(cmd.OutOrStdout(), payload)
		},
	}

	cmd.AddCommand(status, trigger)
	return cmd
}
