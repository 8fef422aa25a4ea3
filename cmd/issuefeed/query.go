package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/satyaki-up/issuefeed/internal/issues"
)

var (
	listProject string
	listState   string

	lastUpdatedProject string
)

var showCmd = &cobra.Command{
	Use:   "show KEY",
	Short: "Show one imported issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, database, err := openService(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		issue, err := svc.GetIssue(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), issue)
		}
		printIssue(cmd.OutOrStdout(), *issue)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported issues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		svc, database, err := openService(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		var state *issues.State
		if s := strings.TrimSpace(listState); s != "" {
			st := issues.State(s)
			state = &st
		}
		list, err := svc.ListIssues(ctx, projectOrDefault(listProject), state)
		if err != nil {
			return err
		}
		if jsonOutput {
			if list == nil {
				list = []issues.Issue{}
			}
			return printJSON(cmd.OutOrStdout(), list)
		}
		out := cmd.OutOrStdout()
		for _, is := range list {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", is.Key, is.State, orDash(is.Type), is.Summary)
		}
		return nil
	},
}

var lastUpdatedCmd = &cobra.Command{
	Use:   "last-updated",
	Short: "Print the newest update time stored for a project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		svc, database, err := openService(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		project := projectOrDefault(lastUpdatedProject)
		t, ok, err := svc.LastModification(ctx, project)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: no issues imported for project %q", issues.ErrNotFound, project)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"project": strings.ToUpper(project), "updated_at": t})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", t.Format(time.RFC3339), humanize.Time(t))
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listProject, "project", "", "Project key (defaults to the configured project)")
	listCmd.Flags().StringVar(&listState, "state", "", "State filter (todo, in_progress, blocked, done, canceled)")
	lastUpdatedCmd.Flags().StringVar(&lastUpdatedProject, "project", "", "Project key (defaults to the configured project)")
}
