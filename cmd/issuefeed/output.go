package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/satyaki-up/issuefeed/internal/feed"
	"github.com/satyaki-up/issuefeed/internal/issues"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printFeedIssue writes one parsed issue in the compact form used by parse.
func printFeedIssue(w io.Writer, is feed.Issue) {
	votes := "-"
	if is.Votes != nil {
		votes = strconv.Itoa(*is.Votes)
	}
	fmt.Fprintf(w, "%s\t%s\t%s\tvotes=%s\tcomments=%d\tattachments=%d\t%s\n",
		orDash(is.Key), orDash(is.Type), orDash(is.Status), votes,
		len(is.Comments), len(is.Attachments), is.Summary)
}

func printIssue(w io.Writer, is issues.Issue) {
	fmt.Fprintf(w, "key: %s\n", is.Key)
	fmt.Fprintf(w, "project: %s (%s)\n", is.Project, is.ProjectKey)
	fmt.Fprintf(w, "summary: %s\n", is.Summary)
	fmt.Fprintf(w, "type: %s\n", is.Type)
	fmt.Fprintf(w, "status: %s\n", is.Status)
	fmt.Fprintf(w, "state: %s\n", is.State)
	if is.Resolution != "" {
		fmt.Fprintf(w, "resolution: %s\n", is.Resolution)
	}
	if is.Assignee != "" {
		fmt.Fprintf(w, "assignee: %s (%s)\n", is.Assignee, is.AssigneeUsername)
	}
	if is.Reporter != "" {
		fmt.Fprintf(w, "reporter: %s (%s)\n", is.Reporter, is.ReporterUsername)
	}
	if is.Votes != nil {
		fmt.Fprintf(w, "votes: %d\n", *is.Votes)
	}
	if is.Link != "" {
		fmt.Fprintf(w, "link: %s\n", is.Link)
	}
	if is.UpdatedAt != nil {
		fmt.Fprintf(w, "updated: %s (%s)\n", is.UpdatedAt.Format(time.RFC3339), humanize.Time(*is.UpdatedAt))
	}
	fmt.Fprintf(w, "imported_at: %s\n", is.ImportedAt.Format(time.RFC3339))
	if is.Description != "" {
		fmt.Fprintf(w, "description: %s\n", is.Description)
	}
	for _, c := range is.Comments {
		fmt.Fprintf(w, "comment %s by %s: %s\n", c.ID, c.Author, strings.TrimSpace(c.Body))
	}
	for _, a := range is.Attachments {
		fmt.Fprintf(w, "attachment %s: %s (%s)\n", a.ID, a.Name, attachmentSize(a.Size))
	}
	for _, f := range is.CustomFields {
		fmt.Fprintf(w, "field %s: %s\n", f.Name, f.Value)
	}
}

func attachmentSize(raw string) string {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return orDash(raw)
	}
	return humanize.Bytes(n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
