package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satyaki-up/issuefeed/internal/feed"
	"github.com/satyaki-up/issuefeed/internal/issues"
)

const cliFeed = `<rss><channel>
<item>
<key id="1">WID-1</key>
<project id="10" key="WID">Widget</project>
<summary>Crash on save</summary>
<status>Resolved</status>
<updated>Tue, 4 Aug 2020 09:30:00 +0000</updated>
<votes>2</votes>
</item>
<item>
<key id="2">WID-2</key>
<votes>many</votes>
</item>
</channel></rss>
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dbPath, jsonOutput, logLevel = "", false, "error"
	parseImport, parseWorkers, parseEntityFragments = false, -1, false
	listProject, listState, lastUpdatedProject = "", "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseImportAndQuery(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("feed.xml", []byte(cliFeed), 0o644))
	dbFile := filepath.Join(t.TempDir(), "issues.db")

	out, err := execute(t, "--db", dbFile, "parse", "--import", "feed.xml")
	require.NoError(t, err)
	assert.Contains(t, out, "WID-1")
	assert.NotContains(t, out, "WID-2")

	out, err = execute(t, "--db", dbFile, "--json", "show", "WID-1")
	require.NoError(t, err)
	var got issues.Issue
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, issues.StateDone, got.State)
	require.NotNil(t, got.Votes)
	assert.Equal(t, 2, *got.Votes)

	out, err = execute(t, "--db", dbFile, "list", "--project", "wid", "--state", "done")
	require.NoError(t, err)
	assert.Contains(t, out, "WID-1\tdone")

	out, err = execute(t, "--db", dbFile, "last-updated", "--project", "WID")
	require.NoError(t, err)
	assert.Contains(t, out, "2020-08-04T09:30:00Z")

	_, err = execute(t, "--db", dbFile, "show", "WID-9")
	assert.ErrorIs(t, err, issues.ErrNotFound)
}

func TestParseJSONReportsFailures(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("feed.xml", []byte(cliFeed), 0o644))

	out, err := execute(t, "--json", "parse", "feed.xml")
	require.NoError(t, err)

	var reports []fileReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Len(t, reports[0].Issues, 1)
	require.Len(t, reports[0].Failures, 1)
	assert.Equal(t, "WID-2", reports[0].Failures[0].Key)
	assert.Equal(t, "many", reports[0].Failures[0].Value)
}

func TestParseMalformedFeed(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("good.xml", []byte(cliFeed), 0o644))
	require.NoError(t, os.WriteFile("bad.xml", []byte("<rss><channel><item><key>X-1</key></item><item>"), 0o644))

	out, err := execute(t, "parse", "good.xml", "bad.xml")
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrMalformedFeed)
	assert.Contains(t, out, "WID-1")
	assert.Contains(t, out, "X-1")
}

func TestRenderErrorExitCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", issues.ErrInvalidInput), 2},
		{fmt.Errorf("wrap: %w", issues.ErrNotFound), 3},
		{errors.Join(fmt.Errorf("a.xml: %w", feed.ErrMalformedFeed)), 4},
		{errors.New("boom"), 1},
	}
	for _, tt := range tests {
		if got := renderError(tt.err); got != tt.want {
			t.Errorf("renderError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestAttachmentSize(t *testing.T) {
	assert.Equal(t, "2.0 kB", attachmentSize("2048"))
	assert.Equal(t, "-", attachmentSize(""))
	assert.Equal(t, "big", attachmentSize("big"))
}
