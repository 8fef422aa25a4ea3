package issues

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/satyaki-up/issuefeed/internal/feed"
)

var projectKeyRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

const sqliteTimeLayout = "2006-01-02 15:04:05"

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeSkipped
)

var issueColumns = []string{
	"issue_key", "key_id", "title", "link", "description", "environment", "summary",
	"issue_type", "status", "state", "resolution", "security", "created", "updated", "updated_at",
	"version", "component", "votes", "project", "project_id", "project_key",
	"assignee", "assignee_username", "reporter", "reporter_username", "import_run_id",
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Import stores parsed feed issues under a new import run. Each issue is
// written in its own transaction; an issue without a key is counted as an
// error, and one whose updated timestamp is not newer than the stored copy
// is skipped. Database failures abort the import.
func (s *Service) Import(ctx context.Context, source string, list []feed.Issue) (*ImportRun, error) {
	run := &ImportRun{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO import_runs(id, source, started_at) VALUES (?, ?, ?)
	`, run.ID, source, run.StartedAt.Format(sqliteTimeLayout)); err != nil {
		return nil, fmt.Errorf("record import run: %w", err)
	}

	for _, is := range list {
		result, err := s.importIssue(ctx, run.ID, is)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				run.Stats.Errors++
				continue
			}
			return run, err
		}
		switch result {
		case outcomeCreated:
			run.Stats.Created++
		case outcomeUpdated:
			run.Stats.Updated++
		case outcomeSkipped:
			run.Stats.Skipped++
		}
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE import_runs SET created = ?, updated = ?, skipped = ?, errors = ? WHERE id = ?
	`, run.Stats.Created, run.Stats.Updated, run.Stats.Skipped, run.Stats.Errors, run.ID); err != nil {
		return run, fmt.Errorf("record import stats: %w", err)
	}
	return run, nil
}

func (s *Service) importIssue(ctx context.Context, runID string, is feed.Issue) (outcome, error) {
	key := strings.TrimSpace(is.Key)
	if key == "" {
		return 0, fmt.Errorf("%w: issue %q has no key", ErrInvalidInput, is.Title)
	}
	is.Key = key

	var updatedAt *time.Time
	if t, err := feed.ParseTimestamp(is.Updated); err == nil {
		u := t.UTC()
		updatedAt = &u
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result := outcomeCreated
	var stored sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT updated_at FROM issues WHERE issue_key = ?`, key).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return 0, err
	default:
		result = outcomeUpdated
		if stored.Valid && updatedAt != nil {
			prev, err := parseSQLiteTime(stored.String)
			if err == nil && !updatedAt.After(prev) {
				return outcomeSkipped, nil
			}
		}
	}

	updates := make([]string, 0, len(issueColumns))
	for _, c := range issueColumns[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	updates = append(updates, "imported_at = CURRENT_TIMESTAMP")
	query := fmt.Sprintf(`
		INSERT INTO issues(%s) VALUES (%s)
		ON CONFLICT(issue_key) DO UPDATE SET %s
	`, strings.Join(issueColumns, ", "), placeholders(len(issueColumns)), strings.Join(updates, ", "))
	if _, err := tx.ExecContext(ctx, query, issueValues(is, updatedAt, runID)...); err != nil {
		return 0, fmt.Errorf("store issue %s: %w", key, err)
	}

	if err := replaceChildrenTx(ctx, tx, is); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return result, nil
}

func issueValues(is feed.Issue, updatedAt *time.Time, runID string) []any {
	var votes any
	if is.Votes != nil {
		votes = *is.Votes
	}
	var updated any
	if updatedAt != nil {
		updated = updatedAt.Format(sqliteTimeLayout)
	}
	return []any{
		is.Key, is.KeyID, is.Title, is.Link, is.Description, is.Environment, is.Summary,
		is.Type, is.Status, string(NormalizeStatus(is.Status, is.Resolution)), is.Resolution, is.Security,
		is.Created, is.Updated, updated,
		is.Version, is.Component, votes, is.Project, is.ProjectID, is.ProjectKey,
		is.Assignee, is.AssigneeUsername, is.Reporter, is.ReporterUsername, runID,
	}
}

func replaceChildrenTx(ctx context.Context, tx *sql.Tx, is feed.Issue) error {
	for _, table := range []string{"comments", "attachments", "custom_fields"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE issue_key = ?", table), is.Key); err != nil {
			return fmt.Errorf("clear %s for %s: %w", table, is.Key, err)
		}
	}
	for i, c := range is.Comments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO comments(issue_key, position, comment_id, author, created, body)
			VALUES (?, ?, ?, ?, ?, ?)
		`, is.Key, i, c.ID, c.Author, c.Created, c.Body); err != nil {
			return fmt.Errorf("store comment for %s: %w", is.Key, err)
		}
	}
	for i, a := range is.Attachments {
		var size any
		if n, err := strconv.ParseInt(strings.TrimSpace(a.Size), 10, 64); err == nil {
			size = n
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attachments(issue_key, position, attachment_id, name, size, author, created)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, is.Key, i, a.ID, a.Name, size, a.Author, a.Created); err != nil {
			return fmt.Errorf("store attachment for %s: %w", is.Key, err)
		}
	}
	for i, f := range is.CustomFields {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO custom_fields(issue_key, position, field_id, field_key, name, value)
			VALUES (?, ?, ?, ?, ?, ?)
		`, is.Key, i, f.ID, f.Key, f.Name, f.Value); err != nil {
			return fmt.Errorf("store custom field for %s: %w", is.Key, err)
		}
	}
	return nil
}

func (s *Service) GetIssue(ctx context.Context, key string) (*Issue, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrInvalidInput)
	}
	row := s.db.QueryRowContext(ctx, issueSelect+` WHERE issue_key = ?`, key)
	issue, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: issue %q not found", ErrNotFound, key)
		}
		return nil, err
	}
	if err := loadChildren(ctx, s.db, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// ListIssues returns stored issues ordered by project key and key number.
func (s *Service) ListIssues(ctx context.Context, projectKey string, state *State) ([]Issue, error) {
	conds := []string{"1=1"}
	args := make([]any, 0, 2)
	if p := strings.ToUpper(strings.TrimSpace(projectKey)); p != "" {
		if !projectKeyRe.MatchString(p) {
			return nil, fmt.Errorf("%w: invalid project key %q", ErrInvalidInput, projectKey)
		}
		conds = append(conds, "project_key = ?")
		args = append(args, p)
	}
	if state != nil {
		if !IsValidState(*state) {
			return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidInput, *state)
		}
		conds = append(conds, "state = ?")
		args = append(args, string(*state))
	}
	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY project_key ASC,
			CAST(substr(issue_key, instr(issue_key, '-') + 1) AS INTEGER) ASC,
			issue_key ASC
	`, issueSelect, strings.Join(conds, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, issue)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if err := loadChildren(ctx, s.db, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LastModification returns the newest updated timestamp stored for a
// project, so a caller can ask the tracker only for newer issues.
func (s *Service) LastModification(ctx context.Context, projectKey string) (time.Time, bool, error) {
	p := strings.ToUpper(strings.TrimSpace(projectKey))
	if !projectKeyRe.MatchString(p) {
		return time.Time{}, false, fmt.Errorf("%w: invalid project key %q", ErrInvalidInput, projectKey)
	}
	var latest sql.NullString
	if err := s.db.QueryRowContext(ctx, `
		SELECT MAX(updated_at) FROM issues WHERE project_key = ?
	`, p).Scan(&latest); err != nil {
		return time.Time{}, false, err
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	t, err := parseSQLiteTime(latest.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

const issueSelect = `
	SELECT issue_key, key_id, title, link, description, environment, summary,
		issue_type, status, state, resolution, security, created, updated, updated_at,
		version, component, votes, project, project_id, project_key,
		assignee, assignee_username, reporter, reporter_username, import_run_id, imported_at
	FROM issues`

type scanner interface {
	Scan(dest ...any) error
}

func scanIssue(row scanner) (Issue, error) {
	var is Issue
	var updatedAt sql.NullString
	var votes sql.NullInt64
	var runID sql.NullString
	var imported string
	if err := row.Scan(
		&is.Key,
		&is.KeyID,
		&is.Title,
		&is.Link,
		&is.Description,
		&is.Environment,
		&is.Summary,
		&is.Type,
		&is.Status,
		&is.State,
		&is.Resolution,
		&is.Security,
		&is.Created,
		&is.Updated,
		&updatedAt,
		&is.Version,
		&is.Component,
		&votes,
		&is.Project,
		&is.ProjectID,
		&is.ProjectKey,
		&is.Assignee,
		&is.AssigneeUsername,
		&is.Reporter,
		&is.ReporterUsername,
		&runID,
		&imported,
	); err != nil {
		return Issue{}, err
	}

	if votes.Valid {
		v := int(votes.Int64)
		is.Votes = &v
	}
	if updatedAt.Valid {
		t, err := parseSQLiteTime(updatedAt.String)
		if err != nil {
			return Issue{}, err
		}
		is.UpdatedAt = &t
	}
	is.ImportRunID = runID.String
	importedAt, err := parseSQLiteTime(imported)
	if err != nil {
		return Issue{}, err
	}
	is.ImportedAt = importedAt
	return is, nil
}

func loadChildren(ctx context.Context, q queryer, is *Issue) error {
	is.Comments = []feed.Comment{}
	is.Attachments = []feed.Attachment{}
	is.CustomFields = []feed.CustomField{}

	rows, err := q.QueryContext(ctx, `
		SELECT comment_id, author, created, body FROM comments WHERE issue_key = ? ORDER BY position
	`, is.Key)
	if err != nil {
		return err
	}
	for rows.Next() {
		var c feed.Comment
		if err := rows.Scan(&c.ID, &c.Author, &c.Created, &c.Body); err != nil {
			rows.Close()
			return err
		}
		is.Comments = append(is.Comments, c)
	}
	if err := closeRows(rows); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx, `
		SELECT attachment_id, name, size, author, created FROM attachments WHERE issue_key = ? ORDER BY position
	`, is.Key)
	if err != nil {
		return err
	}
	for rows.Next() {
		var a feed.Attachment
		var size sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Name, &size, &a.Author, &a.Created); err != nil {
			rows.Close()
			return err
		}
		if size.Valid {
			a.Size = strconv.FormatInt(size.Int64, 10)
		}
		is.Attachments = append(is.Attachments, a)
	}
	if err := closeRows(rows); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx, `
		SELECT field_id, field_key, name, value FROM custom_fields WHERE issue_key = ? ORDER BY position
	`, is.Key)
	if err != nil {
		return err
	}
	for rows.Next() {
		var f feed.CustomField
		if err := rows.Scan(&f.ID, &f.Key, &f.Name, &f.Value); err != nil {
			rows.Close()
			return err
		}
		is.CustomFields = append(is.CustomFields, f)
	}
	return closeRows(rows)
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func parseSQLiteTime(value string) (time.Time, error) {
	t, err := time.ParseInLocation(sqliteTimeLayout, value, time.UTC)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
