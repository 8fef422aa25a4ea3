package feed

import (
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// target is the single field currently receiving text fragments.
type target int

const (
	targetNone target = iota
	targetTitle
	targetLink
	targetDescription
	targetEnvironment
	targetSummary
	targetType
	targetStatus
	targetResolution
	targetSecurity
	targetCreated
	targetUpdated
	targetVersion
	targetComponent
	targetVotes
	targetProject
	targetKey
	targetAssignee
	targetReporter
	targetComment
	targetCustomFieldName
	targetCustomFieldValue
)

var targets = map[string]target{
	"title":             targetTitle,
	"link":              targetLink,
	"description":       targetDescription,
	"environment":       targetEnvironment,
	"summary":           targetSummary,
	"type":              targetType,
	"status":            targetStatus,
	"resolution":        targetResolution,
	"security":          targetSecurity,
	"created":           targetCreated,
	"updated":           targetUpdated,
	"version":           targetVersion,
	"component":         targetComponent,
	"votes":             targetVotes,
	"project":           targetProject,
	"key":               targetKey,
	"assignee":          targetAssignee,
	"reporter":          targetReporter,
	"comment":           targetComment,
	"customfieldname":   targetCustomFieldName,
	"customfieldvalues": targetCustomFieldValue,
}

// item accumulates one <item> between its start and end events.
type item struct {
	index int
	issue Issue

	// descriptionLead is set once the leading description fragment has
	// been dropped.
	descriptionLead bool
	err             *FieldError

	comment     *Comment
	attachment  *Attachment
	customField *CustomField
}

func newItem(index int) *item {
	return &item{
		index: index,
		issue: Issue{
			Comments:     []Comment{},
			Attachments:  []Attachment{},
			CustomFields: []CustomField{},
		},
	}
}

// Parser assembles Issues from a stream of element and text events.
// A Parser is not safe for concurrent use; parse each document with its
// own Parser.
type Parser struct {
	active   target
	cur      *item
	items    int
	issues   []Issue
	failures []*FieldError
	onIssue  func(Issue)
}

type Option func(*Parser)

// WithIssueFunc registers fn to receive every Issue as soon as its item ends.
func WithIssueFunc(fn func(Issue)) Option {
	return func(p *Parser) {
		p.onIssue = fn
	}
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StartElement handles an element-start event. Elements outside an item,
// and names the feed vocabulary does not use, are ignored.
func (p *Parser) StartElement(name string, attrs Attributes) {
	if name == "item" {
		p.cur = newItem(p.items)
		p.items++
		p.active = targetNone
		return
	}
	it := p.cur
	if it == nil {
		return
	}

	switch name {
	case "link":
		it.issue.Link = ""
	case "created":
		it.issue.Created = ""
	case "updated":
		it.issue.Updated = ""
	case "project":
		it.issue.ProjectID = attrs.Get("id")
		it.issue.ProjectKey = attrs.Get("key")
	case "key":
		it.issue.KeyID = attrs.Get("id")
	case "assignee":
		it.issue.AssigneeUsername = attrs.Get("username")
	case "reporter":
		it.issue.ReporterUsername = attrs.Get("username")
	case "comment":
		it.comment = &Comment{
			ID:      attrs.Get("id"),
			Author:  attrs.Get("author"),
			Created: attrs.Get("created"),
		}
	case "attachment":
		it.attachment = &Attachment{
			ID:      attrs.Get("id"),
			Name:    attrs.Get("name"),
			Size:    attrs.Get("size"),
			Author:  attrs.Get("author"),
			Created: attrs.Get("created"),
		}
	case "customfield":
		it.customField = &CustomField{
			ID:  attrs.Get("id"),
			Key: attrs.Get("key"),
		}
	}

	if t, ok := targets[name]; ok {
		p.active = t
	}
}

// Text handles a character-data fragment, routing it to the active target.
func (p *Parser) Text(fragment string) {
	it := p.cur
	if it == nil || p.active == targetNone {
		return
	}
	is := &it.issue

	switch p.active {
	case targetTitle:
		is.Title = fragment
	case targetLink:
		is.Link += fragment
	case targetDescription:
		// The feed emits a lead-in fragment before the description body.
		if !it.descriptionLead {
			it.descriptionLead = true
			return
		}
		is.Description += strings.TrimSpace(fragment)
	case targetEnvironment:
		is.Environment += fragment
	case targetSummary:
		is.Summary = fragment
	case targetType:
		is.Type = fragment
	case targetStatus:
		is.Status = fragment
	case targetResolution:
		is.Resolution = fragment
	case targetSecurity:
		is.Security = fragment
	case targetCreated:
		is.Created += fragment
	case targetUpdated:
		is.Updated += fragment
	case targetVersion:
		is.Version = fragment
	case targetComponent:
		is.Component = fragment
	case targetVotes:
		it.setVotes(fragment)
	case targetProject:
		is.Project = fragment
	case targetKey:
		is.Key += fragment
	case targetAssignee:
		is.Assignee = fragment
	case targetReporter:
		is.Reporter = fragment
	case targetComment:
		if it.comment != nil {
			it.comment.Body += fragment
		}
	case targetCustomFieldName:
		if it.customField != nil {
			it.customField.Name = fragment
		}
	case targetCustomFieldValue:
		if it.customField == nil {
			return
		}
		if v := strings.TrimLeftFunc(fragment, unicode.IsSpace); v != "" {
			it.customField.Value = v
		}
	}
}

func (it *item) setVotes(fragment string) {
	s := strings.TrimSpace(fragment)
	if s == "" {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		if it.err == nil {
			it.err = &FieldError{Index: it.index, Field: "votes", Value: fragment, Err: ErrInvalidVotes}
		}
		return
	}
	it.issue.Votes = &n
}

// EndElement handles an element-end event. Unmatched ends are ignored.
func (p *Parser) EndElement(name string) {
	it := p.cur
	if it == nil {
		return
	}

	switch name {
	case "item":
		p.finish()
		return
	case "comment":
		if it.comment != nil {
			it.issue.Comments = append(it.issue.Comments, *it.comment)
			it.comment = nil
		}
	case "attachment":
		if it.attachment != nil {
			it.issue.Attachments = append(it.issue.Attachments, *it.attachment)
			it.attachment = nil
		}
	case "customfield":
		if it.customField != nil {
			it.issue.CustomFields = append(it.issue.CustomFields, *it.customField)
			it.customField = nil
		}
	}

	if t, ok := targets[name]; ok && p.active == t {
		p.active = targetNone
	}
}

func (p *Parser) finish() {
	it := p.cur
	p.cur = nil
	p.active = targetNone

	if it.err != nil {
		it.err.Key = it.issue.Key
		p.failures = append(p.failures, it.err)
		return
	}

	issue := it.issue
	issue.Comments = slices.Clone(issue.Comments)
	issue.Attachments = slices.Clone(issue.Attachments)
	issue.CustomFields = slices.Clone(issue.CustomFields)
	p.issues = append(p.issues, issue)
	if p.onIssue != nil {
		p.onIssue(issue)
	}
}

// InItem reports whether an item has started but not yet ended.
func (p *Parser) InItem() bool {
	return p.cur != nil
}

// Issues returns the issues finalized so far, in document order.
func (p *Parser) Issues() []Issue {
	return slices.Clone(p.issues)
}

// Failures returns the items dropped because of field-format errors.
func (p *Parser) Failures() []*FieldError {
	return slices.Clone(p.failures)
}
