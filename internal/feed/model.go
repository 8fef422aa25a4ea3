// Package feed turns a tracker's XML issue export into typed records.
//
// The Parser is an event-driven state machine fed with element-start,
// text and element-end events; the Decoder drives it from an io.Reader.
package feed

// Issue is one <item> of the feed. Timestamps are kept in the raw upstream
// format; see ParseTimestamp.
type Issue struct {
	Title       string `json:"title,omitempty"`
	Link        string `json:"link,omitempty"`
	Description string `json:"description,omitempty"`
	Environment string `json:"environment,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Type        string `json:"type,omitempty"`
	Status      string `json:"status,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	Security    string `json:"security,omitempty"`
	Created     string `json:"created,omitempty"`
	Updated     string `json:"updated,omitempty"`
	Version     string `json:"version,omitempty"`
	Component   string `json:"component,omitempty"`
	// Votes is nil when the item carried no votes element.
	Votes *int `json:"votes,omitempty"`

	Project    string `json:"project,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
	ProjectKey string `json:"project_key,omitempty"`
	Key        string `json:"key,omitempty"`
	KeyID      string `json:"key_id,omitempty"`

	Assignee         string `json:"assignee,omitempty"`
	AssigneeUsername string `json:"assignee_username,omitempty"`
	Reporter         string `json:"reporter,omitempty"`
	ReporterUsername string `json:"reporter_username,omitempty"`

	Comments     []Comment     `json:"comments"`
	Attachments  []Attachment  `json:"attachments"`
	CustomFields []CustomField `json:"custom_fields"`
}

type Comment struct {
	ID      string `json:"id,omitempty"`
	Author  string `json:"author,omitempty"`
	Created string `json:"created,omitempty"`
	Body    string `json:"body"`
}

// Attachment is built entirely from the element's attributes.
type Attachment struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Size    string `json:"size,omitempty"`
	Author  string `json:"author,omitempty"`
	Created string `json:"created,omitempty"`
}

type CustomField struct {
	ID    string `json:"id,omitempty"`
	Key   string `json:"key,omitempty"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

// Attributes maps an element's attribute local names to their values.
type Attributes map[string]string

// Get returns the attribute value, or "" when absent. An absent attribute
// leaves its field unset.
func (a Attributes) Get(key string) string {
	return a[key]
}
