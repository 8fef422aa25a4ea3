package feed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html/charset"
)

// Result is everything a Decoder produced from one feed document.
type Result struct {
	Issues   []Issue
	Failures []*FieldError
}

// Decoder tokenizes a feed document and drives a Parser with its events.
type Decoder struct {
	xd       *xml.Decoder
	logger   *slog.Logger
	fragment func(string, func(string))
}

type DecoderOption func(*Decoder)

// WithLogger sets the logger used for per-item diagnostics.
func WithLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithEntityFragments delivers every character that the feed escapes as an
// entity (<, >, &, " and ') as its own text fragment in addition to line
// breaks, the way an expat-backed SAX reader reports entity references.
// Escaped-HTML descriptions then keep their body after the lead-in fragment
// is dropped. Single-fragment fields such as title keep only their last
// fragment in this mode.
func WithEntityFragments() DecoderOption {
	return func(d *Decoder) {
		d.fragment = splitEntities
	}
}

func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	xd := xml.NewDecoder(newFeedReader(r))
	xd.Strict = false
	xd.AutoClose = xml.HTMLAutoClose
	xd.Entity = xml.HTMLEntity
	xd.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		decoded, err := charset.NewReaderLabel(label, input)
		if err != nil {
			return nil, err
		}
		return newRuneFilterReader(decoded), nil
	}

	d := &Decoder{
		xd:       xd,
		logger:   slog.New(slog.DiscardHandler),
		fragment: splitLines,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode parses the whole document. On a tokenizer failure the issues
// finalized before it are returned along with an error wrapping
// ErrMalformedFeed.
func (d *Decoder) Decode(ctx context.Context) (*Result, error) {
	res := &Result{Issues: []Issue{}}
	failures, err := d.Stream(ctx, func(is Issue) error {
		res.Issues = append(res.Issues, is)
		return nil
	})
	res.Failures = failures
	return res, err
}

// Stream parses the document and hands every issue to fn as soon as its
// item ends. An error from fn stops decoding and is returned as is.
func (d *Decoder) Stream(ctx context.Context, fn func(Issue) error) ([]*FieldError, error) {
	var handlerErr error
	parsed := 0
	p := NewParser(WithIssueFunc(func(is Issue) {
		parsed++
		d.logger.Debug("issue parsed", "key", is.Key, "comments", len(is.Comments), "attachments", len(is.Attachments))
		if handlerErr == nil {
			handlerErr = fn(is)
		}
	}))

	seen := 0
	for {
		if err := ctx.Err(); err != nil {
			return p.Failures(), err
		}

		tok, err := d.xd.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return p.Failures(), fmt.Errorf("%w: %v", ErrMalformedFeed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.StartElement(t.Name.Local, attributesOf(t))
		case xml.CharData:
			d.fragment(string(t), p.Text)
		case xml.EndElement:
			p.EndElement(t.Name.Local)
			if t.Name.Local == "item" {
				for _, f := range p.Failures()[seen:] {
					d.logger.Warn("item skipped", "index", f.Index, "key", f.Key, "field", f.Field, "error", f)
				}
				seen = len(p.Failures())
			}
		}

		if handlerErr != nil {
			return p.Failures(), handlerErr
		}
	}

	if p.InItem() {
		d.logger.Warn("feed ended inside an item; discarding it", "parsed", parsed)
	}
	return p.Failures(), nil
}

func attributesOf(el xml.StartElement) Attributes {
	attrs := make(Attributes, len(el.Attr))
	for _, a := range el.Attr {
		attrs[a.Name.Local] = a.Value
	}
	return attrs
}

// splitLines delivers text line by line, each line break being its own
// fragment.
func splitLines(text string, emit func(string)) {
	splitOn(text, "\n", emit)
}

func splitEntities(text string, emit func(string)) {
	splitOn(text, "\n<>&\"'", emit)
}

func splitOn(text, seps string, emit func(string)) {
	for text != "" {
		i := strings.IndexAny(text, seps)
		if i < 0 {
			emit(text)
			return
		}
		if i > 0 {
			emit(text[:i])
		}
		emit(text[i : i+1])
		text = text[i+1:]
	}
}
