package feed

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// NewSanitizingReader drops C0 control bytes that XML forbids (everything
// below 0x20 except tab, newline and carriage return). It works on raw
// bytes, so it is safe for UTF-8 and single-byte encodings alike.
func NewSanitizingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, controlByteFilter{})
}

type controlByteFilter struct {
	transform.NopResetter
}

func (controlByteFilter) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		b := src[nSrc]
		if isIllegalControl(b) {
			nSrc++
			continue
		}
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst] = b
		nDst++
		nSrc++
	}
	return nDst, nSrc, nil
}

func isIllegalControl(b byte) bool {
	return b < 0x20 && b != '\t' && b != '\n' && b != '\r'
}

var invalidXMLChars = runes.Predicate(func(r rune) bool {
	return !isXMLChar(r)
})

func isXMLChar(r rune) bool {
	switch {
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r == 0x9 || r == 0xA || r == 0xD:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

func xmlCharFilter() transform.Transformer {
	return runes.Remove(invalidXMLChars)
}

func newRuneFilterReader(r io.Reader) io.Reader {
	return transform.NewReader(r, xmlCharFilter())
}

// declarationPeek bounds how far into a feed the XML declaration is looked for.
const declarationPeek = 512

var encodingDeclRe = regexp.MustCompile(`^\s*<\?xml\s[^>]*?encoding\s*=\s*["']([A-Za-z0-9._:\-]+)["']`)

// newFeedReader prepares raw feed bytes for the tokenizer. Feeds that are
// UTF-8, declared or by default, are filtered down to XML characters here
// and ill-formed bytes become U+FFFD. Other encodings only lose C0 control
// bytes here; their decoded runes are filtered behind the CharsetReader.
func newFeedReader(r io.Reader) io.Reader {
	br := bufio.NewReaderSize(r, declarationPeek)
	head, _ := br.Peek(declarationPeek)
	if !isUTF8Label(declaredEncoding(head)) {
		return NewSanitizingReader(br)
	}
	return transform.NewReader(br, transform.Chain(
		controlByteFilter{},
		runes.ReplaceIllFormed(),
		xmlCharFilter(),
	))
}

// declaredEncoding returns the encoding named in the XML declaration at the
// start of head, or "" when there is none.
func declaredEncoding(head []byte) string {
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	m := encodingDeclRe.FindSubmatch(head)
	if m == nil {
		return ""
	}
	return string(m[1])
}

func isUTF8Label(label string) bool {
	return label == "" || strings.EqualFold(label, "utf-8")
}
