package feed

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizingReader(t *testing.T) {
	in := "ok\ttab\nline\r\n\x00\x08\x0b\x0c\x0e\x1fend\xe9"
	out, err := io.ReadAll(NewSanitizingReader(strings.NewReader(in)))
	require.NoError(t, err)
	assert.Equal(t, "ok\ttab\nline\r\nend\xe9", string(out))
}

func TestSanitizingReaderSmallReads(t *testing.T) {
	in := strings.Repeat("a\x01b", 5000)
	out, err := io.ReadAll(iotest.OneByteReader(NewSanitizingReader(strings.NewReader(in))))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ab", 5000), string(out))
}

func TestFeedReaderFiltersUTF8(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a\x01b", "ab"},
		{"keep\t\n\r", "keep\t\n\r"},
		{"x\uFFFEy\uFFFF", "xy"},
		{"emoji \U0001F600", "emoji \U0001F600"},
		{"caf\xe9!", "caf\uFFFD!"},
		{"<?xml version=\"1.0\" encoding=\"UTF-8\"?><a>\uFFFF</a>", "<?xml version=\"1.0\" encoding=\"UTF-8\"?><a></a>"},
	}
	for _, tt := range tests {
		out, err := io.ReadAll(newFeedReader(strings.NewReader(tt.in)))
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(out), "input %q", tt.in)
	}
}

func TestFeedReaderLeavesOtherEncodingsToCharsetReader(t *testing.T) {
	in := "<?xml version='1.0' encoding='ISO-8859-1'?><a>caf\xe9\x01</a>"
	out, err := io.ReadAll(newFeedReader(strings.NewReader(in)))
	require.NoError(t, err)
	assert.Equal(t, "<?xml version='1.0' encoding='ISO-8859-1'?><a>caf\xe9</a>", string(out))
}

func TestDeclaredEncoding(t *testing.T) {
	assert.Equal(t, "", declaredEncoding([]byte("<rss/>")))
	assert.Equal(t, "", declaredEncoding([]byte(`<?xml version="1.0"?><rss/>`)))
	assert.Equal(t, "UTF-8", declaredEncoding([]byte("\xef\xbb\xbf<?xml version=\"1.0\" encoding=\"UTF-8\"?>")))
	assert.Equal(t, "windows-1252", declaredEncoding([]byte("\n<?xml version='1.0' encoding = 'windows-1252' ?>")))
	assert.True(t, isUTF8Label(""))
	assert.True(t, isUTF8Label("utf-8"))
	assert.False(t, isUTF8Label("ISO-8859-1"))
}
