package content_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedsync/internal/content"
	"feedsync/internal/infra/markdown"
)

// passthrough returns its input unchanged.
type passthrough struct{}

func (passthrough) Translate(html string) (string, error) { return html, nil }

type failingTranslator struct{ err error }

func (f failingTranslator) Translate(string) (string, error) { return "", f.err }

func TestAppendSourceURL(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		url      string
		want     string
	}{
		{
			name:     "adds link after trimming trailing whitespace",
			markdown: "Some text  \n\n",
			url:      "https://x.test/p1",
			want:     "Some text\n\n[Continue Reading…](https://x.test/p1)",
		},
		{
			name:     "url already present",
			markdown: "See [here][1]\n\n[1]: https://x.test/p1",
			url:      "https://x.test/p1",
			want:     "See [here][1]\n\n[1]: https://x.test/p1",
		},
		{
			name:     "no url",
			markdown: "text\n",
			url:      "",
			want:     "text\n",
		},
		{
			name:     "url with regexp metacharacters is matched literally",
			markdown: "https://x.test/p?id=1",
			url:      "https://x.test/p?id=1",
			want:     "https://x.test/p?id=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, content.AppendSourceURL(tt.markdown, tt.url))
		})
	}
}

func TestAppendGUID(t *testing.T) {
	got := content.AppendGUID("body\n\n", `tag:x.test,2024:"quoted">`)
	assert.Equal(t, "body\n\n<!-- GUID: \"tag:x.test,2024:quoted\" -->", got)
}

func TestNormalize_Passthrough(t *testing.T) {
	n := content.NewNormalizer(passthrough{})

	got, err := n.Normalize("Hello world", "https://x.test/p2", "guid-2")

	require.NoError(t, err)
	assert.Equal(t, "Hello world\n\n[Continue Reading…](https://x.test/p2)\n\n<!-- GUID: \"guid-2\" -->", got)
}

func TestNormalize_TranslatorError(t *testing.T) {
	wantErr := errors.New("bad html")
	n := content.NewNormalizer(failingTranslator{err: wantErr})

	_, err := n.Normalize("<p>", "", "g")

	assert.ErrorIs(t, err, wantErr)
}

func TestNormalize_ReferenceLinks(t *testing.T) {
	n := content.NewNormalizer(markdown.NewTranslator())

	got, err := n.Normalize(
		"<p>Hi <a href='https://x.test/p1'>there</a></p>",
		"https://x.test/p1",
		"abc",
	)

	require.NoError(t, err)
	assert.Contains(t, got, "Hi [there][1]")
	assert.Contains(t, got, "\n[1]: https://x.test/p1")
	assert.NotContains(t, got, "Continue Reading")
	assert.True(t, strings.HasSuffix(got, `<!-- GUID: "abc" -->`), "got %q", got)
}

func TestMarkerGUID(t *testing.T) {
	tests := []struct {
		guid   string
		want   string
		wantOK bool
	}{
		{"urn:post:1", "urn:post:1", true},
		{`tag:x,2026:"p1"`, "tag:x,2026:p1", true},
		{"a>b", "ab", true},
		{`">"`, "", false},
		{"  ", "  ", false},
		{"line\nbreak", "line\nbreak", false},
	}
	for _, tt := range tests {
		got, ok := content.MarkerGUID(tt.guid)
		assert.Equal(t, tt.want, got, tt.guid)
		assert.Equal(t, tt.wantOK, ok, tt.guid)
		if !ok {
			continue
		}
		found, count := content.FindGUID(content.AppendGUID("body", tt.guid))
		assert.Equal(t, 1, count, tt.guid)
		assert.Equal(t, got, found, tt.guid)
	}
}

func TestFindGUID(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantGUID  string
		wantCount int
	}{
		{
			name:      "single marker",
			body:      "text\n\n<!-- GUID: \"abc\" -->",
			wantGUID:  "abc",
			wantCount: 1,
		},
		{
			name:      "no marker",
			body:      "just a post",
			wantCount: 0,
		},
		{
			name:      "marker not at line start",
			body:      "text <!-- GUID: \"abc\" -->",
			wantCount: 0,
		},
		{
			name:      "lowercase tag is not a marker",
			body:      "<!-- guid: \"abc\" -->",
			wantCount: 0,
		},
		{
			name:      "unterminated marker",
			body:      "<!-- GUID: \"abc",
			wantCount: 0,
		},
		{
			name:      "empty guid",
			body:      "<!-- GUID: \"\" -->",
			wantCount: 0,
		},
		{
			name:      "multiple markers returns first",
			body:      "<!-- GUID: \"first\" -->\nmore\n<!-- GUID: \"second\" -->",
			wantGUID:  "first",
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guid, count := content.FindGUID(tt.body)
			assert.Equal(t, tt.wantGUID, guid)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestProvenanceRoundTrip(t *testing.T) {
	guids := []string{
		"abc",
		`"quoted"`,
		"a>b>c",
		`https://x.test/?p=1&q="2">`,
		"tag:example.org,2024:/posts/1",
		`mixed "quotes" and >angles<`,
	}

	n := content.NewNormalizer(passthrough{})
	for _, guid := range guids {
		t.Run(guid, func(t *testing.T) {
			body, err := n.Normalize("<p>x</p>", "", guid)
			require.NoError(t, err)

			got, count := content.FindGUID(body)

			want := strings.NewReplacer(`"`, "", ">", "").Replace(guid)
			assert.Equal(t, 1, count)
			assert.Equal(t, want, got)
		})
	}
}

func TestPlainTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Plain title", "Plain title"},
		{"  padded  ", "padded"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"<em>Breaking</em>:   news", "Breaking: news"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, content.PlainTitle(tt.in), "PlainTitle(%q)", tt.in)
	}
}
