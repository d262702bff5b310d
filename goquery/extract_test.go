package goquery_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("extracts title, heading tree, text and references", func(t *testing.T) {
		t.Parallel()

		html := `<!DOCTYPE html>
<html>
<head><title>  Glaucoma  </title><style>body { color: red }</style></head>
<body>
<h1>Glaucoma</h1>
<p>Raised eye pressure.</p>
<h2>Diagnosis</h2>
<h3>Tonometry</h3>
<h2>Treatment</h2>
<script>var x = 1;</script>
<a href="/wiki/Cataract">Cataract</a>
<a href="https://example.com/docs/guide.pdf">Patient guide</a>
</body>
</html>`

		ext, err := goquery.NewExtractor().Extract(html, "https://example.com/wiki/Glaucoma")

		require.NoError(t, err)
		assert.Equal(t, "Glaucoma", ext.Title)

		require.Len(t, ext.Headings, 4)
		assert.Equal(t, 1, ext.Headings[0].Level)
		assert.Equal(t, "Diagnosis", ext.Headings[1].Text)
		assert.Equal(t, "<h2>Diagnosis</h2>", ext.Headings[1].HTML)
		assert.Same(t, ext.Headings[0], ext.Headings[1].Parent)
		assert.Same(t, ext.Headings[1], ext.Headings[2].Parent)
		assert.Same(t, ext.Headings[0], ext.Headings[3].Parent)
		require.Len(t, ext.Roots(), 1)

		assert.Equal(t, "Glaucoma Raised eye pressure. Diagnosis Tonometry Treatment Cataract Patient guide", ext.Text)
		assert.NotContains(t, ext.Text, "var x")

		require.Len(t, ext.Links, 1)
		assert.Equal(t, "https://example.com/wiki/Cataract", ext.Links[0].URL)
		assert.Equal(t, "/wiki/Cataract", ext.Links[0].Href)
		assert.Equal(t, "Cataract", ext.Links[0].Title)

		require.Len(t, ext.Files, 1)
		assert.Equal(t, "https://example.com/docs/guide.pdf", ext.Files[0].URL)
		assert.Equal(t, "Patient guide", ext.Files[0].Title)

		assert.Equal(t, goquery.Checksum(html), ext.Checksum)
	})

	t.Run("heading positions follow document order", func(t *testing.T) {
		t.Parallel()

		html := `<body><h2>A</h2><h1>B</h1><h2>C</h2></body>`

		ext, err := goquery.NewExtractor().Extract(html, "https://example.com/")

		require.NoError(t, err)
		require.Len(t, ext.Headings, 3)
		for i, h := range ext.Headings {
			assert.Equal(t, i, h.Position)
		}
		assert.Len(t, ext.Roots(), 2)
		assert.Same(t, ext.Headings[1], ext.Headings[2].Parent)
	})

	t.Run("skips headings without visible text", func(t *testing.T) {
		t.Parallel()

		html := `<body><h1>  </h1><h2><span>Visible</span></h2></body>`

		ext, err := goquery.NewExtractor().Extract(html, "https://example.com/")

		require.NoError(t, err)
		require.Len(t, ext.Headings, 1)
		assert.Equal(t, "Visible", ext.Headings[0].Text)
		assert.Equal(t, 0, ext.Headings[0].Position)
	})

	t.Run("equal heading markup has equal checksums", func(t *testing.T) {
		t.Parallel()

		html := `<body><h2>Same</h2><h2>Same</h2><h2>Other</h2></body>`

		ext, err := goquery.NewExtractor().Extract(html, "https://example.com/")

		require.NoError(t, err)
		require.Len(t, ext.Headings, 3)
		assert.Equal(t, ext.Headings[0].Checksum, ext.Headings[1].Checksum)
		assert.NotEqual(t, ext.Headings[0].Checksum, ext.Headings[2].Checksum)
	})

	t.Run("skips non-http and fragment-only links", func(t *testing.T) {
		t.Parallel()

		html := `<body>
<a href="javascript:void(0)">JS</a>
<a href="mailto:a@example.com">Mail</a>
<a href="tel:123">Call</a>
<a href="data:text/plain,hi">Data</a>
<a href="#top">Top</a>
<a href="">Empty</a>
<a href="ftp://example.com/file">FTP</a>
<a href="/kept#section">Kept</a>
</body>`

		ext, err := goquery.NewExtractor().Extract(html, "https://example.com/page")

		require.NoError(t, err)
		require.Len(t, ext.Links, 1)
		assert.Equal(t, "https://example.com/kept", ext.Links[0].URL)
		assert.Empty(t, ext.Files)
	})

	t.Run("keeps links to other hosts", func(t *testing.T) {
		t.Parallel()

		html := `<body><a href="https://other.com/x">Other</a></body>`

		ext, err := goquery.NewExtractor().Extract(html, "https://example.com/")

		require.NoError(t, err)
		require.Len(t, ext.Links, 1)
		assert.Equal(t, "https://other.com/x", ext.Links[0].URL)
	})

	t.Run("resolves against the base element", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><base href="/docs/"></head><body><a href="intro">Intro</a></body></html>`

		ext, err := goquery.NewExtractor().Extract(html, "https://example.com/a/b")

		require.NoError(t, err)
		require.Len(t, ext.Links, 1)
		assert.Equal(t, "https://example.com/docs/intro", ext.Links[0].URL)
	})

	t.Run("classifies files by extension case-insensitively", func(t *testing.T) {
		t.Parallel()

		html := `<body><a href="/a.PDF">A</a><a href="/b.docx?v=2">B</a><a href="/c.html">C</a></body>`

		ext, err := goquery.NewExtractor().Extract(html, "https://example.com/")

		require.NoError(t, err)
		require.Len(t, ext.Files, 2)
		assert.Equal(t, 0, ext.Files[0].Position)
		assert.Equal(t, 1, ext.Files[1].Position)
		assert.Equal(t, "https://example.com/b.docx?v=2", ext.Files[1].URL)
		require.Len(t, ext.Links, 1)
		assert.Equal(t, 0, ext.Links[0].Position)
	})

	t.Run("custom file extensions replace the defaults", func(t *testing.T) {
		t.Parallel()

		html := `<body><a href="/a.pdf">A</a><a href="/b.epub">B</a></body>`

		ext, err := goquery.NewExtractor("epub").Extract(html, "https://example.com/")

		require.NoError(t, err)
		require.Len(t, ext.Files, 1)
		assert.Equal(t, "https://example.com/b.epub", ext.Files[0].URL)
		require.Len(t, ext.Links, 1)
	})

	t.Run("falls back to the title attribute for empty anchors", func(t *testing.T) {
		t.Parallel()

		html := `<body><a href="/x" title="Icon link"><img src="i.png"></a></body>`

		ext, err := goquery.NewExtractor().Extract(html, "https://example.com/")

		require.NoError(t, err)
		require.Len(t, ext.Links, 1)
		assert.Equal(t, "Icon link", ext.Links[0].Title)
	})

	t.Run("rejects a relative page URL with a partial extraction", func(t *testing.T) {
		t.Parallel()

		ext, err := goquery.NewExtractor().Extract("<p>x</p>", "/relative")

		require.Error(t, err)
		assert.Equal(t, sitecrawl.EINVALID, sitecrawl.ErrorCode(err))
		require.NotNil(t, ext)
		assert.NotEmpty(t, ext.Checksum)
	})

	t.Run("tolerates malformed markup", func(t *testing.T) {
		t.Parallel()

		html := `<body><h1>Open<p>para<a href="/x">x`

		ext, err := goquery.NewExtractor().Extract(html, "https://example.com/")

		require.NoError(t, err)
		require.NotEmpty(t, ext.Headings)
		assert.True(t, strings.HasPrefix(ext.Headings[0].Text, "Open"))
	})
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, goquery.Checksum("<p>a</p>"), goquery.Checksum("<p>a</p>"))
	assert.NotEqual(t, goquery.Checksum("<p>a</p>"), goquery.Checksum("<p>b</p>"))
}
