package sitecrawl_test

import (
	"testing"

	"github.com/fwojciec/sitecrawl"
	"github.com/stretchr/testify/assert"
)

func TestSiteConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     sitecrawl.SiteConfig
		wantErr bool
	}{
		{"valid minimal", sitecrawl.SiteConfig{ID: "x", BaseURL: "https://example.com"}, false},
		{"valid full", sitecrawl.SiteConfig{ID: "x", BaseURL: "https://example.com", Kind: sitecrawl.SiteKindMediaWiki, Renderer: sitecrawl.RendererHTTP}, false},
		{"missing ID", sitecrawl.SiteConfig{BaseURL: "https://example.com"}, true},
		{"missing base URL", sitecrawl.SiteConfig{ID: "x"}, true},
		{"relative base URL", sitecrawl.SiteConfig{ID: "x", BaseURL: "/docs"}, true},
		{"ftp base URL", sitecrawl.SiteConfig{ID: "x", BaseURL: "ftp://example.com"}, true},
		{"unknown kind", sitecrawl.SiteConfig{ID: "x", BaseURL: "https://example.com", Kind: "blog"}, true},
		{"unknown renderer", sitecrawl.SiteConfig{ID: "x", BaseURL: "https://example.com", Renderer: "curl"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Equal(t, sitecrawl.EINVALID, sitecrawl.ErrorCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSiteConfig_Extensions(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg := sitecrawl.SiteConfig{}

		assert.True(t, cfg.FileExtensionSet().MatchPath("/a.pdf"))
		assert.Equal(t, sitecrawl.DefaultIgnoredExtensions, cfg.IgnoredExtensionList())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Parallel()

		cfg := sitecrawl.SiteConfig{FileExtensions: []string{"epub"}, IgnoredExtensions: []string{".epub"}}

		assert.True(t, cfg.FileExtensionSet().MatchPath("/book.epub"))
		assert.False(t, cfg.FileExtensionSet().MatchPath("/a.pdf"))
		assert.Equal(t, []string{".epub"}, cfg.IgnoredExtensionList())
	})
}

func TestPage_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, (&sitecrawl.Page{SiteID: "x", URL: "https://example.com/"}).Validate())
	assert.Equal(t, sitecrawl.EINVALID, sitecrawl.ErrorCode((&sitecrawl.Page{URL: "https://example.com/"}).Validate()))
	assert.Equal(t, sitecrawl.EINVALID, sitecrawl.ErrorCode((&sitecrawl.Page{SiteID: "x"}).Validate()))
}
