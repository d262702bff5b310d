// Package yaml loads site configurations from YAML documents.
package yaml

import (
	"errors"
	"io"
	"os"

	"github.com/fwojciec/sitecrawl"
	"gopkg.in/yaml.v3"
)

// File is the layout of a sites file.
type File struct {
	Sites []sitecrawl.SiteConfig `yaml:"sites"`
}

// LoadSiteConfigs decodes and validates site configurations from r.
// An empty document yields no sites.
func LoadSiteConfigs(r io.Reader) ([]sitecrawl.SiteConfig, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, sitecrawl.WrapError(err, sitecrawl.EINVALID, "decode sites")
	}

	seen := make(map[string]bool, len(f.Sites))
	for i := range f.Sites {
		if err := f.Sites[i].Validate(); err != nil {
			return nil, err
		}
		if seen[f.Sites[i].ID] {
			return nil, sitecrawl.Errorf(sitecrawl.ECONFLICT, "site %q defined twice", f.Sites[i].ID)
		}
		seen[f.Sites[i].ID] = true
	}
	return f.Sites, nil
}

// LoadSiteConfigFile reads site configurations from path.
// Returns ENOTFOUND if the file does not exist.
func LoadSiteConfigFile(path string) ([]sitecrawl.SiteConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, sitecrawl.Errorf(sitecrawl.ENOTFOUND, "sites file %s not found", path)
		}
		return nil, err
	}
	defer f.Close()

	return LoadSiteConfigs(f)
}

// MergeSiteConfigs returns base with overrides applied. An override replaces
// the base entry with the same ID; new IDs are appended in override order.
func MergeSiteConfigs(base, overrides []sitecrawl.SiteConfig) []sitecrawl.SiteConfig {
	out := make([]sitecrawl.SiteConfig, len(base), len(base)+len(overrides))
	copy(out, base)

	index := make(map[string]int, len(out))
	for i, c := range out {
		index[c.ID] = i
	}
	for _, c := range overrides {
		if i, ok := index[c.ID]; ok {
			out[i] = c
			continue
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}
