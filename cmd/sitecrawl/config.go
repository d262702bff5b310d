package main

import (
	"bytes"
	_ "embed"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/yaml"
)

// AppName names the application's XDG directories.
const AppName = "sitecrawl"

//go:embed sites.yaml
var builtinSites []byte

// DefaultDBPath returns the database location under the XDG data directory.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, AppName, AppName+".db")
}

// DefaultSitesPath returns the user sites file under the XDG config directory.
func DefaultSitesPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "sites.yaml")
}

// LoadSites returns the built-in site definitions merged with those in the
// file at path. A missing file is not an error.
func LoadSites(path string) ([]sitecrawl.SiteConfig, error) {
	base, err := yaml.LoadSiteConfigs(bytes.NewReader(builtinSites))
	if err != nil {
		return nil, err
	}
	if path == "" {
		return base, nil
	}

	user, err := yaml.LoadSiteConfigFile(path)
	if sitecrawl.ErrorCode(err) == sitecrawl.ENOTFOUND {
		return base, nil
	} else if err != nil {
		return nil, err
	}
	return yaml.MergeSiteConfigs(base, user), nil
}
