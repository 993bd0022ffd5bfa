// Package npm implements depreg.Client against the public npm registry.
package npm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sirupsen/logrus"
)

const registryBase = "https://registry.npmjs.org"

type distTags struct {
	Latest string `json:"latest"`
}

type distInfo struct {
	Tarball string `json:"tarball"`
}

type versionDoc struct {
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Dist        distInfo `json:"dist"`
}

type packageDoc struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	DistTags    distTags              `json:"dist-tags"`
	Versions    map[string]versionDoc `json:"versions"`
	Repository  any                   `json:"repository"`
	License     any                   `json:"license"`
}

// Client is the npm registry depreg.Client implementation.
type Client struct {
	HTTP   depreg.HTTPClient
	Logger *logrus.Logger
}

// New builds a Client with the standard rate-limited HTTP transport.
func New(logger *logrus.Logger) *Client {
	return &Client{HTTP: depreg.NewRateLimitedHTTPClient(), Logger: logger}
}

func (c *Client) fetchDoc(ctx context.Context, name string) (*packageDoc, error) {
	url := fmt.Sprintf("%s/%s", registryBase, escapeScopedName(name))
	body, err := depreg.Fetch(ctx, c.HTTP, c.Logger, url, nil)
	if err != nil {
		return nil, depreg.NewTransport(name, "", err)
	}
	var doc packageDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, depreg.NewInvalidPackage(name, fmt.Sprintf("malformed registry response: %v", err))
	}
	if doc.Name == "" && len(doc.Versions) == 0 {
		return nil, depreg.NewPackageNotFound(name)
	}
	return &doc, nil
}

func (c *Client) GetPackage(ctx context.Context, name string) (*depreg.PackageInfo, error) {
	doc, err := c.fetchDoc(ctx, name)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(doc.Versions))
	for v := range doc.Versions {
		versions = append(versions, v)
	}
	return &depreg.PackageInfo{
		Name:          name,
		Versions:      versions,
		LatestVersion: doc.DistTags.Latest,
		Description:   doc.Description,
		Repository:    stringifyAny(doc.Repository),
		License:       stringifyAny(doc.License),
	}, nil
}

func (c *Client) GetVersion(ctx context.Context, name, version string) (*depreg.VersionInfo, error) {
	doc, err := c.fetchDoc(ctx, name)
	if err != nil {
		return nil, err
	}
	v, ok := doc.Versions[version]
	if !ok {
		return nil, depreg.NewVersionNotFound(name, version)
	}
	return &depreg.VersionInfo{
		Version:     v.Version,
		Description: v.Description,
		TarballURL:  v.Dist.Tarball,
	}, nil
}

func (c *Client) DownloadSource(ctx context.Context, name, version string) ([]depreg.PackageFile, error) {
	vi, err := c.GetVersion(ctx, name, version)
	if err != nil {
		return nil, err
	}
	body, err := depreg.Fetch(ctx, c.HTTP, c.Logger, vi.TarballURL, nil)
	if err != nil {
		return nil, depreg.NewTransport(name, version, err)
	}
	files, err := depreg.ExtractArchive(ctx, depreg.FormatTarGz, body, "package/", depreg.NpmIndexable)
	if err != nil {
		return nil, depreg.NewArchive(name, version, err)
	}
	return files, nil
}

func escapeScopedName(name string) string {
	if len(name) > 0 && name[0] == '@' {
		for i, r := range name {
			if r == '/' {
				return name[:i] + "%2F" + name[i+1:]
			}
		}
	}
	return name
}

func stringifyAny(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if u, ok := t["url"].(string); ok {
			return u
		}
		if n, ok := t["type"].(string); ok {
			return n
		}
	}
	return ""
}
