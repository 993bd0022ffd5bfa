// Package pypi implements depreg.Client against the Python Package Index's
// JSON API.
package pypi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sirupsen/logrus"
)

const indexBase = "https://pypi.org/pypi"

type urlInfo struct {
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	PackageType string `json:"packagetype"`
}

type infoDoc struct {
	Summary    string `json:"summary"`
	Version    string `json:"version"`
	License    string `json:"license"`
	ProjectURL string `json:"project_url"`
}

type packageDoc struct {
	Info     infoDoc              `json:"info"`
	Releases map[string][]urlInfo `json:"releases"`
	URLs     []urlInfo            `json:"urls"`
}

// Client is the PyPI depreg.Client implementation.
type Client struct {
	HTTP   depreg.HTTPClient
	Logger *logrus.Logger
}

func New(logger *logrus.Logger) *Client {
	return &Client{HTTP: depreg.NewRateLimitedHTTPClient(), Logger: logger}
}

func (c *Client) fetch(ctx context.Context, name, version string) (*packageDoc, error) {
	url := fmt.Sprintf("%s/%s/json", indexBase, name)
	if version != "" {
		url = fmt.Sprintf("%s/%s/%s/json", indexBase, name, version)
	}
	body, err := depreg.Fetch(ctx, c.HTTP, c.Logger, url, nil)
	if err != nil {
		if version != "" {
			return nil, depreg.NewVersionNotFound(name, version)
		}
		return nil, depreg.NewPackageNotFound(name)
	}
	var doc packageDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, depreg.NewInvalidPackage(name, fmt.Sprintf("malformed registry response: %v", err))
	}
	return &doc, nil
}

func (c *Client) GetPackage(ctx context.Context, name string) (*depreg.PackageInfo, error) {
	doc, err := c.fetch(ctx, name, "")
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(doc.Releases))
	for v := range doc.Releases {
		versions = append(versions, v)
	}
	return &depreg.PackageInfo{
		Name:          name,
		Versions:      versions,
		LatestVersion: doc.Info.Version,
		Description:   doc.Info.Summary,
		Repository:    doc.Info.ProjectURL,
		License:       doc.Info.License,
	}, nil
}

func (c *Client) GetVersion(ctx context.Context, name, version string) (*depreg.VersionInfo, error) {
	doc, err := c.fetch(ctx, name, version)
	if err != nil {
		return nil, err
	}
	sdist := findSdist(doc.URLs)
	if sdist == "" {
		if urls, ok := doc.Releases[version]; ok {
			sdist = findSdist(urls)
		}
	}
	if sdist == "" {
		return nil, depreg.NewVersionNotFound(name, version)
	}
	return &depreg.VersionInfo{Version: doc.Info.Version, Description: doc.Info.Summary, TarballURL: sdist}, nil
}

func findSdist(urls []urlInfo) string {
	for _, u := range urls {
		if u.PackageType == "sdist" || strings.HasSuffix(u.Filename, ".tar.gz") {
			return u.URL
		}
	}
	return ""
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
	prefix := fmt.Sprintf("%s-%s/", name, version)
	files, err := depreg.ExtractArchive(ctx, depreg.FormatTarGz, body, prefix, depreg.PypiIndexable)
	if err != nil {
		return nil, depreg.NewArchive(name, version, err)
	}
	return files, nil
}
