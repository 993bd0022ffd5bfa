// Package goproxy implements depreg.Client against the Go module proxy
// protocol (proxy.golang.org by default).
package goproxy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sirupsen/logrus"
)

const proxyBase = "https://proxy.golang.org"

// Client is the Go module proxy depreg.Client implementation.
type Client struct {
	HTTP   depreg.HTTPClient
	Logger *logrus.Logger
}

func New(logger *logrus.Logger) *Client {
	return &Client{HTTP: depreg.NewRateLimitedHTTPClient(), Logger: logger}
}

func (c *Client) GetPackage(ctx context.Context, name string) (*depreg.PackageInfo, error) {
	escaped := EscapeModulePath(name)
	body, err := depreg.Fetch(ctx, c.HTTP, c.Logger, fmt.Sprintf("%s/%s/@v/list", proxyBase, escaped), nil)
	if err != nil {
		return nil, depreg.NewTransport(name, "", err)
	}
	versions := strings.Fields(string(body))
	if len(versions) == 0 {
		latest, err := c.latest(ctx, name)
		if err != nil {
			return nil, depreg.NewPackageNotFound(name)
		}
		versions = []string{latest.Version}
	}

	latest, err := c.latest(ctx, name)
	latestVersion := ""
	if err == nil {
		latestVersion = latest.Version
	}

	return &depreg.PackageInfo{Name: name, Versions: versions, LatestVersion: latestVersion}, nil
}

type atLatestResponse struct {
	Version string
	Time    string
}

func (c *Client) latest(ctx context.Context, name string) (*atLatestResponse, error) {
	escaped := EscapeModulePath(name)
	body, err := depreg.Fetch(ctx, c.HTTP, c.Logger, fmt.Sprintf("%s/%s/@latest", proxyBase, escaped), nil)
	if err != nil {
		return nil, err
	}
	var resp atLatestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse @latest response: %w", err)
	}
	return &resp, nil
}

func (c *Client) GetVersion(ctx context.Context, name, version string) (*depreg.VersionInfo, error) {
	version = NormalizeVersion(version)
	escaped := EscapeModulePath(name)
	body, err := depreg.Fetch(ctx, c.HTTP, c.Logger, fmt.Sprintf("%s/%s/@v/%s.info", proxyBase, escaped, version), nil)
	if err != nil {
		return nil, depreg.NewVersionNotFound(name, version)
	}
	var info atLatestResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse .info response: %w", err)
	}
	return &depreg.VersionInfo{
		Version:    info.Version,
		TarballURL: fmt.Sprintf("%s/%s/@v/%s.zip", proxyBase, escaped, version),
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
	prefix := fmt.Sprintf("%s@%s/", name, vi.Version)
	files, err := depreg.ExtractArchive(ctx, depreg.FormatZip, body, prefix, depreg.GoIndexable)
	if err != nil {
		return nil, depreg.NewArchive(name, version, err)
	}
	return files, nil
}
