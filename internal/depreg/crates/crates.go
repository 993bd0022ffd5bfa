// Package crates implements depreg.Client against the crates.io API.
package crates

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sirupsen/logrus"
)

const apiBase = "https://crates.io/api/v1/crates"

type crateDoc struct {
	Crate struct {
		Name          string `json:"name"`
		Description   string `json:"description"`
		Repository    string `json:"repository"`
		MaxVersion    string `json:"max_stable_version"`
		NewestVersion string `json:"newest_version"`
	} `json:"crate"`
	Versions []struct {
		Num   string `json:"num"`
		DlURL string `json:"dl_path"`
	} `json:"versions"`
}

// Client is the crates.io depreg.Client implementation.
type Client struct {
	HTTP   depreg.HTTPClient
	Logger *logrus.Logger
}

func New(logger *logrus.Logger) *Client {
	return &Client{HTTP: depreg.NewRateLimitedHTTPClient(), Logger: logger}
}

func (c *Client) fetch(ctx context.Context, name string) (*crateDoc, error) {
	body, err := depreg.Fetch(ctx, c.HTTP, c.Logger, fmt.Sprintf("%s/%s", apiBase, name), nil)
	if err != nil {
		return nil, depreg.NewPackageNotFound(name)
	}
	var doc crateDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, depreg.NewInvalidPackage(name, fmt.Sprintf("malformed registry response: %v", err))
	}
	return &doc, nil
}

func (c *Client) GetPackage(ctx context.Context, name string) (*depreg.PackageInfo, error) {
	doc, err := c.fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(doc.Versions))
	for _, v := range doc.Versions {
		versions = append(versions, v.Num)
	}
	latest := doc.Crate.MaxVersion
	if latest == "" {
		latest = doc.Crate.NewestVersion
	}
	return &depreg.PackageInfo{
		Name:          name,
		Versions:      versions,
		LatestVersion: latest,
		Description:   doc.Crate.Description,
		Repository:    doc.Crate.Repository,
	}, nil
}

func (c *Client) GetVersion(ctx context.Context, name, version string) (*depreg.VersionInfo, error) {
	doc, err := c.fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, v := range doc.Versions {
		if v.Num == version {
			return &depreg.VersionInfo{
				Version:     v.Num,
				Description: doc.Crate.Description,
				TarballURL:  "https://crates.io" + v.DlURL,
			}, nil
		}
	}
	return nil, depreg.NewVersionNotFound(name, version)
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
	files, err := depreg.ExtractArchive(ctx, depreg.FormatTarGz, body, prefix, depreg.CratesIndexable)
	if err != nil {
		return nil, depreg.NewArchive(name, version, err)
	}
	return files, nil
}
