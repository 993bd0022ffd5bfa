// Package maven implements depreg.Client against Maven Central, using the
// search.maven.org Solr API for metadata and repo1.maven.org for source JAR
// downloads. Package names are "groupId:artifactId" per spec §3.
package maven

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sirupsen/logrus"
)

const (
	searchBase = "https://search.maven.org/solrsearch/select"
	repoBase   = "https://repo1.maven.org/maven2"
)

// Client is the Maven Central depreg.Client implementation.
type Client struct {
	HTTP   depreg.HTTPClient
	Logger *logrus.Logger
}

func New(logger *logrus.Logger) *Client {
	return &Client{HTTP: depreg.NewRateLimitedHTTPClient(), Logger: logger}
}

func splitCoordinates(name string) (groupID, artifactID string, err error) {
	parts := strings.SplitN(name, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed maven coordinates %q, expected groupId:artifactId", name)
	}
	return parts[0], parts[1], nil
}

type solrResponse struct {
	Response struct {
		Docs []struct {
			G         string `json:"g"`
			A         string `json:"a"`
			V         string `json:"v"`
			LatestVer string `json:"latestVersion"`
		} `json:"docs"`
	} `json:"response"`
}

func (c *Client) query(ctx context.Context, groupID, artifactID string, core string, rows int) (*solrResponse, error) {
	q := fmt.Sprintf(`g:"%s" AND a:"%s"`, groupID, artifactID)
	url := fmt.Sprintf("%s?q=%s&core=%s&rows=%d&wt=json", searchBase, urlQueryEscape(q), core, rows)
	body, err := depreg.Fetch(ctx, c.HTTP, c.Logger, url, nil)
	if err != nil {
		return nil, err
	}
	var resp solrResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse maven search response: %w", err)
	}
	return &resp, nil
}

func (c *Client) GetPackage(ctx context.Context, name string) (*depreg.PackageInfo, error) {
	groupID, artifactID, err := splitCoordinates(name)
	if err != nil {
		return nil, depreg.NewInvalidPackage(name, err.Error())
	}

	resp, err := c.query(ctx, groupID, artifactID, "gav", 200)
	if err != nil {
		return nil, depreg.NewTransport(name, "", err)
	}
	if len(resp.Response.Docs) == 0 {
		return nil, depreg.NewPackageNotFound(name)
	}

	versions := make([]string, 0, len(resp.Response.Docs))
	for _, d := range resp.Response.Docs {
		versions = append(versions, d.V)
	}

	latestResp, err := c.query(ctx, groupID, artifactID, "", 1)
	latest := ""
	if err == nil && len(latestResp.Response.Docs) > 0 {
		latest = latestResp.Response.Docs[0].LatestVer
	}

	return &depreg.PackageInfo{Name: name, Versions: versions, LatestVersion: latest}, nil
}

func (c *Client) GetVersion(ctx context.Context, name, version string) (*depreg.VersionInfo, error) {
	groupID, artifactID, err := splitCoordinates(name)
	if err != nil {
		return nil, depreg.NewInvalidPackage(name, err.Error())
	}
	groupPath := strings.ReplaceAll(groupID, ".", "/")
	tarballURL := fmt.Sprintf("%s/%s/%s/%s/%s-%s-sources.jar", repoBase, groupPath, artifactID, version, artifactID, version)
	return &depreg.VersionInfo{Version: version, TarballURL: tarballURL}, nil
}

func (c *Client) DownloadSource(ctx context.Context, name, version string) ([]depreg.PackageFile, error) {
	vi, err := c.GetVersion(ctx, name, version)
	if err != nil {
		return nil, err
	}
	body, err := depreg.Fetch(ctx, c.HTTP, c.Logger, vi.TarballURL, nil)
	if err != nil {
		return nil, depreg.NewVersionNotFound(name, version)
	}
	files, err := depreg.ExtractArchive(ctx, depreg.FormatZip, body, "", depreg.MavenIndexable)
	if err != nil {
		return nil, depreg.NewArchive(name, version, err)
	}
	return files, nil
}

func urlQueryEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ' ':
			b.WriteString("+")
		case r == '"':
			b.WriteString("%22")
		case r == ':':
			b.WriteString("%3A")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
