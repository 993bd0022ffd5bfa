package mcptools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sammcj/depindex/internal/app"
	"github.com/sammcj/depindex/internal/store/meta"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T) *app.App {
	t.Helper()
	logger := logrus.New()
	metadata, err := meta.Open(filepath.Join(t.TempDir(), "db.sqlite"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = metadata.Close() })
	return &app.App{Meta: metadata}
}

func TestSearchCodeRequiresQuery(t *testing.T) {
	tool := &SearchCodeTool{App: testApp(t)}
	_, err := tool.Execute(context.Background(), nil, nil, map[string]any{})
	assert.Error(t, err)
}

func TestIndexPackageRejectsUnknownRegistry(t *testing.T) {
	tool := &IndexPackageTool{App: &app.App{}}
	_, err := tool.Execute(context.Background(), nil, nil, map[string]any{
		"registry": "npmjs", "package": "lodash", "version": "4.17.21",
	})
	assert.Error(t, err)
}

func TestIndexPackageRequiresPackageAndVersion(t *testing.T) {
	tool := &IndexPackageTool{App: &app.App{}}
	_, err := tool.Execute(context.Background(), nil, nil, map[string]any{"registry": "npm"})
	assert.Error(t, err)
}

func TestListPackagesEmptyStore(t *testing.T) {
	tool := &ListPackagesTool{App: testApp(t)}
	result, err := tool.Execute(context.Background(), nil, nil, map[string]any{})
	require.NoError(t, err)
	require.NotNil(t, result)
}

func TestListPackagesFiltersByRegistry(t *testing.T) {
	a := testApp(t)
	_, err := a.Meta.GetOrCreatePackage("npm", "lodash")
	require.NoError(t, err)
	_, err = a.Meta.GetOrCreatePackage("pypi", "requests")
	require.NoError(t, err)

	tool := &ListPackagesTool{App: a}
	result, err := tool.Execute(context.Background(), nil, nil, map[string]any{"registry": "npm"})
	require.NoError(t, err)
	require.NotNil(t, result)
}

func TestStringArgMissingKey(t *testing.T) {
	assert.Equal(t, "", stringArg(map[string]any{}, "missing"))
}

func TestIntArgDefaultsWhenAbsentOrZero(t *testing.T) {
	assert.Equal(t, 10, intArg(map[string]any{}, "limit", 10))
	assert.Equal(t, 10, intArg(map[string]any{"limit": float64(0)}, "limit", 10))
	assert.Equal(t, 5, intArg(map[string]any{"limit": float64(5)}, "limit", 10))
}
