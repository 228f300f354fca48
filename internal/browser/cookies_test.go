package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSession_Missing(t *testing.T) {
	s, err := LoadSession(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = LoadSession("")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestLoadSession_StorageState(t *testing.T) {
	path := writeFile(t, "state.json", `{"cookies":[{"name":"li_at","value":"x","domain":".linkedin.com","path":"/"}],"origins":[]}`)

	s, err := LoadSession(path)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.StorageState)
	assert.Empty(t, s.Cookies, "storage state is handed to playwright untouched")
	assert.Equal(t, path, s.Path)
}

func TestLoadSession_CookieExport(t *testing.T) {
	path := writeFile(t, "cookies.json", `[
	  {"name":"li_at","value":"abc","domain":".linkedin.com","path":"/","expires":1893456000,"httpOnly":true,"secure":true,"sameSite":"no_restriction"},
	  {"name":"lang","value":"v=2&lang=en-us","domain":".linkedin.com","sameSite":"Lax"},
	  {"name":"","value":"ignored"}
	]`)

	s, err := LoadSession(path)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.False(t, s.StorageState)
	require.Len(t, s.Cookies, 2)

	c := s.Cookies[0]
	assert.Equal(t, "li_at", c.Name)
	assert.Equal(t, ".linkedin.com", *c.Domain)
	assert.Equal(t, float64(1893456000), *c.Expires)
	assert.True(t, *c.HttpOnly)
	assert.True(t, *c.Secure)
	assert.Equal(t, playwright.SameSiteAttributeNone, c.SameSite)

	c = s.Cookies[1]
	assert.Equal(t, "/", *c.Path, "path defaults to root")
	assert.Nil(t, c.Expires)
	assert.Nil(t, c.HttpOnly)
	assert.Equal(t, playwright.SameSiteAttributeLax, c.SameSite)
}

func TestLoadSession_Invalid(t *testing.T) {
	_, err := LoadSession(writeFile(t, "empty.json", "  "))
	assert.Error(t, err)

	_, err = LoadSession(writeFile(t, "bad.json", "{not json"))
	assert.Error(t, err)

	_, err = LoadSession(writeFile(t, "nocookies.json", `[{"value":"x"}]`))
	assert.Error(t, err)
}

func TestScreenshotDebugger_Nil(t *testing.T) {
	var d *ScreenshotDebugger
	assert.NotPanics(t, func() { d.CaptureAndLog(nil, "x", "y") })

	d = NewScreenshotDebugger(filepath.Join(t.TempDir(), "shots"))
	require.NotNil(t, d)
	assert.DirExists(t, d.outputDir)
}
