package browser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/playwright-community/playwright-go"
)

// Cookie is one entry of a cookie export from a browser extension
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// Session is what a browser context is seeded with. A playwright storage
// state file is passed through as is; a bare cookie export is converted.
type Session struct {
	Path         string
	StorageState bool
	Cookies      []playwright.OptionalCookie
}

// LoadSession inspects the file at path. A missing file returns nil, nil.
func LoadSession(path string) (*Session, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("session file %s is empty", path)
	}

	if trimmed[0] == '[' {
		cookies, err := parseCookies(trimmed)
		if err != nil {
			return nil, fmt.Errorf("parse cookies %s: %w", path, err)
		}
		return &Session{Path: path, Cookies: cookies}, nil
	}

	var state struct {
		Cookies []json.RawMessage `json:"cookies"`
	}
	if err := json.Unmarshal(trimmed, &state); err != nil {
		return nil, fmt.Errorf("parse storage state %s: %w", path, err)
	}
	return &Session{Path: path, StorageState: true}, nil
}

func parseCookies(data []byte) ([]playwright.OptionalCookie, error) {
	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, err
	}
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		out = append(out, c.ToPlaywright())
	}
	if len(out) == 0 {
		return nil, errors.New("no usable cookies")
	}
	return out, nil
}

func (c Cookie) ToPlaywright() playwright.OptionalCookie {
	path := c.Path
	if path == "" {
		path = "/"
	}
	pwCookie := playwright.OptionalCookie{
		Name:   c.Name,
		Value:  c.Value,
		Domain: playwright.String(c.Domain),
		Path:   playwright.String(path),
	}

	if c.Expires > 0 {
		pwCookie.Expires = playwright.Float(c.Expires)
	}
	if c.HTTPOnly {
		pwCookie.HttpOnly = playwright.Bool(true)
	}
	if c.Secure {
		pwCookie.Secure = playwright.Bool(true)
	}

	switch c.SameSite {
	case "Lax", "lax":
		pwCookie.SameSite = playwright.SameSiteAttributeLax
	case "Strict", "strict":
		pwCookie.SameSite = playwright.SameSiteAttributeStrict
	case "None", "no_restriction":
		pwCookie.SameSite = playwright.SameSiteAttributeNone
	}

	return pwCookie
}

// SaveStorageState writes the context's cookies and local storage to path
func SaveStorageState(bctx playwright.BrowserContext, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if _, err := bctx.StorageState(path); err != nil {
		return fmt.Errorf("save storage state: %w", err)
	}
	log.Printf("💾 Session saved to %s", path)
	return nil
}
