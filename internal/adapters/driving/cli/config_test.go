package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driven/config/file"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/services"
)

func setupConfigTest(t *testing.T) *services.SettingsService {
	t.Helper()
	dir := t.TempDir()
	store, err := file.NewConfigStore(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	svc := services.NewSettingsService(store, dir)
	withServices(t, &Services{Settings: svc})
	return svc
}

func TestConfigShow(t *testing.T) {
	svc := setupConfigTest(t)
	s, err := svc.Get()
	require.NoError(t, err)
	s.Library.ID = "475425"
	s.Library.APIKey = "P9NiFoyLeZu2bZNvvuQPDWsd"
	require.NoError(t, svc.Save(s))

	out, err := execute(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Library: user/475425")
	assert.Contains(t, out, "API Key: P9Ni...DWsd")
	assert.NotContains(t, out, "P9NiFoyLeZu2bZNvvuQPDWsd")
	assert.Contains(t, out, "Unread folder: /Zotero/Unread")
	assert.Contains(t, out, "All settings are valid.")
}

func TestConfigShow_WarnsWhenIncomplete(t *testing.T) {
	setupConfigTest(t)

	out, err := execute(t, "config")

	require.NoError(t, err)
	assert.Contains(t, out, "API Key: (not set)")
	assert.Contains(t, out, "Warning:")
	assert.Contains(t, out, "zrbridge config init")
}

func TestConfigInit_Native(t *testing.T) {
	svc := setupConfigTest(t)
	input := strings.Join([]string{
		"",             // library type
		"475425",       // library ID
		"secret-key-1", // API key
		"",             // rmapi
		"/Papers/",     // root
		"",             // unread
		"Done",         // read
		"1",            // backend
	}, "\n") + "\n"

	out, err := executeWith(t, context.Background(), strings.NewReader(input), "config", "init")

	require.NoError(t, err)
	assert.Contains(t, out, "Configuration saved.")

	s, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "user", s.Library.Type)
	assert.Equal(t, "475425", s.Library.ID)
	assert.Equal(t, "secret-key-1", s.Library.APIKey)
	assert.Equal(t, "/Papers/Unread", s.Tablet.UnreadPath())
	assert.Equal(t, "/Papers/Done/", s.Tablet.ReadPath())
	assert.Equal(t, domain.StorageNative, s.Storage.Backend)
	assert.NoError(t, svc.Validate(s))
}

func TestConfigInit_WebDAV(t *testing.T) {
	svc := setupConfigTest(t)
	input := strings.Join([]string{
		"group", "9001", "group-key-123",
		"", "", "", "",
		"2",
		"https://dav.example.com/zotero/", "alice", "dav-pass",
	}, "\n") + "\n"

	_, err := executeWith(t, context.Background(), strings.NewReader(input), "config", "init")

	require.NoError(t, err)
	s, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "group", s.Library.Type)
	assert.Equal(t, domain.StorageWebDAV, s.Storage.Backend)
	assert.Equal(t, "https://dav.example.com/zotero/", s.Storage.WebDAVURL)
	assert.Equal(t, "alice", s.Storage.WebDAVUser)
	assert.Equal(t, "dav-pass", s.Storage.WebDAVPassword)
}

func TestConfigInit_KeepsExistingSecret(t *testing.T) {
	svc := setupConfigTest(t)
	s, err := svc.Get()
	require.NoError(t, err)
	s.Library.ID = "1"
	s.Library.APIKey = "existing-key-abc"
	require.NoError(t, svc.Save(s))

	// Accept every default.
	_, err = executeWith(t, context.Background(), strings.NewReader(strings.Repeat("\n", 8)), "config", "init")

	require.NoError(t, err)
	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "existing-key-abc", got.Library.APIKey)
	assert.Equal(t, "1", got.Library.ID)
}

func TestConfigCmd_NotConfigured(t *testing.T) {
	withServices(t, &Services{})

	_, err := execute(t, "config", "show")
	assert.EqualError(t, err, "settings service not configured")

	_, err = execute(t, "config", "init")
	assert.EqualError(t, err, "settings service not configured")
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Short key", input: "abc123", expected: "****"},
		{name: "Exactly 8 chars", input: "12345678", expected: "****"},
		{name: "Long key", input: "P9NiFoyLeZu2bZNvvuQPDWsd", expected: "P9Ni...DWsd"},
		{name: "Empty key", input: "", expected: "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskAPIKey(tt.input))
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"empty uses default", "", 1},
		{"valid", "2", 2},
		{"out of range", "3", 1},
		{"zero", "0", 1},
		{"not a number", "two", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseChoice(tt.input, 2, 1))
		})
	}
}

func TestSecret(t *testing.T) {
	assert.Equal(t, "(not set)", secret(""))
	assert.Equal(t, "****", secret("short"))
}
