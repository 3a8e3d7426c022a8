package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	RunE:  runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file interactively",
	Long: `Prompts for the Zotero library, tablet folders and attachment storage,
then writes the configuration file. Press Enter to keep the value shown in
brackets. Secrets are read without echo.`,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Library]")
	cmd.Printf("  Base URL: %s\n", s.Library.BaseURL)
	cmd.Printf("  Library: %s/%s\n", s.Library.Type, valueOrUnset(s.Library.ID))
	cmd.Printf("  API Key: %s\n", secret(s.Library.APIKey))
	cmd.Println()

	cmd.Println("[Tablet]")
	cmd.Printf("  rmapi: %s\n", s.Tablet.RmapiPath)
	cmd.Printf("  Unread folder: %s\n", s.Tablet.UnreadPath())
	cmd.Printf("  Read folder: %s\n", s.Tablet.ReadPath())
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", s.Storage.Backend.Description())
	if s.Storage.Backend == domain.StorageWebDAV {
		cmd.Printf("  URL: %s\n", valueOrUnset(s.Storage.WebDAVURL))
		cmd.Printf("  User: %s\n", valueOrUnset(s.Storage.WebDAVUser))
		cmd.Printf("  Password: %s\n", secret(s.Storage.WebDAVPassword))
		cmd.Printf("  Verify hash: %t\n", s.Storage.VerifyHash)
	}
	cmd.Printf("  Transfer attempts: %d (backoff %s)\n", s.Transfer.MaxAttempts, s.Transfer.Backoff)
	cmd.Println()

	cmd.Println("[Sync]")
	cmd.Printf("  Renderer: %s %s\n", s.Renderer.Command, strings.Join(s.Renderer.Args, " "))
	cmd.Printf("  Workers: %d\n", s.Sync.Workers)
	cmd.Printf("  Daemon interval: %s\n", s.Sync.Interval)
	cmd.Printf("  Scratch: %s\n", s.Paths.Scratch)
	cmd.Printf("  Pending: %s\n", s.Paths.Pending)
	cmd.Printf("  Log file: %s\n", valueOrUnset(s.Log.File))
	cmd.Println()

	if err := settingsService.Validate(s); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'zrbridge config init' to fix configuration issues.")
	} else {
		cmd.Println("All settings are valid.")
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)

	cmd.Println("zrbridge Setup")
	cmd.Println("==============")
	cmd.Println()

	cmd.Println("Step 1: Zotero Library")
	cmd.Println("----------------------")
	s.Library.Type = prompt(cmd, reader, "Library type (user/group)", s.Library.Type)
	s.Library.ID = prompt(cmd, reader, "Library ID", s.Library.ID)
	s.Library.APIKey = promptSecret(cmd, in, reader, "API key", s.Library.APIKey)
	cmd.Println()

	cmd.Println("Step 2: reMarkable Folders")
	cmd.Println("--------------------------")
	s.Tablet.RmapiPath = prompt(cmd, reader, "rmapi executable", s.Tablet.RmapiPath)
	s.Tablet.Root = strings.TrimRight(prompt(cmd, reader, "Root folder", s.Tablet.Root), "/")
	s.Tablet.UnreadFolder = strings.Trim(prompt(cmd, reader, "Unread folder", s.Tablet.UnreadFolder), "/")
	s.Tablet.ReadFolder = strings.Trim(prompt(cmd, reader, "Read folder", s.Tablet.ReadFolder), "/")
	cmd.Println()

	cmd.Println("Step 3: Attachment Storage")
	cmd.Println("--------------------------")
	backends := []domain.StorageBackend{domain.StorageNative, domain.StorageWebDAV}
	defaultChoice := 1
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b.Description())
		if b == s.Storage.Backend {
			defaultChoice = i + 1
		}
	}
	cmd.Printf("Enter choice [%d]: ", defaultChoice)
	s.Storage.Backend = backends[parseChoice(readLine(reader), len(backends), defaultChoice)-1]
	if s.Storage.Backend == domain.StorageWebDAV {
		s.Storage.WebDAVURL = prompt(cmd, reader, "WebDAV URL (ending in /zotero/)", s.Storage.WebDAVURL)
		s.Storage.WebDAVUser = prompt(cmd, reader, "WebDAV user", s.Storage.WebDAVUser)
		s.Storage.WebDAVPassword = promptSecret(cmd, in, reader, "WebDAV password", s.Storage.WebDAVPassword)
	}
	cmd.Println()

	if err := settingsService.Save(s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Println("Configuration saved.")
	if err := settingsService.Validate(s); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func prompt(cmd *cobra.Command, reader *bufio.Reader, label, current string) string {
	cmd.Printf("%s [%s]: ", label, current)
	if v := readLine(reader); v != "" {
		return v
	}
	return current
}

// promptSecret reads without echo when in is a terminal.
func promptSecret(cmd *cobra.Command, in io.Reader, reader *bufio.Reader, label, current string) string {
	cmd.Printf("%s [%s]: ", label, secret(current))
	v := readSecret(in, reader)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		cmd.Println()
	}
	if v != "" {
		return v
	}
	return current
}

func readSecret(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if b, err := term.ReadPassword(int(f.Fd())); err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return readLine(reader)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func secret(v string) string {
	if v == "" {
		return "(not set)"
	}
	return maskAPIKey(v)
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
