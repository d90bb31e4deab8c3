// Package licensefile keeps activations on disk for offline validation and
// transfer between machines. A file holds the activation envelope exactly as
// the service returned it, so the signature still covers its payload.
package licensefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"winsbygroup.com/licenseagent/internal/licensekey"
)

const appDir = "licenseagent"

// DefaultDir returns the directory license files live in by default.
// On Windows: C:\ProgramData\licenseagent
// On Linux/macOS: /var/lib/licenseagent
func DefaultDir() string {
	if runtime.GOOS == "windows" {
		base := os.Getenv("ProgramData")
		if base == "" {
			base = `C:\ProgramData`
		}
		return filepath.Join(base, appDir)
	}
	return filepath.Join("/var/lib", appDir)
}

// FileName is the conventional name for a product's license file.
func FileName(productID uint64) string {
	return fmt.Sprintf("product-%d.json", productID)
}

// Save writes k to path, creating parent directories as needed.
func Save(path string, k *licensekey.LicenseKey) error {
	data, err := licensekey.EncodeResponse(k)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create license dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write license file: %w", err)
	}
	return nil
}

// Load reads a license file. Returns nil and no error if the file doesn't exist.
func Load(path string) (*licensekey.LicenseKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read license file: %w", err)
	}
	return licensekey.ParseActivateResponse(data)
}

// Exists checks if a license file exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Delete deletes the license file if it exists.
func Delete(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
