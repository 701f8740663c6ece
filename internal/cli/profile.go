package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Profile is the persisted widgetctl configuration.
type Profile struct {
	Server    string `toml:"server"`
	Token     string `toml:"token"`
	CompanyID string `toml:"company_id"`
	// Width and Height override the dashboard canvas, like a browser
	// viewport would.
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// DefaultProfilePath returns the profile path using XDG conventions.
func DefaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "widgetctl", "config.toml")
}

// LoadProfile reads path. A missing file yields an empty profile.
func LoadProfile(path string) (*Profile, error) {
	var p Profile
	if _, err := toml.DecodeFile(path, &p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &p, nil
		}
		return nil, fmt.Errorf("loading profile from %s: %w", path, err)
	}
	if p.Width < 0 || p.Height < 0 {
		return nil, fmt.Errorf("profile %s: width and height must not be negative", path)
	}
	return &p, nil
}

// Save writes the profile, creating the directory if needed.
func (p *Profile) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(p); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}
