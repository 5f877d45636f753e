// Package config loads the gcurl command's defaults from a TOML file and
// merges them under the command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/adamwoolhether/gcurl"
)

// Settings is everything the command needs to build a request.
type Settings struct {
	Transfer        gcurl.Config
	Rate            int
	Burst           int
	RequestIDHeader string
}

// Default returns the library defaults with no throttling.
func Default() Settings {
	return Settings{
		Transfer: gcurl.DefaultConfig(),
		Burst:    1,
	}
}

// File mirrors Settings with TOML friendly durations. Pointers mark
// values the file may leave unset.
type File struct {
	Timeout         string   `toml:"timeout"`
	ConnectTimeout  string   `toml:"connect_timeout"`
	FollowRedirects *bool    `toml:"follow_redirects"`
	MaxRedirects    *int     `toml:"max_redirects"`
	UserAgent       string   `toml:"user_agent"`
	Headers         []string `toml:"headers"`
	Rate            int      `toml:"rate"`
	Burst           int      `toml:"burst"`
	RequestIDHeader string   `toml:"request_id_header"`
}

// Load parses the TOML file at path. Unknown keys are an error.
func Load(path string) (File, error) {
	var f File

	b, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}

	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return f, fmt.Errorf("parse %s: %s", path, strict.String())
		}
		return f, fmt.Errorf("parse %s: %w", path, err)
	}

	return f, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/gcurl/config.toml or its platform
// equivalent, or "" when there is no config directory.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "gcurl", "config.toml")
	}
	return ""
}

// Exists reports whether a file exists at p.
func Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Apply copies the values set in f into s, skipping every value whose flag
// was given on the command line.
func Apply(s *Settings, f File, changed map[string]bool) error {
	set := setter{changed: changed}

	if err := set.duration("timeout", f.Timeout, &s.Transfer.Timeout); err != nil {
		return err
	}
	if err := set.duration("connect-timeout", f.ConnectTimeout, &s.Transfer.ConnectTimeout); err != nil {
		return err
	}

	set.boolean("location", f.FollowRedirects, &s.Transfer.FollowRedirects)
	set.integer("max-redirs", f.MaxRedirects, &s.Transfer.MaxRedirects)
	set.str("user-agent", f.UserAgent, &s.Transfer.UserAgent)
	set.str("request-id-header", f.RequestIDHeader, &s.RequestIDHeader)

	if len(f.Headers) > 0 && !changed["header"] {
		s.Transfer.Headers = append([]string(nil), f.Headers...)
	}
	if f.Rate > 0 && !changed["rate"] {
		s.Rate = f.Rate
	}
	if f.Burst > 0 && !changed["burst"] {
		s.Burst = f.Burst
	}

	return nil
}

type setter struct {
	changed map[string]bool
}

func (s setter) str(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s setter) integer(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s setter) boolean(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s setter) duration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}
