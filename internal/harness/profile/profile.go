// Package profile provides YAML conformance profiles for the server
// under test. A profile declares which optional IRC behaviors the
// server claims to support; scenarios carrying requirement keys are
// skipped when the profile does not claim them.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerInfo contains optional metadata about the server under test.
type ServerInfo struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Vendor  string `yaml:"vendor"`
}

// Profile represents a server conformance profile.
type Profile struct {
	// Name identifies this profile. Defaults to the file name.
	Name string `yaml:"-"`

	// Server contains optional server metadata.
	Server ServerInfo `yaml:"server"`

	// PasswordRequired is true when the server demands PASS before
	// registration.
	PasswordRequired bool `yaml:"password_required"`

	// Modes lists the channel mode letters the server claims
	// (e.g. [i, t, k, o, l]).
	Modes []string `yaml:"modes"`

	// Features lists free-form claim keys (e.g. kick, invite, topic,
	// names, multi-target-kick).
	Features []string `yaml:"features"`

	// claimAll is set on the default profile so every requirement
	// passes when no profile file was given.
	claimAll bool
}

// LoadError describes a profile that could not be loaded.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("profile %s: %s: %v", e.File, e.Message, e.Cause)
	}
	return fmt.Sprintf("profile %s: %s", e.File, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// Default returns a profile that claims every behavior. It is used
// when no profile file is given.
func Default() *Profile {
	return &Profile{Name: "default", claimAll: true}
}

// Load reads a profile from a YAML file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read profile", Cause: err}
	}

	p, err := Parse(data)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to parse profile", Cause: err}
	}

	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// Parse parses profile YAML.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Claims reports whether the profile claims the given requirement key.
// Mode requirements use the form "mode.<letter>"; everything else is
// matched against the feature list.
func (p *Profile) Claims(req string) bool {
	if p == nil || p.claimAll {
		return true
	}
	if letter, ok := strings.CutPrefix(req, "mode."); ok {
		for _, m := range p.Modes {
			if strings.EqualFold(m, letter) {
				return true
			}
		}
		return false
	}
	for _, f := range p.Features {
		if strings.EqualFold(f, req) {
			return true
		}
	}
	return false
}

// ClaimsAll reports whether the profile claims every requirement in
// the list. An empty list is always claimed.
func (p *Profile) ClaimsAll(reqs []string) bool {
	for _, r := range reqs {
		if !p.Claims(r) {
			return false
		}
	}
	return true
}

// Unmet returns the requirements the profile does not claim.
func (p *Profile) Unmet(reqs []string) []string {
	var missing []string
	for _, r := range reqs {
		if !p.Claims(r) {
			missing = append(missing, r)
		}
	}
	return missing
}
