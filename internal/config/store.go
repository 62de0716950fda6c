package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ftpsheep/ftpsheep/internal/deployerr"
	"github.com/ftpsheep/ftpsheep/internal/models"
)

// ProfileStore resolves profile names to files under a single storage
// directory. One file per profile,
// named "<name>.json".
type ProfileStore struct {
	dir string
}

// NewProfileStore builds a store rooted at dir, creating it if absent.
func NewProfileStore(dir string) (*ProfileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, &deployerr.ConfigError{Path: dir, Err: err}
	}
	return &ProfileStore{dir: dir}, nil
}

func (s *ProfileStore) pathFor(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load resolves name to its file and loads it, applying global defaults.
func (s *ProfileStore) Load(name string, global GlobalConfig) (models.DeploymentProfile, error) {
	if err := ValidateProfileName(name); err != nil {
		return models.DeploymentProfile{}, err
	}
	profile, err := LoadProfile(s.pathFor(name))
	if err != nil {
		return models.DeploymentProfile{}, err
	}
	return ApplyDefaults(profile, global), nil
}

// Save validates and writes profile to its file.
func (s *ProfileStore) Save(profile models.DeploymentProfile) error {
	if err := ValidateProfileName(profile.Name); err != nil {
		return err
	}
	if _, err := Validate(profile); err != nil {
		return err
	}
	return SaveProfile(s.pathFor(profile.Name), profile)
}

// Delete removes a profile's file.
func (s *ProfileStore) Delete(name string) error {
	err := os.Remove(s.pathFor(name))
	if err != nil {
		if os.IsNotExist(err) {
			return &deployerr.ProfileNotFoundError{Name: name}
		}
		return &deployerr.ConfigError{Path: s.pathFor(name), Err: err}
	}
	return nil
}

// List returns every stored profile name, sorted.
func (s *ProfileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &deployerr.ConfigError{Path: s.dir, Err: err}
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}
