package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ccswitch/internal/models"
	"ccswitch/internal/routing"

	"github.com/goccy/go-yaml"
	"github.com/sirupsen/logrus"
)

// TierStore loads and persists the tier configuration file. The file format
// follows the extension: .json is JSON, everything else is YAML. Reads are
// served from an in-memory copy; Save validates before touching disk.
type TierStore struct {
	path string

	mu     sync.RWMutex
	cached *models.TierFile
}

// NewTierStore creates a store for the given path. The file does not have to
// exist yet; Load on a missing file yields an empty configuration.
func NewTierStore(path string) *TierStore {
	return &TierStore{path: path}
}

// Load reads the file into the cache and returns the parsed configuration.
// A missing file is not an error: the store starts empty and is populated
// through Save.
func (s *TierStore) Load() (*models.TierFile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		logrus.WithField("path", s.path).Info("Tier file not found, starting with empty configuration")
		empty := &models.TierFile{Tiers: make(map[string]*models.TierConfig)}
		s.mu.Lock()
		s.cached = empty
		s.mu.Unlock()
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tier file: %w", err)
	}

	file := &models.TierFile{}
	if s.isJSON() {
		err = json.Unmarshal(data, file)
	} else {
		err = yaml.Unmarshal(data, file)
	}
	if err != nil {
		return nil, fmt.Errorf("parse tier file %s: %w", s.path, err)
	}
	if file.Tiers == nil {
		file.Tiers = make(map[string]*models.TierConfig)
	}

	if _, err := routing.ValidateFile(file); err != nil {
		return nil, fmt.Errorf("tier file %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.cached = file
	s.mu.Unlock()
	return file, nil
}

// Get returns the cached configuration, loading it on first use.
func (s *TierStore) Get() (*models.TierFile, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return s.Load()
}

// Save validates the configuration, writes it to disk atomically, and updates
// the cache. Validation warnings (long fallback chains) are returned to the
// caller but do not block the save.
func (s *TierStore) Save(file *models.TierFile) ([]string, error) {
	warnings, err := routing.ValidateFile(file)
	if err != nil {
		return warnings, err
	}

	var data []byte
	if s.isJSON() {
		data, err = json.MarshalIndent(file, "", "  ")
	} else {
		data, err = yaml.Marshal(file)
	}
	if err != nil {
		return warnings, fmt.Errorf("encode tier file: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return warnings, fmt.Errorf("create tier file directory: %w", err)
		}
	}

	// Write-then-rename so a crash mid-save never leaves a torn file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return warnings, fmt.Errorf("write tier file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return warnings, fmt.Errorf("replace tier file: %w", err)
	}

	s.mu.Lock()
	s.cached = file
	s.mu.Unlock()

	for _, warning := range warnings {
		logrus.Warn(warning)
	}
	return warnings, nil
}

// FindProvider looks up a provider by name in the cached configuration.
func (s *TierStore) FindProvider(name string) (models.ProviderConfig, bool) {
	file, err := s.Get()
	if err != nil {
		return models.ProviderConfig{}, false
	}
	for _, provider := range file.Providers {
		if provider.Name == name {
			return provider, true
		}
	}
	return models.ProviderConfig{}, false
}

// FindTier looks up a tier by name in the cached configuration.
func (s *TierStore) FindTier(name string) (*models.TierConfig, bool) {
	file, err := s.Get()
	if err != nil {
		return nil, false
	}
	tier, ok := file.Tiers[name]
	return tier, ok
}

func (s *TierStore) isJSON() bool {
	return strings.EqualFold(filepath.Ext(s.path), ".json")
}
