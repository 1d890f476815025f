// Package permission stores which players hold which capabilities. Grants are
// kept by player name and persisted in a TOML file.
package permission

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml"
)

var (
	// ErrUnavailable is returned when the store is not configured.
	ErrUnavailable = errors.New("permission store is not configured")
	// ErrInvalidName is returned when an empty player name is passed to a store operation.
	ErrInvalidName = errors.New("invalid player name")
	// ErrInvalidCapability is returned when an empty capability is passed to a store operation.
	ErrInvalidCapability = errors.New("invalid capability")
)

// Store holds capability grants. A nil *Store grants nothing.
type Store struct {
	mu sync.RWMutex
	// grants maps a capability to the normalised names holding it, each
	// mapped to the name as it was granted.
	grants   map[string]map[string]string
	filePath string
}

type storeFile struct {
	Capabilities map[string][]string `toml:"capabilities"`
}

// LoadStore loads the store kept in the file at path. If the file does not
// exist yet, it is created without any grants.
func LoadStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("permission store path must not be empty")
	}
	s := &Store{filePath: path}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// Has reports if the player with the name passed holds capability.
func (s *Store) Has(name, capability string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.grants[capability][normalizeName(name)]
	return ok
}

// Grant gives capability to the player with the name passed. The returned
// bool is false if the player already held it.
func (s *Store) Grant(name, capability string) (bool, error) {
	key, trimmed, capability, err := s.validate(name, capability)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	holders, ok := s.grants[capability]
	if !ok {
		holders = make(map[string]string)
		s.grants[capability] = holders
	}
	if _, exists := holders[key]; exists {
		return false, nil
	}
	holders[key] = trimmed
	if err := s.writeLocked(); err != nil {
		delete(holders, key)
		return false, err
	}
	return true, nil
}

// Revoke takes capability away from the player with the name passed. The
// returned bool is false if the player did not hold it.
func (s *Store) Revoke(name, capability string) (bool, error) {
	key, _, capability, err := s.validate(name, capability)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	holders := s.grants[capability]
	original, exists := holders[key]
	if !exists {
		return false, nil
	}
	delete(holders, key)
	if err := s.writeLocked(); err != nil {
		holders[key] = original
		return false, err
	}
	return true, nil
}

// Holders returns the names holding capability, sorted case-insensitively.
func (s *Store) Holders(capability string) []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedNames(s.grants[strings.TrimSpace(capability)])
}

// Capabilities returns every capability with at least one holder, sorted.
func (s *Store) Capabilities() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	caps := make([]string, 0, len(s.grants))
	for capability, holders := range s.grants {
		if len(holders) != 0 {
			caps = append(caps, capability)
		}
	}
	slices.Sort(caps)
	return caps
}

func (s *Store) validate(name, capability string) (key, trimmed, c string, err error) {
	if s == nil {
		return "", "", "", ErrUnavailable
	}
	trimmed = strings.TrimSpace(name)
	if trimmed == "" {
		return "", "", "", ErrInvalidName
	}
	c = strings.TrimSpace(capability)
	if c == "" {
		return "", "", "", ErrInvalidCapability
	}
	return normalizeName(trimmed), trimmed, c, nil
}

func (s *Store) reloadLocked() error {
	data := storeFile{}
	contents, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.grants = make(map[string]map[string]string)
			return s.writeLocked()
		}
		return fmt.Errorf("read permissions: %w", err)
	}
	if len(contents) != 0 {
		if err := toml.Unmarshal(contents, &data); err != nil {
			return fmt.Errorf("decode permissions: %w", err)
		}
	}
	s.grants = make(map[string]map[string]string, len(data.Capabilities))
	for capability, names := range data.Capabilities {
		capability = strings.TrimSpace(capability)
		if capability == "" {
			continue
		}
		holders := make(map[string]string, len(names))
		for _, name := range names {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				holders[normalizeName(trimmed)] = trimmed
			}
		}
		s.grants[capability] = holders
	}
	return nil
}

func (s *Store) writeLocked() error {
	dir := filepath.Dir(s.filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return fmt.Errorf("create permissions directory: %w", err)
		}
	}
	data := storeFile{Capabilities: make(map[string][]string, len(s.grants))}
	for capability, holders := range s.grants {
		if len(holders) != 0 {
			data.Capabilities[capability] = sortedNames(holders)
		}
	}
	encoded, err := toml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	if err := os.WriteFile(s.filePath, encoded, 0644); err != nil {
		return fmt.Errorf("write permissions: %w", err)
	}
	return nil
}

func sortedNames(holders map[string]string) []string {
	names := make([]string, 0, len(holders))
	for _, name := range holders {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		lowerA, lowerB := strings.ToLower(a), strings.ToLower(b)
		if lowerA == lowerB {
			return strings.Compare(a, b)
		}
		return strings.Compare(lowerA, lowerB)
	})
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
