// Package prefs is the client-side preference store: a small YAML document
// of named, typed values kept per device.
package prefs

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/starford/jotter/internal/models"
)

// Key names a preference and its type.
type Key[T any] struct {
	Name    string
	Default T
	Rules   []validation.Rule
}

// Fixed preference keys.
var (
	HomeNoteMode = Key[string]{
		Name:    "home-note-mode",
		Default: "text",
		Rules:   []validation.Rule{validation.In("text", "list")},
	}
	FullScreen = Key[bool]{
		Name: "full-screen",
	}
	NotesFilter = Key[string]{
		Name:    "notes-filter",
		Default: "all",
		Rules:   []validation.Rule{validation.In("mine", "all")},
	}
	SelectedTags = Key[[]string]{
		Name:    "selected-tags",
		Default: []string{},
	}
	CommandPrefix = Key[string]{
		Name:    "command-prefix",
		Default: "/",
		Rules:   []validation.Rule{validation.Required, validation.RuneLength(1, 1)},
	}
)

// Names lists the fixed keys.
var Names = []string{
	HomeNoteMode.Name,
	FullScreen.Name,
	NotesFilter.Name,
	SelectedTags.Name,
	CommandPrefix.Name,
}

// Store holds preferences in memory and writes every change to its file.
type Store struct {
	fs   afero.Fs
	path string

	mu     sync.Mutex
	values map[string]any
}

// Open loads the preference file at path. A missing file is an empty store.
func Open(fs afero.Fs, path string) (*Store, error) {
	s := &Store{fs: fs, path: path, values: make(map[string]any)}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("stat prefs: %w", err)
	}
	if !exists {
		return s, nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parse prefs %s: %w", path, err)
	}
	if s.values == nil {
		s.values = make(map[string]any)
	}
	return s, nil
}

// Get returns the value stored under k, or k.Default when it is unset or
// does not decode as T.
func Get[T any](s *Store, k Key[T]) T {
	s.mu.Lock()
	raw, ok := s.values[k.Name]
	s.mu.Unlock()
	if !ok {
		return k.Default
	}
	if v, ok := raw.(T); ok {
		return v
	}
	// Values read back from YAML come as generic types ([]any for lists).
	b, err := yaml.Marshal(raw)
	if err != nil {
		return k.Default
	}
	var v T
	if err := yaml.Unmarshal(b, &v); err != nil {
		return k.Default
	}
	return v
}

// Set validates v against k's rules, stores it and writes the file.
func Set[T any](s *Store, k Key[T], v T) error {
	if err := validation.Validate(v, k.Rules...); err != nil {
		return fmt.Errorf("%s: %w", k.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[k.Name] = v
	return s.flush()
}

// Reset removes name so its default applies again.
func (s *Store) Reset(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, name)
	return s.flush()
}

// SetString parses raw for the fixed key name and stores it. Lists are
// comma separated.
func (s *Store) SetString(name, raw string) error {
	switch name {
	case HomeNoteMode.Name:
		return Set(s, HomeNoteMode, raw)
	case NotesFilter.Name:
		return Set(s, NotesFilter, raw)
	case CommandPrefix.Name:
		return Set(s, CommandPrefix, raw)
	case FullScreen.Name:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return Set(s, FullScreen, b)
	case SelectedTags.Name:
		return Set(s, SelectedTags, models.ParseTags(raw))
	default:
		return fmt.Errorf("unknown preference %q", name)
	}
}

// Dump renders every fixed key with its effective value.
func (s *Store) Dump() map[string]any {
	return map[string]any{
		HomeNoteMode.Name:  Get(s, HomeNoteMode),
		FullScreen.Name:    Get(s, FullScreen),
		NotesFilter.Name:   Get(s, NotesFilter),
		SelectedTags.Name:  Get(s, SelectedTags),
		CommandPrefix.Name: Get(s, CommandPrefix),
	}
}

func (s *Store) flush() error {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		var v yaml.Node
		if err := v.Encode(s.values[k]); err != nil {
			return fmt.Errorf("encode %s: %w", k, err)
		}
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &v)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	return writeFileAtomic(s.fs, s.path, data)
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, ".prefs-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer fs.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}
	return nil
}
