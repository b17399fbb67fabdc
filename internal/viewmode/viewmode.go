// Package viewmode switches the note editor between a raw text view and a
// row-per-line list view of the same string.
package viewmode

import (
	"fmt"
	"strings"

	"github.com/starford/jotter/internal/prefs"
)

// Mode is an editor view.
type Mode string

const (
	Text Mode = "text"
	List Mode = "list"
)

// Machine holds the current mode and persists every toggle.
type Machine struct {
	store *prefs.Store
	mode  Mode
}

// New restores the last mode from store, starting in Text when none was saved.
func New(store *prefs.Store) *Machine {
	m := Mode(prefs.Get(store, prefs.HomeNoteMode))
	if m != List {
		m = Text
	}
	return &Machine{store: store, mode: m}
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode { return m.mode }

// Toggle flips between Text and List and saves the result.
func (m *Machine) Toggle() (Mode, error) {
	next := List
	if m.mode == List {
		next = Text
	}
	if err := prefs.Set(m.store, prefs.HomeNoteMode, string(next)); err != nil {
		return m.mode, fmt.Errorf("persist view mode: %w", err)
	}
	m.mode = next
	return next, nil
}

// Rows splits text into one row per line. Blank lines are rows too, so Join
// restores text exactly.
func Rows(text string) []string {
	return strings.Split(text, "\n")
}

// Join re-serializes rows into text.
func Join(rows []string) string {
	return strings.Join(rows, "\n")
}

// Move returns a copy of rows with the row at from moved to index to.
func Move(rows []string, from, to int) ([]string, error) {
	if from < 0 || from >= len(rows) || to < 0 || to >= len(rows) {
		return nil, fmt.Errorf("move %d->%d: out of range for %d rows", from, to, len(rows))
	}
	out := make([]string, 0, len(rows))
	out = append(out, rows[:from]...)
	out = append(out, rows[from+1:]...)
	row := rows[from]
	out = append(out[:to], append([]string{row}, out[to:]...)...)
	return out, nil
}

// Render returns text as the current mode displays it: unchanged in Text
// mode, numbered rows in List mode.
func (m *Machine) Render(text string) string {
	if m.mode == Text {
		return text
	}
	var b strings.Builder
	for i, r := range Rows(text) {
		fmt.Fprintf(&b, "%3d  %s\n", i+1, r)
	}
	return b.String()
}
