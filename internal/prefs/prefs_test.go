package prefs

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const path = "/home/u/.config/jotter/prefs.yaml"

func TestGet_Defaults(t *testing.T) {
	s, err := Open(afero.NewMemMapFs(), path)
	require.NoError(t, err)

	assert.Equal(t, "text", Get(s, HomeNoteMode))
	assert.False(t, Get(s, FullScreen))
	assert.Equal(t, "all", Get(s, NotesFilter))
	assert.Equal(t, []string{}, Get(s, SelectedTags))
	assert.Equal(t, "/", Get(s, CommandPrefix))
}

func TestSet_PersistsAcrossOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, path)
	require.NoError(t, err)

	require.NoError(t, Set(s, HomeNoteMode, "list"))
	require.NoError(t, Set(s, FullScreen, true))
	require.NoError(t, Set(s, NotesFilter, "mine"))
	require.NoError(t, Set(s, SelectedTags, []string{"work", "home"}))
	require.NoError(t, Set(s, CommandPrefix, ":"))

	reopened, err := Open(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "list", Get(reopened, HomeNoteMode))
	assert.True(t, Get(reopened, FullScreen))
	assert.Equal(t, "mine", Get(reopened, NotesFilter))
	assert.Equal(t, []string{"work", "home"}, Get(reopened, SelectedTags))
	assert.Equal(t, ":", Get(reopened, CommandPrefix))
}

func TestSet_RejectsInvalid(t *testing.T) {
	s, err := Open(afero.NewMemMapFs(), path)
	require.NoError(t, err)

	assert.Error(t, Set(s, HomeNoteMode, "grid"))
	assert.Error(t, Set(s, NotesFilter, "everyone"))
	assert.Error(t, Set(s, CommandPrefix, "//"))
	assert.Equal(t, "text", Get(s, HomeNoteMode))
}

func TestGet_WrongTypeFallsBackToDefault(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, path, []byte("full-screen: [1, 2]\n"), 0o644))

	s, err := Open(fs, path)
	require.NoError(t, err)
	assert.False(t, Get(s, FullScreen))
}

func TestOpen_Malformed(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, path, []byte("[unclosed"), 0o644))

	_, err := Open(fs, path)
	assert.Error(t, err)
}

func TestSetString(t *testing.T) {
	s, err := Open(afero.NewMemMapFs(), path)
	require.NoError(t, err)

	require.NoError(t, s.SetString("full-screen", "true"))
	require.NoError(t, s.SetString("selected-tags", "a, b,,c"))
	assert.True(t, Get(s, FullScreen))
	assert.Equal(t, []string{"a", "b", "c"}, Get(s, SelectedTags))

	assert.Error(t, s.SetString("full-screen", "maybe"))
	assert.Error(t, s.SetString("colour", "red"))
}

func TestReset(t *testing.T) {
	s, err := Open(afero.NewMemMapFs(), path)
	require.NoError(t, err)

	require.NoError(t, Set(s, CommandPrefix, "!"))
	require.NoError(t, s.Reset(CommandPrefix.Name))
	assert.Equal(t, "/", Get(s, CommandPrefix))
}

func TestDump(t *testing.T) {
	s, err := Open(afero.NewMemMapFs(), path)
	require.NoError(t, err)
	require.NoError(t, Set(s, NotesFilter, "mine"))

	d := s.Dump()
	assert.Len(t, d, len(Names))
	assert.Equal(t, "mine", d["notes-filter"])
}
