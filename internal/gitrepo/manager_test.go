package gitrepo

import (
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initBare(t *testing.T, base, dir string) {
	t.Helper()
	_, err := git.PlainInit(filepath.Join(base, filepath.FromSlash(dir)), true)
	require.NoError(t, err)
}

func initCheckout(t *testing.T, base, dir string) {
	t.Helper()
	_, err := git.PlainInit(filepath.Join(base, filepath.FromSlash(dir)), false)
	require.NoError(t, err)
}

func TestManagerOpenBare(t *testing.T) {
	base := t.TempDir()
	initBare(t, base, "proj.git")

	m := NewManager(base)
	repo, err := m.Open("proj")
	require.NoError(t, err)
	assert.NotNil(t, repo)
}

func TestManagerOpenCheckout(t *testing.T) {
	base := t.TempDir()
	initCheckout(t, base, "proj")

	m := NewManager(base)
	repo, err := m.Open("proj")
	require.NoError(t, err)
	assert.NotNil(t, repo)
}

func TestManagerOpenPrefersBareSuffix(t *testing.T) {
	base := t.TempDir()
	initBare(t, base, "proj.git")
	initCheckout(t, base, "proj")

	m := NewManager(base)
	repo, err := m.Open("proj")
	require.NoError(t, err)

	cfg, err := repo.Config()
	require.NoError(t, err)
	assert.True(t, cfg.Core.IsBare)
}

func TestManagerOpenNested(t *testing.T) {
	base := t.TempDir()
	initBare(t, base, "infra/tools.git")

	m := NewManager(base)
	_, err := m.Open("infra/tools")
	require.NoError(t, err)
}

func TestManagerOpenMissing(t *testing.T) {
	m := NewManager(t.TempDir())
	_, err := m.Open("absent")
	assert.ErrorIs(t, err, ErrRepositoryNotFound)
}

func TestManagerOpenRejectsEscapingNames(t *testing.T) {
	m := NewManager(t.TempDir())

	for _, name := range []string{"", "..", "../evil", "a/../../b", "/abs", "a//b", "."} {
		_, err := m.Open(name)
		assert.ErrorIs(t, err, ErrRepositoryNotFound, "name %q", name)
	}
}

func TestManagerList(t *testing.T) {
	base := t.TempDir()
	initBare(t, base, "proj.git")
	initCheckout(t, base, "other")
	initBare(t, base, "infra/tools.git")

	m := NewManager(base)
	projects, err := m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"infra/tools", "other", "proj"}, projects)
}

func TestManagerListEmptyBase(t *testing.T) {
	m := NewManager(t.TempDir())
	projects, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, projects)
}
