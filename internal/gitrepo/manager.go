// Package gitrepo locates git repositories on local disk by project name.
package gitrepo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
)

// ErrRepositoryNotFound reports a project with no repository under the base
// directory.
var ErrRepositoryNotFound = errors.New("repository not found")

// Manager maps project names to repositories under one base directory.
// "<base>/<project>.git" (bare) is probed before "<base>/<project>"
// (bare or checkout). Project names may contain slashes.
type Manager struct {
	base string
}

// NewManager creates a manager rooted at base.
func NewManager(base string) *Manager {
	return &Manager{base: filepath.Clean(base)}
}

// Open opens the repository for project.
func (m *Manager) Open(project string) (*git.Repository, error) {
	if !validProjectName(project) {
		return nil, fmt.Errorf("%w: invalid project name %q", ErrRepositoryNotFound, project)
	}

	rel := filepath.FromSlash(project)
	for _, dir := range []string{rel + ".git", rel} {
		repo, err := git.PlainOpen(filepath.Join(m.base, dir))
		if err == nil {
			return repo, nil
		}
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("open %s: %w", project, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, project)
}

// List enumerates project names under the base directory, sorted. A
// directory counts as a repository when it holds a HEAD file or a .git
// directory; repositories are not descended into, so nested project names
// like "infra/tools" are found but a repository's own tree is not.
func (m *Manager) List() ([]string, error) {
	var projects []string

	err := filepath.WalkDir(m.base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == m.base {
			return nil
		}
		if !looksLikeRepository(path) {
			return nil
		}

		rel, err := filepath.Rel(m.base, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		name = strings.TrimSuffix(name, ".git")
		projects = append(projects, name)
		return filepath.SkipDir
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	sort.Strings(projects)
	return projects, nil
}

// validProjectName rejects names that would escape the base directory.
func validProjectName(project string) bool {
	if project == "" || strings.HasPrefix(project, "/") {
		return false
	}
	for _, part := range strings.Split(project, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

func looksLikeRepository(dir string) bool {
	if fi, err := os.Stat(filepath.Join(dir, "HEAD")); err == nil && fi.Mode().IsRegular() {
		return true
	}
	if fi, err := os.Stat(filepath.Join(dir, ".git")); err == nil && fi.IsDir() {
		return true
	}
	return false
}
