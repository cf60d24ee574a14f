package groups

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

// fakeRepos serves in-memory repositories by project name and counts opens.
type fakeRepos struct {
	repos map[string]*git.Repository
	opens map[string]int
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		repos: make(map[string]*git.Repository),
		opens: make(map[string]int),
	}
}

func (f *fakeRepos) Open(project string) (*git.Repository, error) {
	f.opens[project]++
	repo, ok := f.repos[project]
	if !ok {
		return nil, fmt.Errorf("no repository for %s", project)
	}
	return repo, nil
}

func (f *fakeRepos) List() ([]string, error) {
	names := make([]string, 0, len(f.repos))
	for name := range f.repos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// newTestRepo builds an in-memory repository with one commit holding files.
func newTestRepo(t *testing.T, files map[string]string) *git.Repository {
	t.Helper()
	repo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	commitFiles(t, repo, files, "initial")
	return repo
}

// commitFiles writes and commits files on the current branch. An empty map
// produces an empty commit, moving the ref without touching any blob.
func commitFiles(t *testing.T, repo *git.Repository, files map[string]string, msg string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for path, content := range files {
		require.NoError(t, util.WriteFile(wt.Filesystem, path, []byte(content), 0o644))
		_, err = wt.Add(path)
		require.NoError(t, err)
	}

	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author:            testSignature(),
		AllowEmptyCommits: true,
	})
	require.NoError(t, err)
	return hash
}

func testSignature() *object.Signature {
	return &object.Signature{
		Name:  "Test",
		Email: "test@example.com",
		When:  time.Now(),
	}
}
