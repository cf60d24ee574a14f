package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"
)

// RepositoryOpener opens a project's repository by name.
type RepositoryOpener interface {
	Open(project string) (*git.Repository, error)
}

// defaultQueueDepth bounds how many refresh requests may wait on the worker.
const defaultQueueDepth = 64

// Loader reads member lists from git repositories.
//
// Load runs on the caller's goroutine and blocks on repository I/O. All
// reloads run on a single background worker, strictly one at a time in
// submission order, so repository read concurrency from refresh traffic is
// bounded to one. The worker's lifecycle is explicit: Start once at service
// start, Stop at service stop. Stop abandons queued and in-flight work;
// callers of Reload never learn about abandonment because a refresh is
// fire-and-forget and the previous value stays good.
type Loader struct {
	repos RepositoryOpener
	index *RefIndex
	log   zerolog.Logger

	mu      sync.Mutex
	running bool
	tasks   chan reloadTask
	done    chan struct{}
}

type reloadTask struct {
	key     string
	prev    *MemberList
	install func(*MemberList)
}

// NewLoader creates a stopped loader. queueDepth <= 0 selects the default.
func NewLoader(repos RepositoryOpener, index *RefIndex, queueDepth int, log zerolog.Logger) *Loader {
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	return &Loader{
		repos: repos,
		index: index,
		log:   log,
		tasks: make(chan reloadTask, queueDepth),
	}
}

// Start launches the background refresh worker.
func (l *Loader) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.done = make(chan struct{})
	go l.run(l.done)
}

// Stop shuts the worker down. Queued and in-flight reloads are abandoned
// without completing.
func (l *Loader) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	close(l.done)
}

// Load resolves uuid into a fresh member list and registers its (project,
// ref) dependency. Synchronous; failures surface to the caller.
func (l *Loader) Load(_ context.Context, uuid string) (*MemberList, error) {
	list, err := l.resolve(uuid, nil)
	if err != nil {
		return nil, err
	}
	// Registration precedes the caller's cache install. A change event in
	// that window sees a cache miss and drops the registration again, so
	// the installed entry is refreshed only after its next cold load.
	l.index.Register(uuid, list.Project, list.RefName)
	return list, nil
}

// Reload submits a refresh for uuid to the background worker. If the worker
// is not running or its queue is full, the previous list is kept and install
// is completed with it immediately; Reload never fails.
func (l *Loader) Reload(uuid string, prev *MemberList, install func(*MemberList)) {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		install(prev)
		return
	}
	done := l.done
	l.mu.Unlock()

	task := reloadTask{key: uuid, prev: prev, install: install}
	select {
	case l.tasks <- task:
	case <-done:
		install(prev)
	default:
		install(prev)
	}
}

func (l *Loader) run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case t := <-l.tasks:
			t.install(l.reloadOne(t.key, t.prev))
		}
	}
}

// reloadOne re-resolves one group on the worker. Failures are logged and the
// previous list is returned unchanged: once a group has resolved, transient
// repository errors never evict it.
func (l *Loader) reloadOne(uuid string, prev *MemberList) *MemberList {
	next, err := l.resolve(uuid, prev)
	if err != nil {
		l.log.Warn().Err(err).Str("group", uuid).Msg("cannot reload group, keeping prior version")
		return prev
	}
	if next.RefName != prev.RefName {
		l.index.Deregister(uuid, prev.Project, prev.RefName)
		l.index.Register(uuid, next.Project, next.RefName)
	}
	return next
}

// resolve reads the membership file for uuid. When prev is given, content
// addresses short-circuit the read: an unmoved ref skips the tree walk, an
// unchanged blob skips the re-parse and returns prev as-is.
func (l *Loader) resolve(uuid string, prev *MemberList) (*MemberList, error) {
	id, err := ParseID(uuid)
	if err != nil {
		return nil, err
	}

	repo, err := l.repos.Open(id.Project)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", uuid, ErrRepository, err)
	}

	ref, err := resolveLeaf(repo, id.Branch)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("%s: %w", uuid, ErrMissingBranch)
		}
		return nil, fmt.Errorf("%s: %w: %v", uuid, ErrRepository, err)
	}

	refHash := ref.Hash()
	if prev != nil && prev.RefHash == refHash {
		return prev, nil
	}

	commit, err := repo.CommitObject(refHash)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", uuid, ErrRepository, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", uuid, ErrRepository, err)
	}

	entry, err := tree.FindEntry(id.File)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uuid, ErrMissingFile)
	}

	if prev != nil && prev.FileHash == entry.Hash {
		return prev, nil
	}

	obj, err := repo.Storer.EncodedObject(plumbing.AnyObject, entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", uuid, ErrRepository, err)
	}
	if obj.Type() != plumbing.BlobObject {
		return nil, fmt.Errorf("%s: %w", uuid, ErrNotABlob)
	}
	rd, err := obj.Reader()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", uuid, ErrRepository, err)
	}
	defer rd.Close()

	members, err := parseMembers(rd, ref.Name().String(), id.File, refHash, l.log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", uuid, ErrRepository, err)
	}

	return NewMemberList(id, ref.Name().String(), refHash, entry.Hash, members), nil
}

// resolveLeaf resolves a branch name to its leaf reference, following
// symbolic indirection. Shorthand names probe refs/heads/ and refs/tags/
// before the literal spelling.
func resolveLeaf(repo *git.Repository, branch string) (*plumbing.Reference, error) {
	for _, name := range candidateRefNames(branch) {
		ref, err := repo.Reference(name, true)
		if err == nil {
			if ref.Hash().IsZero() {
				continue
			}
			return ref, nil
		}
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, err
		}
	}
	return nil, plumbing.ErrReferenceNotFound
}

func candidateRefNames(branch string) []plumbing.ReferenceName {
	if branch == DefaultBranch {
		return []plumbing.ReferenceName{plumbing.HEAD}
	}
	if strings.HasPrefix(branch, "refs/") {
		return []plumbing.ReferenceName{plumbing.ReferenceName(branch)}
	}
	return []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(branch),
		plumbing.NewTagReferenceName(branch),
		plumbing.ReferenceName(branch),
	}
}
