package groups

import "sync"

// GroupCache is the slice of the membership cache the index drives when a
// ref moves: presence checks and fire-and-forget refresh requests.
type GroupCache interface {
	GetIfPresent(key string) (*MemberList, bool)
	Refresh(key string)
}

// RefIndex is the reverse map from (project, ref) to the cached group UUIDs
// whose member list depends on that ref.
//
// Entries are registered after every successful load and deregistered when a
// reload observes the leaf ref changed, or lazily when a change event finds
// the UUID evicted from the cache. Empty ref- and project-level maps are
// pruned immediately so the index holds live dependencies only.
//
// One mutex guards the whole structure; registration from loads and
// invalidation from change events may interleave arbitrarily. A change event
// arriving before a UUID's first registration finds nothing to refresh,
// which is correct.
type RefIndex struct {
	mu    sync.Mutex
	live  map[string]map[string]map[string]struct{}
	cache GroupCache
}

// NewRefIndex creates an empty index. BindCache must be called before change
// events are delivered.
func NewRefIndex() *RefIndex {
	return &RefIndex{live: make(map[string]map[string]map[string]struct{})}
}

// BindCache attaches the membership cache the index refreshes. Split from
// the constructor because the cache's loader needs the index first.
func (x *RefIndex) BindCache(c GroupCache) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.cache = c
}

// Register records that the cached entry for uuid depends on (project, ref).
func (x *RefIndex) Register(uuid, project, ref string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	p, ok := x.live[project]
	if !ok {
		p = make(map[string]map[string]struct{})
		x.live[project] = p
	}
	r, ok := p[ref]
	if !ok {
		r = make(map[string]struct{})
		p[ref] = r
	}
	r[uuid] = struct{}{}
}

// Deregister removes uuid's dependency on (project, ref), pruning empty
// entries.
func (x *RefIndex) Deregister(uuid, project, ref string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	p, ok := x.live[project]
	if !ok {
		return
	}
	r, ok := p[ref]
	if !ok {
		return
	}

	delete(r, uuid)
	if len(r) == 0 {
		delete(p, ref)
		if len(p) == 0 {
			delete(x.live, project)
		}
	}
}

// OnRefsUpdated handles a repository-change event.
//
// Projects with no tracked refs return immediately. For every updated ref
// with dependents, each dependent UUID still present in the cache gets an
// asynchronous refresh; UUIDs the cache has evicted are dropped from the
// index instead.
func (x *RefIndex) OnRefsUpdated(project string, refs []string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	p, ok := x.live[project]
	if !ok {
		// No groups use this project.
		return
	}

	for _, ref := range refs {
		r, ok := p[ref]
		if !ok {
			continue
		}
		for uuid := range r {
			if _, live := x.cache.GetIfPresent(uuid); live {
				x.cache.Refresh(uuid)
			} else {
				delete(r, uuid)
			}
		}
		if len(r) == 0 {
			delete(p, ref)
		}
	}

	if len(p) == 0 {
		delete(x.live, project)
	}
}

// Dependents returns how many UUIDs depend on (project, ref).
func (x *RefIndex) Dependents(project, ref string) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.live[project][ref])
}

// TrackedRefs returns the refs of project that have dependents.
func (x *RefIndex) TrackedRefs(project string) []string {
	x.mu.Lock()
	defer x.mu.Unlock()

	p := x.live[project]
	refs := make([]string, 0, len(p))
	for ref := range p {
		refs = append(refs, ref)
	}
	return refs
}
