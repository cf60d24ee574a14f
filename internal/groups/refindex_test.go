package groups

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubCache is a GroupCache that records refresh requests.
type stubCache struct {
	present   map[string]*MemberList
	refreshed []string
}

func newStubCache(keys ...string) *stubCache {
	present := make(map[string]*MemberList, len(keys))
	for _, key := range keys {
		present[key] = &MemberList{}
	}
	return &stubCache{present: present}
}

func (s *stubCache) GetIfPresent(key string) (*MemberList, bool) {
	list, ok := s.present[key]
	return list, ok
}

func (s *stubCache) Refresh(key string) {
	s.refreshed = append(s.refreshed, key)
}

func TestRefIndexRefreshesDependents(t *testing.T) {
	cache := newStubCache("git:proj:file")
	index := NewRefIndex()
	index.BindCache(cache)
	index.Register("git:proj:file", "proj", "refs/heads/main")

	index.OnRefsUpdated("proj", []string{"refs/heads/main"})
	assert.Equal(t, []string{"git:proj:file"}, cache.refreshed)
}

func TestRefIndexIgnoresUnrelatedEvents(t *testing.T) {
	cache := newStubCache("git:proj:file")
	index := NewRefIndex()
	index.BindCache(cache)
	index.Register("git:proj:file", "proj", "refs/heads/main")

	index.OnRefsUpdated("other", []string{"refs/heads/main"})
	index.OnRefsUpdated("proj", []string{"refs/heads/feature"})
	assert.Empty(t, cache.refreshed)
}

func TestRefIndexDropsEvictedEntries(t *testing.T) {
	cache := newStubCache() // nothing cached
	index := NewRefIndex()
	index.BindCache(cache)
	index.Register("git:proj:file", "proj", "refs/heads/main")

	index.OnRefsUpdated("proj", []string{"refs/heads/main"})

	assert.Empty(t, cache.refreshed)
	assert.Equal(t, 0, index.Dependents("proj", "refs/heads/main"))
	// The project itself is pruned once its last ref entry empties.
	assert.Empty(t, index.TrackedRefs("proj"))
}

func TestRefIndexDeregisterPrunes(t *testing.T) {
	index := NewRefIndex()
	index.Register("g1", "proj", "refs/heads/main")
	index.Register("g2", "proj", "refs/heads/main")
	index.Register("g3", "proj", "refs/heads/release")

	index.Deregister("g1", "proj", "refs/heads/main")
	assert.Equal(t, 1, index.Dependents("proj", "refs/heads/main"))
	assert.ElementsMatch(t, []string{"refs/heads/main", "refs/heads/release"}, index.TrackedRefs("proj"))

	index.Deregister("g2", "proj", "refs/heads/main")
	assert.ElementsMatch(t, []string{"refs/heads/release"}, index.TrackedRefs("proj"))

	index.Deregister("g3", "proj", "refs/heads/release")
	assert.Empty(t, index.TrackedRefs("proj"))

	// Deregistering what is not registered is a no-op.
	index.Deregister("g3", "proj", "refs/heads/release")
	index.Deregister("g3", "nosuch", "refs/heads/release")
}

func TestRefIndexEventBeforeRegistration(t *testing.T) {
	cache := newStubCache("git:proj:file")
	index := NewRefIndex()
	index.BindCache(cache)

	// A change event racing ahead of the first registration finds nothing.
	index.OnRefsUpdated("proj", []string{"refs/heads/main"})
	assert.Empty(t, cache.refreshed)
}

func TestRefIndexMultipleDependentsOneRef(t *testing.T) {
	cache := newStubCache("g1", "g2")
	index := NewRefIndex()
	index.BindCache(cache)
	index.Register("g1", "proj", "refs/heads/main")
	index.Register("g2", "proj", "refs/heads/main")

	index.OnRefsUpdated("proj", []string{"refs/heads/main", "refs/heads/untracked"})
	assert.ElementsMatch(t, []string{"g1", "g2"}, cache.refreshed)
}
