package groups

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/GerritCodeReview/plugins-gitgroups/internal/cache"
)

// Descriptor describes one resolvable group for the host.
type Descriptor struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Backend answers group queries against the membership cache. It is the
// host-facing contract: Handles, Describe, MembershipsOf and Suggest.
type Backend struct {
	cache *cache.Cache[string, *MemberList]
	repos ProjectSource
	log   zerolog.Logger
}

// ProjectSource is the repository access the backend needs beyond the
// loader: opening repositories and enumerating project names for suggest.
type ProjectSource interface {
	RepositoryOpener
	List() ([]string, error)
}

// NewBackend creates a backend over an existing membership cache.
func NewBackend(c *cache.Cache[string, *MemberList], repos ProjectSource, log zerolog.Logger) *Backend {
	return &Backend{cache: c, repos: repos, log: log}
}

// Handles reports whether uuid belongs to this backend.
func (b *Backend) Handles(uuid string) bool {
	return Handles(uuid)
}

// Describe resolves uuid and returns its descriptor. Any resolution failure
// is reported as absence.
func (b *Backend) Describe(ctx context.Context, uuid string) (*Descriptor, bool) {
	if !b.Handles(uuid) {
		return nil, false
	}
	if _, err := b.cache.Get(ctx, uuid); err != nil {
		return nil, false
	}
	return &Descriptor{UUID: uuid, Name: DisplayNameOf(uuid)}, true
}

// MembershipsOf returns a membership view bound to one caller's username and
// known email addresses.
func (b *Backend) MembershipsOf(username string, emails []string) *Membership {
	return &Membership{
		b:        b,
		username: username,
		emails:   emails,
		invalid:  make(map[string]struct{}),
	}
}

// Membership answers "is this caller in group G" against the cache.
//
// Resolution failure never grants membership: a group that does not resolve
// answers false. Each failing UUID is logged once per view to keep repeated
// checks from flooding the log.
type Membership struct {
	b        *Backend
	username string
	emails   []string

	mu      sync.Mutex
	invalid map[string]struct{}
}

// Contains reports whether the caller is a member of uuid, loading the group
// on cache miss.
func (m *Membership) Contains(ctx context.Context, uuid string) bool {
	list, err := m.b.cache.Get(ctx, uuid)
	if err != nil {
		m.warnOnce(uuid, err)
		return false
	}
	return list.Contains(m.username, m.emails)
}

// ContainsAnyOf reports whether the caller is a member of any of the given
// groups. Groups already in the cache are checked first without I/O; only if
// none of those match are the missing ones loaded, stopping at the first
// match.
func (m *Membership) ContainsAnyOf(ctx context.Context, uuids []string) bool {
	missing := 0
	for _, uuid := range uuids {
		list, ok := m.b.cache.GetIfPresent(uuid)
		if !ok {
			missing++
			continue
		}
		if list.Contains(m.username, m.emails) {
			return true
		}
	}
	if missing > 0 {
		for _, uuid := range uuids {
			if m.Contains(ctx, uuid) {
				return true
			}
		}
	}
	return false
}

// KnownGroups returns the empty set. The group space is unbounded and
// resolved on demand; enumeration is deliberately unsupported.
func (m *Membership) KnownGroups() []string {
	return nil
}

func (m *Membership) warnOnce(uuid string, err error) {
	m.mu.Lock()
	_, seen := m.invalid[uuid]
	if !seen {
		m.invalid[uuid] = struct{}{}
	}
	m.mu.Unlock()

	if !seen {
		if IsInvalidGroup(err) {
			m.b.log.Warn().Err(err).Msg("group does not resolve")
		} else {
			m.b.log.Warn().Err(err).Str("group", uuid).Msg("cannot read group")
		}
	}
}
