package groups

import (
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
)

// MemberList holds the usernames and email addresses that are in a group,
// resolved at one repository state.
//
// A MemberList is immutable after construction. RefHash and FileHash are the
// content addresses read at the moment the member set was computed: two lists
// with equal hashes carry identical members, so a reload can skip re-reading
// file content entirely.
type MemberList struct {
	ID       ID
	Project  string
	RefName  string
	RefHash  plumbing.Hash
	FileHash plumbing.Hash

	members map[string]struct{}
}

// NewMemberList builds a frozen member list. Duplicate tokens collapse.
func NewMemberList(id ID, refName string, refHash, fileHash plumbing.Hash, members []string) *MemberList {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return &MemberList{
		ID:       id,
		Project:  id.Project,
		RefName:  refName,
		RefHash:  refHash,
		FileHash: fileHash,
		members:  set,
	}
}

// Contains reports whether the username or any of the email addresses is a
// member token. Pure lookup, no I/O.
func (m *MemberList) Contains(username string, emails []string) bool {
	if username != "" {
		if _, ok := m.members[username]; ok {
			return true
		}
	}
	for _, addr := range emails {
		if _, ok := m.members[addr]; ok {
			return true
		}
	}
	return false
}

// Members returns the member tokens in sorted order.
func (m *MemberList) Members() []string {
	out := make([]string, 0, len(m.members))
	for member := range m.members {
		out = append(out, member)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of member tokens.
func (m *MemberList) Len() int {
	return len(m.members)
}

// Weight estimates the cache cost of this entry.
//
// TODO: the estimate should accumulate across members; today it tracks a
// single member's token length. Fixing it changes eviction pressure for
// every deployment, so take it together with retuning CACHE_MAX_WEIGHT.
func (m *MemberList) Weight() int {
	w := 0
	for member := range m.members {
		w = len(member)*2 + 32
	}
	return w
}

func (m *MemberList) String() string {
	return m.ID.String()
}
