package groups

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// maxSuggestions caps every suggestion list.
const maxSuggestions = 10

const (
	refsPrefix    = "refs/"
	headsPrefix   = "refs/heads/"
	changesPrefix = "refs/changes/"
)

// Suggest returns candidate group names for a "git/" display-name prefix.
//
// One field after the prefix matches project names, two match branches of
// the named project, three match file paths at the named ref. Repository
// errors degrade to an empty result; suggestions are best effort.
func (b *Backend) Suggest(name string) []Descriptor {
	if !strings.HasPrefix(name, NamePrefix) || name == NamePrefix {
		return nil
	}

	p := strings.Split(name[len(NamePrefix):], ":")
	switch len(p) {
	case 1:
		return b.suggestProject(p[0])
	case 2:
		return b.suggestBranch(p[0], p[1])
	case 3:
		return b.suggestFile(p[0], p[1], p[2])
	default:
		return nil
	}
}

func (b *Backend) suggestProject(prefix string) []Descriptor {
	projects, err := b.repos.List()
	if err != nil {
		b.log.Warn().Err(err).Msg("cannot list projects")
		return nil
	}

	var matches []Descriptor
	for _, project := range projects {
		if !strings.HasPrefix(project, prefix) {
			continue
		}
		matches = append(matches, describeUUID(UUIDPrefix+project+":"))
		if len(matches) == maxSuggestions {
			break
		}
	}
	return matches
}

func (b *Backend) suggestBranch(project, refPrefix string) []Descriptor {
	repo, err := b.repos.Open(project)
	if err != nil {
		return nil
	}
	iter, err := repo.References()
	if err != nil {
		b.log.Warn().Err(err).Str("project", project).Msg("cannot read refs")
		return nil
	}
	defer iter.Close()

	var matches []Descriptor
	fullForm := strings.HasPrefix(refPrefix, refsPrefix)
	if !fullForm && strings.HasPrefix(DefaultBranch, refPrefix) {
		matches = append(matches, describeUUID(UUIDPrefix+project+":"+DefaultBranch+":"))
	}
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		if len(matches) == maxSuggestions {
			return nil
		}
		name := ref.Name().String()
		if strings.HasPrefix(name, changesPrefix) || ref.Type() != plumbing.HashReference {
			return nil
		}

		if fullForm {
			if strings.HasPrefix(name, refPrefix) {
				matches = append(matches, describeUUID(UUIDPrefix+project+":"+name+":"))
			}
			return nil
		}
		// Shorthand prefixes match against the part after refs/heads/.
		if strings.HasPrefix(name, headsPrefix) {
			short := name[len(headsPrefix):]
			if strings.HasPrefix(short, refPrefix) {
				matches = append(matches, describeUUID(UUIDPrefix+project+":"+short+":"))
			}
		}
		return nil
	})
	return matches
}

func (b *Backend) suggestFile(project, branch, filePrefix string) []Descriptor {
	repo, err := b.repos.Open(project)
	if err != nil {
		return nil
	}
	ref, err := resolveLeaf(repo, branch)
	if err != nil {
		return nil
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		b.log.Warn().Err(err).Str("project", project).Str("branch", branch).Msg("cannot read branch")
		return nil
	}
	tree, err := commit.Tree()
	if err != nil {
		b.log.Warn().Err(err).Str("project", project).Str("branch", branch).Msg("cannot read branch")
		return nil
	}

	var matches []Descriptor
	tw := object.NewTreeWalker(tree, true, nil)
	defer tw.Close()
	for len(matches) < maxSuggestions {
		path, entry, err := tw.Next()
		if err != nil {
			break
		}
		if !entry.Mode.IsFile() || !strings.HasPrefix(path, filePrefix) {
			continue
		}
		matches = append(matches, describeUUID(UUIDPrefix+project+":"+branch+":"+path))
	}
	return matches
}

func describeUUID(uuid string) Descriptor {
	return Descriptor{UUID: uuid, Name: DisplayNameOf(uuid)}
}
