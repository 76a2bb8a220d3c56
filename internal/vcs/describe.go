package vcs

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/jitolabs/cbuild/internal/fault"
)

const (

	// Hex digits kept from the commit hash.
	defaultAbbrev = 7

	// Appended when tracked files have uncommitted changes.
	defaultDirtyMark = "-dirty"

	// Tagged commits examined before the nearest one is chosen.
	defaultCandidates = 10
)

// Controls how a descriptor is formed. The zero value matches
// "git describe --tags --always --dirty".
type Options struct {
	Abbrev        int    // Hex digits of the abbreviated hash. Zero means 7.
	DirtyMark     string // Suffix for a modified work tree. Empty means "-dirty".
	IgnoreDirty   bool   // Never append the dirty suffix.
	AnnotatedOnly bool   // Skip lightweight tags.
	Candidates    int    // Tagged commits to consider. Zero means 10.
}

// A tag resolved to the commit it points at.
type tagRef struct {
	name      string
	annotated bool
}

// Returns the descriptor for the repository containing dir.
//
// The repository root may be dir itself or any of its parents. Fails with
// [ErrNotRepository] when no repository is found and with [ErrNoCommits]
// when HEAD does not point at a commit yet.
func Describe(dir string, opts Options) (string, error) {
	opts = opts.withDefaults()

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", fault.Wrapf(ErrNotRepository, "%s", dir)
		}
		return "", fault.Wrap(ErrDescribe, err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", ErrNoCommits
		}
		return "", fault.Wrap(ErrDescribe, err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return "", fault.Wrap(ErrDescribe, err)
	}

	tags, err := tagsByCommit(repo, opts.AnnotatedOnly)
	if err != nil {
		return "", fault.Wrap(ErrDescribe, err)
	}

	name, err := nearestTag(commit, tags, opts)
	if err != nil {
		return "", fault.Wrap(ErrDescribe, err)
	}

	if !opts.IgnoreDirty {
		dirty, err := isDirty(repo)
		if err != nil {
			return "", fault.Wrap(ErrDescribe, err)
		}
		if dirty {
			name += opts.DirtyMark
		}
	}

	slog.Debug("described repository", "head", head.Hash().String(), "descriptor", name)
	return name, nil
}

func (o Options) withDefaults() Options {
	if o.Abbrev <= 0 {
		o.Abbrev = defaultAbbrev
	}
	if o.DirtyMark == "" {
		o.DirtyMark = defaultDirtyMark
	}
	if o.Candidates <= 0 {
		o.Candidates = defaultCandidates
	}
	return o
}

// Maps each tagged commit to its preferred tag.
//
// Annotated tags are peeled to the commit they reference; tags pointing at
// other object types are skipped. When a commit carries several tags the
// annotated ones win, then the lexically greatest name.
func tagsByCommit(repo *git.Repository, annotatedOnly bool) (map[plumbing.Hash]tagRef, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	tags := make(map[plumbing.Hash]tagRef)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		target, annotated, err := peelTag(repo, ref)
		if err != nil || target.IsZero() {
			return err
		}
		if annotatedOnly && !annotated {
			return nil
		}

		candidate := tagRef{name: ref.Name().Short(), annotated: annotated}
		if current, ok := tags[target]; !ok || preferTag(candidate, current) {
			tags[target] = candidate
		}
		return nil
	})
	return tags, err
}

// Resolves a tag reference to the commit it points at. Returns a zero hash
// for annotated tags of non-commit objects.
func peelTag(repo *git.Repository, ref *plumbing.Reference) (plumbing.Hash, bool, error) {
	obj, err := repo.TagObject(ref.Hash())
	switch {
	case errors.Is(err, plumbing.ErrObjectNotFound):
		return ref.Hash(), false, nil
	case err != nil:
		return plumbing.ZeroHash, false, err
	}

	commit, err := obj.Commit()
	if err != nil {
		if errors.Is(err, object.ErrUnsupportedObject) {
			return plumbing.ZeroHash, true, nil
		}
		return plumbing.ZeroHash, true, err
	}
	return commit.Hash, true, nil
}

func preferTag(a, b tagRef) bool {
	if a.annotated != b.annotated {
		return a.annotated
	}
	return a.name > b.name
}

// Formats the descriptor of commit relative to the closest tagged ancestor.
//
// Tagged ancestors are collected newest first by committer time, up to
// opts.Candidates of them, and the one with the fewest commits not already
// contained in it wins. Ties go to the newer candidate.
func nearestTag(commit *object.Commit, tags map[plumbing.Hash]tagRef, opts Options) (string, error) {
	if tag, ok := tags[commit.Hash]; ok {
		return tag.name, nil
	}

	abbrev := abbreviate(commit.Hash, opts.Abbrev)
	if len(tags) == 0 {
		return abbrev, nil
	}

	var candidates []*object.Commit
	iter := object.NewCommitIterCTime(commit, nil, nil)
	err := iter.ForEach(func(c *object.Commit) error {
		if _, ok := tags[c.Hash]; ok {
			candidates = append(candidates, c)
			if len(candidates) >= opts.Candidates {
				return storer.ErrStop
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return abbrev, nil
	}

	reachable, err := ancestors(commit)
	if err != nil {
		return "", err
	}

	best, bestDepth := candidates[0], -1
	for _, c := range candidates {
		depth, err := depthSince(reachable, c)
		if err != nil {
			return "", err
		}
		if bestDepth < 0 || depth < bestDepth {
			best, bestDepth = c, depth
		}
	}

	return fmt.Sprintf("%s-%d-g%s", tags[best.Hash].name, bestDepth, abbrev), nil
}

// Returns the set of commits reachable from c, c included.
func ancestors(c *object.Commit) (map[plumbing.Hash]struct{}, error) {
	set := make(map[plumbing.Hash]struct{})
	err := object.NewCommitPreorderIter(c, nil, nil).ForEach(func(a *object.Commit) error {
		set[a.Hash] = struct{}{}
		return nil
	})
	return set, err
}

// Counts the commits in reachable that are not reachable from tagged.
func depthSince(reachable map[plumbing.Hash]struct{}, tagged *object.Commit) (int, error) {
	covered, err := ancestors(tagged)
	if err != nil {
		return 0, err
	}

	depth := 0
	for h := range reachable {
		if _, ok := covered[h]; !ok {
			depth++
		}
	}
	return depth, nil
}

func abbreviate(h plumbing.Hash, n int) string {
	s := h.String()
	return s[:min(n, len(s))]
}

// Reports whether tracked files differ from HEAD, staged or not. Untracked
// files are ignored. Bare repositories are never dirty.
func isDirty(repo *git.Repository) (bool, error) {
	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return false, nil
		}
		return false, err
	}

	status, err := wt.Status()
	if err != nil {
		return false, err
	}

	changed := make([]string, 0, len(status))
	for path, s := range status {
		if s.Staging == git.Untracked && s.Worktree == git.Untracked {
			continue
		}
		if s.Staging == git.Unmodified && s.Worktree == git.Unmodified {
			continue
		}
		changed = append(changed, path)
	}

	if len(changed) > 0 {
		slices.Sort(changed)
		slog.Debug("work tree is dirty", "files", strings.Join(changed, ","))
	}
	return len(changed) > 0, nil
}
