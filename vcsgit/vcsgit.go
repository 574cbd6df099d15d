// Package vcsgit fetches package sources from git: listing a remote's
// version tags and shallow-cloning a chosen tag. It shells out to the
// system git binary, the same subprocess boundary the original
// implementation uses, rather than linking a git library -- the manager
// needs exactly "list tags" and "shallow clone", both of which the host
// tool already does correctly and portably.
package vcsgit

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mthds-ai/mthds/mtherr"
	"github.com/mthds-ai/mthds/semver"
	"github.com/sirupsen/logrus"
)

const (
	// ListTagsTimeout bounds a remote tag listing.
	ListTagsTimeout = 60 * time.Second
	// CloneTimeout bounds a shallow clone.
	CloneTimeout = 120 * time.Second
)

// Tag pairs a parsed version with the git tag name it came from, since the
// tag name (not the version's canonical string) is what must be passed to
// clone.
type Tag struct {
	Version semver.Version
	Name    string
}

// AddressToCloneURL builds the https clone URL for a package address.
func AddressToCloneURL(address string) string {
	if strings.HasSuffix(address, ".git") {
		return "https://" + address
	}
	return "https://" + address + ".git"
}

// ListVersionTags lists the remote's tags and returns the subset that
// parse as semver versions, silently dropping the rest (release candidates,
// "latest", etc. are not versions this manager can select against).
func ListVersionTags(ctx context.Context, address string) ([]Tag, error) {
	url := AddressToCloneURL(address)

	ctx, cancel := context.WithTimeout(ctx, ListTagsTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-remote", "--tags", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return nil, vcsError(ctx, err, stderr.String())
	}

	var tags []Tag
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		ref := parts[1]
		if strings.HasSuffix(ref, "^{}") {
			continue
		}
		name := strings.TrimPrefix(ref, "refs/tags/")
		v, ok := semver.ParseTag(name)
		if !ok {
			continue
		}
		tags = append(tags, Tag{Version: v, Name: name})
	}
	return tags, nil
}

// ResolveVersionFromTags picks the minimal tag satisfying constraint from
// tags. When no tag satisfies it, the returned error lists the names of
// every tag that was available.
func ResolveVersionFromTags(tags []Tag, constraint semver.Constraint) (Tag, error) {
	if len(tags) == 0 {
		return Tag{}, mtherr.VersionResolutionError("no version tags found")
	}
	versions := make([]semver.Version, len(tags))
	byVersion := make(map[string]Tag, len(tags))
	for i, t := range tags {
		versions[i] = t.Version
		byVersion[t.Version.String()] = t
	}
	selected, ok := semver.SelectMinimum(versions, constraint)
	if !ok {
		available := make([]string, len(tags))
		for i, t := range tags {
			available[i] = t.Name
		}
		return Tag{}, mtherr.VersionResolutionError(fmt.Sprintf(
			"no tag satisfies constraint %q; available: %s", constraint, strings.Join(available, ", ")))
	}
	return byVersion[selected.String()], nil
}

// CloneAtVersion shallow-clones url at tag into dest, which must not
// already exist.
func CloneAtVersion(ctx context.Context, address, tag, dest string) error {
	url := AddressToCloneURL(address)

	ctx, cancel := context.WithTimeout(ctx, CloneTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", "--branch", tag, url, dest)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logrus.WithFields(logrus.Fields{"address": address, "tag": tag, "dest": dest}).Debug("cloning package")

	if err := cmd.Run(); err != nil {
		return vcsError(ctx, err, stderr.String())
	}
	return nil
}

func vcsError(ctx context.Context, err error, stderr string) *mtherr.Error {
	if ctx.Err() == context.DeadlineExceeded {
		return mtherr.VCSFetchError("timed out", ctx.Err())
	}
	if _, ok := err.(*exec.ExitError); ok {
		return mtherr.VCSFetchError(strings.TrimSpace(stderr), err)
	}
	if isNotFoundErr(err) {
		return mtherr.VCSFetchError("git is not installed", err)
	}
	return mtherr.VCSFetchError(strings.TrimSpace(stderr), err)
}

func isNotFoundErr(err error) bool {
	return strings.Contains(err.Error(), "executable file not found")
}
