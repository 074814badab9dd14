package model

import (
	"fmt"
	"strings"
)

const (
	// metadata files
	headFile           = "HEAD"
	indexFile          = "index"
	repoDescriptorFile = "repo.json"

	// key prefixes inside the metadata store
	objectsPrefix   = "objects"
	refsHeadsPrefix = "refs/heads"
	refsTagsPrefix  = "refs/tags"

	// objectShardLen bounds per-directory fan-out: the first hex chars
	// of a hash become the shard directory, the rest the file name
	objectShardLen = 2

	// HeadRefPrefix introduces a symbolic HEAD record
	HeadRefPrefix = "ref: "
)

// ObjectPath returns the sharded store key for an object hash.
func ObjectPath(hash string) string {
	if len(hash) <= objectShardLen {
		return fmt.Sprint(objectsPrefix, "/", hash)
	}
	return fmt.Sprint(objectsPrefix, "/", hash[:objectShardLen], "/", hash[objectShardLen:])
}

// BranchRefPath returns the store key holding a branch's commit hash.
func BranchRefPath(name string) string {
	return fmt.Sprint(refsHeadsPrefix, "/", name)
}

// TagRefPath returns the store key holding a tag's commit hash.
func TagRefPath(name string) string {
	return fmt.Sprint(refsTagsPrefix, "/", name)
}

// BranchFromRefPath inverts BranchRefPath, returning ok=false for keys
// outside the branch namespace.
func BranchFromRefPath(key string) (string, bool) {
	return strings.CutPrefix(key, refsHeadsPrefix+"/")
}

// TagFromRefPath inverts TagRefPath.
func TagFromRefPath(key string) (string, bool) {
	return strings.CutPrefix(key, refsTagsPrefix+"/")
}

// HeadPath returns the store key of the HEAD record.
func HeadPath() string {
	return headFile
}

// IndexPath returns the store key of the staging index record.
func IndexPath() string {
	return indexFile
}

// RepoDescriptorPath returns the store key of the repository descriptor.
func RepoDescriptorPath() string {
	return repoDescriptorFile
}

// SymbolicHead renders the HEAD record for a branch.
func SymbolicHead(branch string) string {
	return HeadRefPrefix + BranchRefPath(branch)
}

// ParseHead interprets a HEAD record: a symbolic branch reference or a
// bare commit hash (detached state).
func ParseHead(record string) (branch string, commitHash string) {
	record = strings.TrimSpace(record)
	if target, ok := strings.CutPrefix(record, HeadRefPrefix); ok {
		if name, ok := BranchFromRefPath(strings.TrimSpace(target)); ok {
			return name, ""
		}
		return strings.TrimSpace(target), ""
	}
	return "", record
}
