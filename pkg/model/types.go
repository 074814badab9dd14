// Package model holds the data types shared across the engine: object
// kinds, tree and commit records, index entries and repository
// descriptors.
package model

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"
)

// ObjectType tags the kind of a stored object.
type ObjectType string

const (
	// TypeBlob marks raw file content
	TypeBlob ObjectType = "blob"

	// TypeTree marks a directory listing
	TypeTree ObjectType = "tree"

	// TypeCommit marks a snapshot with lineage
	TypeCommit ObjectType = "commit"
)

// Valid reports whether t is one of the known object kinds
func (t ObjectType) Valid() bool {
	return t == TypeBlob || t == TypeTree || t == TypeCommit
}

func (t ObjectType) String() string {
	return string(t)
}

// Contributor who created a commit or repository
type Contributor struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
	_     struct{}
}

func (c *Contributor) String() string {
	if c.Email == "" {
		return c.Name
	}
	return fmt.Sprintf("%s <%s>", c.Name, c.Email)
}

// TreeEntry is one row of a tree object: a named reference to a child
// blob or tree.
type TreeEntry struct {
	Mode os.FileMode `json:"mode" yaml:"mode"`
	Type ObjectType  `json:"type" yaml:"type"`
	Hash string      `json:"hash" yaml:"hash"`
	Name string      `json:"name" yaml:"name"`
}

// CommitDescriptor captures a snapshot of the tree plus its lineage.
type CommitDescriptor struct {
	Tree      string      `json:"tree" yaml:"tree"`
	Parent    string      `json:"parent,omitempty" yaml:"parent,omitempty"`
	Author    Contributor `json:"author" yaml:"author"`
	Timestamp time.Time   `json:"timestamp" yaml:"timestamp"`
	Message   string      `json:"message" yaml:"message"`
}

// CommitRecord is a commit resolved from the store, with its own hash.
type CommitRecord struct {
	Hash string `json:"hash" yaml:"hash"`
	CommitDescriptor
}

// IndexEntry tracks one staged path.
type IndexEntry struct {
	Path   string    `json:"path" yaml:"path"`
	Hash   string    `json:"hash" yaml:"hash"`
	Size   int64     `json:"size" yaml:"size"`
	Mtime  time.Time `json:"mtime" yaml:"mtime"`
	Staged bool      `json:"staged" yaml:"staged"`
}

// RepoDescriptor describes a repository.
type RepoDescriptor struct {
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Timestamp   time.Time   `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Contributor Contributor `json:"contributor,omitempty" yaml:"contributor,omitempty"`
}

// FileState classifies a working-tree path for status reporting.
type FileState string

const (
	// StateUntracked means the path is neither staged nor committed
	StateUntracked FileState = "untracked"

	// StateModified means the working-tree content differs from the
	// staged or committed hash
	StateModified FileState = "modified"

	// StateStaged means the index holds the working-tree content but
	// HEAD does not
	StateStaged FileState = "staged"

	// StateCommitted means working tree, index and HEAD agree
	StateCommitted FileState = "committed"
)

// FileStatus pairs a path with its classification.
type FileStatus struct {
	Path  string    `json:"path" yaml:"path"`
	State FileState `json:"state" yaml:"state"`
}

// Validate a repository descriptor before persisting it.
func Validate(repo RepoDescriptor) error {
	if repo.Name == "" {
		return fmt.Errorf("empty field: repo name is empty")
	}
	for _, c := range repo.Name {
		if !unicode.IsDigit(c) && !unicode.IsLetter(c) && !unicode.Is(unicode.Hyphen, c) {
			return fmt.Errorf("invalid name: repo name:%s contains unsupported character %q",
				repo.Name, string(c))
		}
	}
	return nil
}

// ValidatePath rejects staged paths that cannot survive the
// line-oriented index record and the canonical tree record.
func ValidatePath(pth string) error {
	if pth == "" {
		return fmt.Errorf("empty field: path is empty")
	}
	for _, c := range pth {
		if unicode.IsControl(c) {
			return fmt.Errorf("invalid name: path %q contains control character %q", pth, string(c))
		}
	}
	return nil
}

// ValidateEntryName rejects tree entry names that break the canonical
// tree record: empty names, separators and control characters.
func ValidateEntryName(name string) error {
	if name == "" {
		return fmt.Errorf("empty field: entry name is empty")
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("invalid name: entry name %q contains a separator", name)
	}
	for _, c := range name {
		if unicode.IsControl(c) {
			return fmt.Errorf("invalid name: entry name %q contains control character %q", name, string(c))
		}
	}
	return nil
}

// ValidateRefName rejects branch and tag names that cannot be stored as
// a single ref file.
func ValidateRefName(name string) error {
	if name == "" {
		return fmt.Errorf("empty field: ref name is empty")
	}
	for _, c := range name {
		switch {
		case unicode.IsLetter(c), unicode.IsDigit(c):
		case c == '-' || c == '_' || c == '.' || c == '/':
		default:
			return fmt.Errorf("invalid name: ref name %q contains unsupported character %q", name, c)
		}
	}
	if name[0] == '/' || name[len(name)-1] == '/' {
		return fmt.Errorf("invalid name: ref name %q has a leading or trailing slash", name)
	}
	return nil
}
