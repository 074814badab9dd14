package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPathSharding(t *testing.T) {
	assert.Equal(t, "objects/ab/cdef0123", ObjectPath("abcdef0123"))
	assert.Equal(t, "objects/ab", ObjectPath("ab"))
}

func TestRefPaths(t *testing.T) {
	assert.Equal(t, "refs/heads/main", BranchRefPath("main"))
	assert.Equal(t, "refs/heads/feature/x", BranchRefPath("feature/x"))
	assert.Equal(t, "refs/tags/v1", TagRefPath("v1"))

	name, ok := BranchFromRefPath("refs/heads/main")
	require.True(t, ok)
	assert.Equal(t, "main", name)

	_, ok = BranchFromRefPath("refs/tags/v1")
	assert.False(t, ok)

	tag, ok := TagFromRefPath("refs/tags/v1")
	require.True(t, ok)
	assert.Equal(t, "v1", tag)
}

func TestParseHead(t *testing.T) {
	branch, commit := ParseHead("ref: refs/heads/main\n")
	assert.Equal(t, "main", branch)
	assert.Empty(t, commit)

	branch, commit = ParseHead("0123abcd\n")
	assert.Empty(t, branch)
	assert.Equal(t, "0123abcd", commit)
}

func TestSymbolicHeadRoundTrip(t *testing.T) {
	branch, commit := ParseHead(SymbolicHead("feature/x"))
	assert.Equal(t, "feature/x", branch)
	assert.Empty(t, commit)
}

func TestValidateRepoDescriptor(t *testing.T) {
	require.NoError(t, Validate(RepoDescriptor{Name: "my-repo"}))
	require.NoError(t, Validate(RepoDescriptor{Name: "日本語"}))
	require.Error(t, Validate(RepoDescriptor{}))
	require.Error(t, Validate(RepoDescriptor{Name: "has space"}))

	// multibyte letters before the offending rune must not trip the check
	require.NotPanics(t, func() {
		require.Error(t, Validate(RepoDescriptor{Name: "日本語!"}))
	})
}

func TestValidatePath(t *testing.T) {
	require.NoError(t, ValidatePath("dir/a.txt"))
	require.Error(t, ValidatePath(""))
	require.Error(t, ValidatePath("a\nb.txt"))
	require.Error(t, ValidatePath("a\tb.txt"))
}

func TestValidateEntryName(t *testing.T) {
	require.NoError(t, ValidateEntryName("a.txt"))
	require.Error(t, ValidateEntryName(""))
	require.Error(t, ValidateEntryName("a/b"))
	require.Error(t, ValidateEntryName("a\nb"))
}

func TestValidateRefName(t *testing.T) {
	require.NoError(t, ValidateRefName("main"))
	require.NoError(t, ValidateRefName("feature/x-1.2"))
	require.Error(t, ValidateRefName(""))
	require.Error(t, ValidateRefName("bad name"))
	require.Error(t, ValidateRefName("/leading"))
	require.Error(t, ValidateRefName("trailing/"))
}

func TestContributorString(t *testing.T) {
	c := Contributor{Name: "Ann", Email: "ann@example.com"}
	assert.Equal(t, "Ann <ann@example.com>", c.String())

	c = Contributor{Name: "Ann"}
	assert.Equal(t, "Ann", c.String())
}
