package ignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesBasic(t *testing.T) {
	tests := []struct {
		name    string
		rules   string
		path    string
		isDir   bool
		matches bool
	}{
		{name: "EmptyRuleSetMatchesNothing", rules: "", path: "foo.txt", matches: false},
		{name: "SimpleFile", rules: "foo.txt", path: "foo.txt", matches: true},
		{name: "SimpleFileNoMatch", rules: "foo.txt", path: "bar.txt", matches: false},
		{name: "UnanchoredMatchesAnyDepth", rules: "foo.txt", path: "a/b/foo.txt", matches: true},
		{name: "AnchoredOnlyMatchesRoot", rules: "/foo.txt", path: "a/foo.txt", matches: false},
		{name: "AnchoredMatchesRoot", rules: "/foo.txt", path: "foo.txt", matches: true},
		{name: "DirOnlyMatchesDir", rules: "build/", path: "build", isDir: true, matches: true},
		{name: "DirOnlyDoesNotMatchFile", rules: "build/", path: "build", isDir: false, matches: false},
		{name: "DirOnlyMatchesDescendantFile", rules: "build/", path: "build/out.txt", isDir: false, matches: true},
		{name: "UnanchoredStarMatchesBasenameAtDepth", rules: "*.txt", path: "a/b.txt", matches: true},
		{name: "StarDoesNotCrossSlashMiddle", rules: "a/*.txt", path: "a/b/c.txt", matches: false},
		{name: "DoubleStarCrossesSlash", rules: "a/**/c.txt", path: "a/b/d/c.txt", matches: true},
		{name: "LaterNegationWins", rules: "*.txt\n!keep.txt", path: "keep.txt", matches: false},
		{name: "EarlierNegationLoses", rules: "!keep.txt\n*.txt", path: "keep.txt", matches: true},
		{name: "CommentsAndBlankLinesIgnored", rules: "# comment\n\nfoo.txt", path: "foo.txt", matches: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := New(test.rules)
			assert.Equal(t, test.matches, r.Matches(test.path, test.isDir))
		})
	}
}

func TestHasAnyRules(t *testing.T) {
	assert.False(t, New("").HasAnyRules())
	assert.False(t, New("\n\n# just a comment\n").HasAnyRules())
	assert.True(t, New("foo.txt").HasAnyRules())
}
