// Package ignore filters paths out of staging with glob rules. Rules
// come from a newline-delimited file at the repository root; evaluation
// is last-match-wins so later negated rules can re-include paths an
// earlier rule excluded.
package ignore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tidemark/keel/pkg/model"
)

const (
	// DefaultMetaDir is the metadata directory implicitly ignored
	DefaultMetaDir = ".keel"

	// DefaultRulesFile is the rules file, itself implicitly ignored
	DefaultRulesFile = ".keelignore"
)

// Option configures a Matcher
type Option func(*Matcher)

// WithLogger sets the logger invalid patterns are reported to
func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logs = l
		}
	}
}

// MetaDir overrides the implicitly ignored metadata directory
func MetaDir(dir string) Option {
	return func(m *Matcher) {
		m.metaDir = strings.Trim(dir, "/")
	}
}

// RulesFile overrides the implicitly ignored rules file name
func RulesFile(name string) Option {
	return func(m *Matcher) {
		m.rulesFile = name
	}
}

// New creates a matcher with no configured rules. The metadata
// directory and the rules file are always ignored, rules or not.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		logs:      zap.NewNop(),
		metaDir:   DefaultMetaDir,
		rulesFile: DefaultRulesFile,
		memo:      make(map[string]bool),
	}
	for _, apply := range opts {
		apply(m)
	}
	return m
}

// Matcher evaluates ignore rules against repo-relative paths.
type Matcher struct {
	logs      *zap.Logger
	metaDir   string
	rulesFile string
	rules     []rule
	memo      map[string]bool
}

type rule struct {
	pattern string
	negate  bool
	dirOnly bool
}

// ValidatePattern rejects rules which cannot match anything: a bare
// negation marker or a pattern that is empty once markers are stripped.
func ValidatePattern(line string) error {
	p := strings.TrimPrefix(line, "!")
	p = strings.TrimSuffix(p, "/")
	if strings.Trim(p, "/") == "" {
		return model.ErrInvalidPattern.Wrap(fmt.Errorf("pattern %q is empty", line))
	}
	return nil
}

// Load replaces the configured rules with those read from r. Blank
// lines and #-comments are skipped; a malformed rule is logged and
// skipped without disabling the rest. The memo cache is invalidated.
func (m *Matcher) Load(r io.Reader) error {
	var rules []rule
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ValidatePattern(line); err != nil {
			m.logs.Warn("skipping invalid ignore pattern",
				zap.String("pattern", line), zap.Error(err))
			continue
		}
		rl := rule{pattern: line}
		if strings.HasPrefix(rl.pattern, "!") {
			rl.negate = true
			rl.pattern = rl.pattern[1:]
		}
		if strings.HasSuffix(rl.pattern, "/") {
			rl.dirOnly = true
			rl.pattern = strings.TrimSuffix(rl.pattern, "/")
		}
		rl.pattern = strings.TrimPrefix(rl.pattern, "/")
		rules = append(rules, rl)
	}
	if err := scanner.Err(); err != nil {
		return model.ErrFilesystem.Wrap(err)
	}
	m.rules = rules
	m.memo = make(map[string]bool)
	return nil
}

// LoadFile loads rules from a file on fs. A missing file leaves the
// matcher with implicit rules only.
func (m *Matcher) LoadFile(fs afero.Fs, pth string) error {
	f, err := fs.Open(pth)
	if err != nil {
		if os.IsNotExist(err) {
			m.rules = nil
			m.memo = make(map[string]bool)
			return nil
		}
		return model.ErrFilesystem.Wrap(err)
	}
	defer f.Close()
	return m.Load(f)
}

// Match reports whether pth is excluded from staging. Paths are
// normalized to repo-relative slash form; a trailing slash marks the
// path as a directory. Results are memoized until the next Load.
func (m *Matcher) Match(pth string) bool {
	if res, ok := m.memo[pth]; ok {
		return res
	}
	res := m.match(pth)
	m.memo[pth] = res
	return res
}

func (m *Matcher) match(pth string) bool {
	isDir := strings.HasSuffix(pth, "/")
	p := filepath.ToSlash(pth)
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" || p == "." {
		return false
	}

	// implicit rules come first and cannot be negated away
	if p == m.rulesFile || p == m.metaDir || strings.HasPrefix(p, m.metaDir+"/") {
		return true
	}

	var ancestors []string
	for i, c := range p {
		if c == '/' {
			ancestors = append(ancestors, p[:i])
		}
	}

	// last matching rule in declaration order wins
	ignored := false
	for _, rl := range m.rules {
		if rl.matches(p, ancestors, isDir) {
			ignored = !rl.negate
		}
	}
	return ignored
}

func (r rule) matches(full string, ancestors []string, isDir bool) bool {
	if r.dirOnly {
		// a directory-only pattern matches paths strictly under the
		// directory, or the directory itself
		for _, a := range ancestors {
			if r.globTarget(a) {
				return true
			}
		}
		return isDir && r.globTarget(full)
	}
	if r.globTarget(full) {
		return true
	}
	for _, a := range ancestors {
		if r.globTarget(a) {
			return true
		}
	}
	return false
}

// globTarget matches the rule against one candidate path. Patterns
// without a slash match basenames at any depth, like gitignore.
func (r rule) globTarget(candidate string) bool {
	if !strings.Contains(r.pattern, "/") {
		return globMatch(r.pattern, path.Base(candidate))
	}
	return globMatch(r.pattern, candidate)
}
