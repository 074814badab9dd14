package repo

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/tidemark/keel/pkg/dlogger"
	"github.com/tidemark/keel/pkg/model"
)

const (
	// DefaultBranch is the branch HEAD points at after init
	DefaultBranch = "main"

	configFileName = "config.yaml"
)

// Config carries everything a repository needs, built once by the
// caller and passed by reference into New. There are no ambient
// globals: two repositories with different configs coexist in one
// process.
type Config struct {
	// WorkDir roots the working tree on the OS filesystem. Ignored
	// when Workspace is set.
	WorkDir string

	// Workspace overrides the working-tree filesystem, e.g. an afero
	// memory fs in tests.
	Workspace afero.Fs

	// MetaDir names the metadata directory inside the working tree
	MetaDir string

	// DefaultBranch is the branch created by Init
	DefaultBranch string

	// Name and Description go into the repository descriptor
	Name        string
	Description string

	// Contributor authors commits
	Contributor model.Contributor

	// LogLevel builds a logger through dlogger when Logger is unset:
	// "info", "debug" or "none"
	LogLevel string

	// Logger for engine debug output; overrides LogLevel
	Logger *zap.Logger

	// Tracer for storage spans; noop when nil
	Tracer opentracing.Tracer
}

func (c Config) withDefaults() Config {
	if c.MetaDir == "" {
		c.MetaDir = ".keel"
	}
	if c.DefaultBranch == "" {
		c.DefaultBranch = DefaultBranch
	}
	if c.Name == "" {
		c.Name = "workspace"
	}
	if c.Logger == nil {
		c.Logger = dlogger.MustGetLogger(c.LogLevel)
	}
	if c.Tracer == nil {
		c.Tracer = opentracing.NoopTracer{}
	}
	if c.Workspace == nil {
		c.Workspace = afero.NewBasePathFs(afero.NewOsFs(), c.WorkDir)
	}
	return c
}

// writeConfigFile persists the durable repository settings.
func writeConfigFile(fs afero.Fs, metaDir string, cfg Config) error {
	v := viper.New()
	v.SetFs(fs)
	v.Set("branch.default", cfg.DefaultBranch)
	v.Set("contributor.name", cfg.Contributor.Name)
	v.Set("contributor.email", cfg.Contributor.Email)
	return v.WriteConfigAs(filepath.Join(metaDir, configFileName))
}

// readConfigFile merges persisted settings into cfg. A missing file
// leaves cfg untouched; an unreadable or unparsable one is an error.
func readConfigFile(fs afero.Fs, metaDir string, cfg Config) (Config, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(filepath.Join(metaDir, configFileName))
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		var parseErr viper.ConfigParseError
		if errors.As(err, &parseErr) {
			return cfg, model.ErrCorrupted.Wrap(err)
		}
		return cfg, model.ErrFilesystem.Wrap(err)
	}
	if b := v.GetString("branch.default"); b != "" {
		cfg.DefaultBranch = b
	}
	if cfg.Contributor.Name == "" {
		cfg.Contributor.Name = v.GetString("contributor.name")
	}
	if cfg.Contributor.Email == "" {
		cfg.Contributor.Email = v.GetString("contributor.email")
	}
	return cfg, nil
}
