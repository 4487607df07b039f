package filemeta

import (
	"time"

	"github.com/spf13/afero"

	"github.com/mvndaai/filemeta/internal/logging"
	"github.com/mvndaai/filemeta/plugin"
	"github.com/mvndaai/filemeta/storage"
)

// Option configures a Manager at construction time.
type Option func(*managerConfig)

type managerConfig struct {
	fs            afero.Fs
	backend       storage.Backend
	threadSafe    bool
	autoSync      time.Duration
	logger        *logging.Logger
	plugins       []plugin.Plugin
	pluginWorkers int
}

func defaultConfig() managerConfig {
	return managerConfig{
		fs:            afero.NewOsFs(),
		backend:       storage.NewMemoryBackend(),
		threadSafe:    false,
		logger:        logging.Nop(),
		pluginWorkers: 4,
	}
}

// WithFilesystem overrides the afero.Fs used for path existence checks and
// system-metadata collection. Defaults to afero.NewOsFs().
func WithFilesystem(fs afero.Fs) Option {
	return func(c *managerConfig) { c.fs = fs }
}

// WithStorage overrides the persistence backend. Defaults to an
// unpersisted storage.NewMemoryBackend().
func WithStorage(backend storage.Backend) Option {
	return func(c *managerConfig) { c.backend = backend }
}

// WithThreadSafe enables the single reentrant-by-design mutex guarding
// every public Manager operation, per spec.md §5's thread_safe=on mode.
func WithThreadSafe(on bool) Option {
	return func(c *managerConfig) { c.threadSafe = on }
}

// WithAutoSync starts a background goroutine that calls Sync on the given
// interval until the Manager is Closed. A zero interval disables
// auto-sync (the default).
func WithAutoSync(interval time.Duration) Option {
	return func(c *managerConfig) { c.autoSync = interval }
}

// WithLogger overrides the structured logger used for plugin-failure and
// sync diagnostics. Defaults to a discarding logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *managerConfig) { c.logger = l }
}

// WithPlugins registers the given extractors at construction time.
func WithPlugins(plugins ...plugin.Plugin) Option {
	return func(c *managerConfig) { c.plugins = append(c.plugins, plugins...) }
}

// WithPluginWorkers bounds the concurrency of ProcessFileAsync's worker
// pool. Defaults to 4, mirroring the ThreadPoolExecutor default the
// original implementation used for plugin extraction.
func WithPluginWorkers(n int) Option {
	return func(c *managerConfig) { c.pluginWorkers = n }
}
