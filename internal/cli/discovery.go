package cli

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wagiedev/claudeflow-go/internal/config"
	"github.com/wagiedev/claudeflow-go/internal/errors"
)

const (
	// BinaryName is the executable searched for when no explicit path is set.
	BinaryName = "claude"

	// MinimumVersion is the minimum supported agent CLI version.
	MinimumVersion = "2.0.0"

	// VersionCheckTimeout is the timeout for the CLI version probe.
	VersionCheckTimeout = 2 * time.Second
)

var versionPattern = regexp.MustCompile(`^([0-9]+\.[0-9]+\.[0-9]+)`)

// Config holds configuration for CLI discovery.
type Config struct {
	// CliPath is an explicit CLI path that skips the search.
	CliPath string

	// SkipVersionCheck skips the version probe. The probe is also skipped
	// when CLAUDE_AGENT_SDK_SKIP_VERSION_CHECK is set.
	SkipVersionCheck bool

	// Logger receives discovery diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// Discoverer locates the agent CLI binary.
type Discoverer interface {
	// Discover returns the path of the CLI binary, or a *SpawnError listing
	// the searched locations.
	Discover(ctx context.Context) (string, error)
}

type discoverer struct {
	cfg *Config
	log *slog.Logger
}

var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a CLI discoverer.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &discoverer{
		cfg: cfg,
		log: log.With("component", "cli_discovery"),
	}
}

// Discover locates the CLI binary and probes its version.
func (d *discoverer) Discover(ctx context.Context) (string, error) {
	cliPath, err := d.findCLI()
	if err != nil {
		d.log.Error("Failed to find agent CLI", "error", err)

		return "", err
	}

	d.log.Debug("Found agent CLI binary", "cli_path", cliPath)

	d.checkVersion(ctx, cliPath)

	return cliPath, nil
}

// DiscoveryCache remembers discovered CLI paths so the version probe runs
// once per distinct CLI setting instead of once per spawn. Failures are not
// cached. A nil *DiscoveryCache discovers on every call.
type DiscoveryCache struct {
	mu    sync.Mutex
	paths map[discoveryKey]string
}

type discoveryKey struct {
	cliPath          string
	skipVersionCheck bool
}

// NewDiscoveryCache creates an empty DiscoveryCache.
func NewDiscoveryCache() *DiscoveryCache {
	return &DiscoveryCache{paths: make(map[discoveryKey]string)}
}

// Discover returns the cached path for cfg, discovering it on first use.
// Concurrent first calls wait for a single discovery.
func (c *DiscoveryCache) Discover(ctx context.Context, cfg *Config) (string, error) {
	if c == nil {
		return NewDiscoverer(cfg).Discover(ctx)
	}

	if cfg == nil {
		cfg = &Config{}
	}

	key := discoveryKey{cliPath: cfg.CliPath, skipVersionCheck: cfg.SkipVersionCheck}

	c.mu.Lock()
	defer c.mu.Unlock()

	if path, ok := c.paths[key]; ok {
		return path, nil
	}

	path, err := NewDiscoverer(cfg).Discover(ctx)
	if err != nil {
		return "", err
	}

	c.paths[key] = path

	return path, nil
}

// findCLI checks the explicit path, then PATH, then common install locations.
func (d *discoverer) findCLI() (string, error) {
	if d.cfg.CliPath != "" {
		if _, err := os.Stat(d.cfg.CliPath); err != nil {
			return "", &errors.SpawnError{
				Path:          d.cfg.CliPath,
				SearchedPaths: []string{d.cfg.CliPath},
				Err:           err,
			}
		}

		return d.cfg.CliPath, nil
	}

	searchedPaths := make([]string, 0, 4)

	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	searchedPaths = append(searchedPaths, "$PATH")

	for _, path := range commonPaths() {
		searchedPaths = append(searchedPaths, path)

		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	d.log.Warn("Agent CLI not found in any searched path", "searched_paths", searchedPaths)

	return "", &errors.SpawnError{
		Path:          BinaryName,
		SearchedPaths: searchedPaths,
		Err:           exec.ErrNotFound,
	}
}

func commonPaths() []string {
	paths := []string{
		"/usr/local/bin/" + BinaryName,
		"/usr/bin/" + BinaryName,
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".local", "bin", BinaryName),
			filepath.Join(homeDir, ".claude", "local", BinaryName),
		)
	}

	return paths
}

// checkVersion logs a warning when the CLI is older than MinimumVersion.
// Probe failures are ignored.
func (d *discoverer) checkVersion(ctx context.Context, cliPath string) {
	if d.cfg.SkipVersionCheck || os.Getenv(config.EnvSkipVersionCheck) != "" {
		d.log.Debug("Skipping CLI version check")

		return
	}

	ctx, cancel := context.WithTimeout(ctx, VersionCheckTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, cliPath, "-v").Output()
	if err != nil {
		d.log.Debug("CLI version check failed", "error", err)

		return
	}

	version, ok := parseVersion(string(output))
	if !ok {
		d.log.Debug("Could not parse CLI version", "output", strings.TrimSpace(string(output)))

		return
	}

	if compareVersions(version, MinimumVersion) < 0 {
		d.log.Warn("Agent CLI version is unsupported",
			"version", version,
			"minimum_required", MinimumVersion,
		)

		return
	}

	d.log.Debug("CLI version check passed", "version", version)
}

// parseVersion extracts the leading X.Y.Z from CLI version output.
func parseVersion(output string) (string, bool) {
	match := versionPattern.FindStringSubmatch(strings.TrimSpace(output))
	if match == nil {
		return "", false
	}

	return match[1], true
}

// compareVersions compares two semantic versions.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func compareVersions(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	for i := range 3 {
		var aNum, bNum int

		if i < len(aParts) {
			aNum, _ = strconv.Atoi(aParts[i])
		}

		if i < len(bParts) {
			bNum, _ = strconv.Atoi(bParts[i])
		}

		if aNum != bNum {
			if aNum < bNum {
				return -1
			}

			return 1
		}
	}

	return 0
}
