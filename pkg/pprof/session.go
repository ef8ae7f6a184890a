// Package pprof captures runtime profiles of the process while an algorithm
// run executes.
//
// A CPU profile covers the whole session; the other profile types are
// snapshotted when the session stops:
//
//	session, err := pprof.Start(&pprof.Config{Dir: "./pprof", Prefix: runID})
//	if err != nil {
//	    return err
//	}
//	defer session.Stop()
package pprof

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"
	"time"
)

// ProfileType defines the type of profile to collect.
type ProfileType string

const (
	ProfileCPU       ProfileType = "cpu"
	ProfileHeap      ProfileType = "heap"
	ProfileGoroutine ProfileType = "goroutine"
	ProfileBlock     ProfileType = "block"
	ProfileMutex     ProfileType = "mutex"
	ProfileAllocs    ProfileType = "allocs"
)

// AllProfileTypes returns all supported profile types.
func AllProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap, ProfileGoroutine, ProfileBlock, ProfileMutex, ProfileAllocs}
}

// DefaultProfileTypes returns the profile types collected when none are named.
func DefaultProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap}
}

// ParseProfileTypes parses a comma-separated list such as "cpu,heap".
func ParseProfileTypes(s string) ([]ProfileType, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultProfileTypes(), nil
	}

	valid := make(map[ProfileType]bool)
	for _, pt := range AllProfileTypes() {
		valid[pt] = true
	}

	seen := make(map[ProfileType]bool)
	var types []ProfileType
	for _, p := range strings.Split(s, ",") {
		pt := ProfileType(strings.TrimSpace(strings.ToLower(p)))
		if !valid[pt] {
			return nil, fmt.Errorf("unknown profile type: %q", p)
		}
		if !seen[pt] {
			seen[pt] = true
			types = append(types, pt)
		}
	}
	return types, nil
}

// Config selects what a session captures.
type Config struct {
	// Dir receives one <prefix>-<type>.pprof file per profile type.
	Dir    string
	Prefix string

	// Profiles defaults to DefaultProfileTypes.
	Profiles []ProfileType

	// BlockRate and MutexFraction apply while the session runs when the
	// block or mutex profile is requested. Zero means 1.
	BlockRate     int
	MutexFraction int
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("profile directory is required")
	}
	if c.BlockRate < 0 || c.MutexFraction < 0 {
		return fmt.Errorf("profile rates must not be negative")
	}
	return nil
}

func (c *Config) has(pt ProfileType) bool {
	for _, p := range c.Profiles {
		if p == pt {
			return true
		}
	}
	return false
}

func (c *Config) path(pt ProfileType) string {
	name := string(pt) + ".pprof"
	if c.Prefix != "" {
		name = c.Prefix + "-" + name
	}
	return filepath.Join(c.Dir, name)
}

// Session is a running profile capture.
type Session struct {
	mu      sync.Mutex
	config  Config
	cpuFile *os.File
	started time.Time
	stopped bool

	prevMutexFraction int
}

// Start creates the profile directory and begins the CPU profile when it
// is requested. Only one CPU profile can run per process.
func Start(cfg *Config) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("profile config is required")
	}
	c := *cfg
	if len(c.Profiles) == 0 {
		c.Profiles = DefaultProfileTypes()
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	s := &Session{config: c, started: time.Now()}

	if c.has(ProfileBlock) {
		runtime.SetBlockProfileRate(orOne(c.BlockRate))
	}
	if c.has(ProfileMutex) {
		s.prevMutexFraction = runtime.SetMutexProfileFraction(orOne(c.MutexFraction))
	}

	if c.has(ProfileCPU) {
		f, err := os.Create(c.path(ProfileCPU))
		if err != nil {
			s.resetRates()
			return nil, fmt.Errorf("failed to create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			s.resetRates()
			return nil, fmt.Errorf("failed to start CPU profile: %w", err)
		}
		s.cpuFile = f
	}
	return s, nil
}

// Stop ends the CPU profile, writes the snapshot profiles and returns the
// written paths. Stopping twice is a no-op.
func (s *Session) Stop() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, nil
	}
	s.stopped = true

	var paths []string
	var errs []error
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := s.cpuFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close CPU profile: %w", err))
		} else {
			paths = append(paths, s.cpuFile.Name())
		}
	}

	for _, pt := range s.config.Profiles {
		if pt == ProfileCPU {
			continue
		}
		path := s.config.path(pt)
		if err := writeSnapshot(pt, path); err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, path)
	}

	s.resetRates()
	return paths, errors.Join(errs...)
}

// Elapsed returns how long the session has been running.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.started)
}

func (s *Session) resetRates() {
	if s.config.has(ProfileBlock) {
		runtime.SetBlockProfileRate(0)
	}
	if s.config.has(ProfileMutex) {
		runtime.SetMutexProfileFraction(s.prevMutexFraction)
	}
}

func writeSnapshot(pt ProfileType, path string) error {
	p := pprof.Lookup(string(pt))
	if p == nil {
		return fmt.Errorf("%s profile not found", pt)
	}
	if pt == ProfileHeap {
		runtime.GC() // up-to-date heap statistics
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s profile: %w", pt, err)
	}
	if err := p.WriteTo(f, 0); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s profile: %w", pt, err)
	}
	return f.Close()
}

func orOne(n int) int {
	if n == 0 {
		return 1
	}
	return n
}
