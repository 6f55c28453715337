// Package hook batches PLT hook requests from modules and commits them
// against the memory map in one pass.
package hook

import (
	"log/slog"
	"regexp"
	"sync"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/maps"
)

// MapSource provides the memory map snapshot hooks are matched against.
type MapSource interface {
	Snapshot() []maps.Region
}

type registration struct {
	pattern *regexp.Regexp
	symbol  string
	fn      uintptr
	backup  *uintptr
}

type exclusion struct {
	pattern *regexp.Regexp
	symbol  string
}

// Registry collects hook registrations and exclusions for one
// specialization phase.
type Registry struct {
	mu            sync.Mutex
	registrations []registration
	exclusions    []exclusion

	engine Engine
	maps   MapSource
	logger *slog.Logger
}

// NewRegistry creates a registry that commits through engine.
func NewRegistry(engine Engine, source MapSource, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		engine: engine,
		maps:   source,
		logger: logger.With("component", "hook"),
	}
}

// Register queues a hook of symbol in every mapped file whose path matches
// pattern. The original function is written to backup on commit.
func (r *Registry) Register(pattern, symbol string, fn uintptr, backup *uintptr) error {
	if symbol == "" {
		return ErrEmptySymbol
	}
	if fn == 0 {
		return errx.With(ErrNilReplacement, ": symbol %q", symbol)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errx.Wrap(ErrInvalidPattern, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations = append(r.registrations, registration{pattern: re, symbol: symbol, fn: fn, backup: backup})
	return nil
}

// Exclude vetoes registrations in files matching pattern. An empty symbol
// vetoes every symbol.
func (r *Registry) Exclude(pattern, symbol string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errx.Wrap(ErrInvalidPattern, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.exclusions = append(r.exclusions, exclusion{pattern: re, symbol: symbol})
	return nil
}

// RegisterInode queues a hook for an already identified file and bypasses
// pattern matching.
func (r *Registry) RegisterInode(dev, inode uint64, symbol string, fn uintptr, backup *uintptr) error {
	if dev == 0 || inode == 0 {
		return errx.With(ErrNoTarget, ": dev %d inode %d", dev, inode)
	}
	if symbol == "" {
		return ErrEmptySymbol
	}
	if fn == 0 {
		return errx.With(ErrNilReplacement, ": symbol %q", symbol)
	}
	r.engine.Register(Key{Dev: dev, Inode: inode, Symbol: symbol}, fn, backup)
	return nil
}

// Pending returns the number of queued registrations and exclusions.
func (r *Registry) Pending() (registrations, exclusions int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.registrations), len(r.exclusions)
}

// Commit drains both lists, hands every non-vetoed match to the engine and
// commits the engine once.
func (r *Registry) Commit() bool {
	r.mu.Lock()
	regs, excls := r.registrations, r.exclusions
	r.registrations, r.exclusions = nil, nil
	r.mu.Unlock()

	regions := r.maps.Snapshot()
	planned := 0
	if len(regs) > 0 {
		for _, region := range regions {
			if !region.HookEligible() {
				continue
			}
			for _, reg := range regs {
				if !reg.pattern.MatchString(region.Path) {
					continue
				}
				if excluded(excls, region.Path, reg.symbol) {
					r.logger.Debug("hook excluded", "path", region.Path, "symbol", reg.symbol)
					continue
				}
				r.engine.Register(Key{Dev: region.Dev, Inode: region.Inode, Symbol: reg.symbol}, reg.fn, reg.backup)
				planned++
			}
		}
	}

	ok := r.engine.Commit(regions)
	if !ok {
		r.logger.Warn("hook commit failed", "registrations", len(regs), "exclusions", len(excls), "planned", planned)
	} else {
		r.logger.Debug("hook commit", "registrations", len(regs), "exclusions", len(excls), "planned", planned)
	}
	return ok
}

func excluded(excls []exclusion, path, symbol string) bool {
	for _, ex := range excls {
		if !ex.pattern.MatchString(path) {
			continue
		}
		if ex.symbol == "" || ex.symbol == symbol {
			return true
		}
	}
	return false
}
