package main

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/hook"
)

// Plan is a hook plan file: the registrations and exclusions a module
// would make, replayed against a real memory map.
type Plan struct {
	Registrations []PlanHook  `yaml:"registrations"`
	Exclusions    []PlanHook  `yaml:"exclusions"`
	Inodes        []PlanInode `yaml:"inodes"`
}

type PlanHook struct {
	Pattern string `yaml:"pattern"`
	Symbol  string `yaml:"symbol"`
}

type PlanInode struct {
	Dev    uint64 `yaml:"dev"`
	Inode  uint64 `yaml:"inode"`
	Symbol string `yaml:"symbol"`
}

func loadPlan(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errx.Wrap(ErrOpenPlan, err)
	}
	defer f.Close()
	return decodePlan(f)
}

func decodePlan(r io.Reader) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, errx.Wrap(ErrDecodePlan, err)
	}
	if len(p.Registrations) == 0 && len(p.Inodes) == 0 {
		return nil, errx.With(ErrInvalidPlan, ": no registrations")
	}
	return &p, nil
}

// applyPlan replays p through a hook registry backed by a planner and
// commits once. Registrations get distinct placeholder replacements so
// the planner can tell them apart.
func applyPlan(p *Plan, source hook.MapSource, logger *slog.Logger) (*hook.Planner, bool, error) {
	planner := hook.NewPlanner()
	registry := hook.NewRegistry(planner, source, logger)

	next := uintptr(1)
	for _, r := range p.Registrations {
		if err := registry.Register(r.Pattern, r.Symbol, next, nil); err != nil {
			return nil, false, errx.With(ErrInvalidPlan, ": registration %q!%s: %w", r.Pattern, r.Symbol, err)
		}
		next++
	}
	for _, e := range p.Exclusions {
		if err := registry.Exclude(e.Pattern, e.Symbol); err != nil {
			return nil, false, errx.With(ErrInvalidPlan, ": exclusion %q!%s: %w", e.Pattern, e.Symbol, err)
		}
	}
	for _, in := range p.Inodes {
		if err := registry.RegisterInode(in.Dev, in.Inode, in.Symbol, next, nil); err != nil {
			return nil, false, errx.With(ErrInvalidPlan, ": inode %d:%d!%s: %w", in.Dev, in.Inode, in.Symbol, err)
		}
		next++
	}
	return planner, registry.Commit(), nil
}
