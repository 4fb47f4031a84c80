package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/bridgepass/internal/completion"
	"github.com/roach88/bridgepass/internal/diag"
	"github.com/roach88/bridgepass/internal/introspect"
	"github.com/roach88/bridgepass/internal/ir"
	"github.com/roach88/bridgepass/internal/register"
	"github.com/roach88/bridgepass/internal/registry"
	"github.com/roach88/bridgepass/internal/resolver"
)

// Stage is one pass over the stream. Transform must not mutate its input.
type Stage interface {
	Name() string
	Transform(t *ir.CompiledType) (*ir.CompiledType, error)
}

// DefaultStages is the stage order used when none is configured.
var DefaultStages = []string{completion.StageName, register.StageName}

// StageNames returns every recognized stage name.
func StageNames() []string {
	return slices.Clone(DefaultStages)
}

// Pipeline runs the configured stages over compiled-type streams.
//
// A Pipeline holds only immutable configuration and may be reused; every
// call to Run builds its own lookup state.
type Pipeline struct {
	reg     *registry.Registry
	library []*ir.CompiledType
	stages  []string
	sink    diag.Sink
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStages selects and orders the stages to run.
func WithStages(names ...string) Option {
	return func(p *Pipeline) {
		p.stages = slices.Clone(names)
	}
}

// WithLibrary adds types visible to introspection that are not part of the
// stream being transformed (the platform, the bridging runtime).
func WithLibrary(types ...*ir.CompiledType) Option {
	return func(p *Pipeline) {
		p.library = append(p.library, types...)
	}
}

// WithSink forwards every record of every run to sink, in addition to the
// records collected in the Result.
func WithSink(sink diag.Sink) Option {
	return func(p *Pipeline) {
		p.sink = sink
	}
}

// New creates a Pipeline over the given registry.
func New(reg *registry.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		reg:    reg,
		stages: slices.Clone(DefaultStages),
		sink:   diag.Discard,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stages returns the configured stage order.
func (p *Pipeline) Stages() []string {
	return slices.Clone(p.stages)
}

// Change records the fingerprints of one type before and after the run.
type Change struct {
	Type   string
	Before string
	After  string
}

// Modified reports whether the type's content changed.
func (c Change) Modified() bool {
	return c.Before != c.After
}

// Stats summarizes a run.
type Stats struct {
	Types       int
	Modified    int
	Excluded    int
	CacheHits   int
	CacheMisses int
}

// Result is the outcome of a run. Types is nil when the run failed; the
// records and changes gathered up to the failure are kept.
type Result struct {
	Types   []*ir.CompiledType
	Records []diag.Record
	Changes []Change
	Stats   Stats
}

// Run transforms types through every configured stage.
//
// Types are processed one at a time in stream order, each through all
// stages, before the next is considered. The first fatal error aborts the
// run with a *StageError and an E900 record.
func (p *Pipeline) Run(ctx context.Context, types []*ir.CompiledType) (*Result, error) {
	cp := introspect.NewClasspath(p.library...)
	cp.Add(types...)
	memo := introspect.NewMemo(cp)

	collector := diag.NewCollector()
	sink := diag.NewMulti(collector, p.sink)

	stages, err := p.build(memo, sink)
	if err != nil {
		return nil, err
	}

	slog.Debug("pipeline run starting", "types", len(types), "classpath", cp.Len(), "stages", p.stages)

	res := &Result{}
	out := make([]*ir.CompiledType, 0, len(types))
	fail := func(err error) (*Result, error) {
		res.Records = collector.Records()
		res.Stats.CacheHits, res.Stats.CacheMisses = memo.Stats()
		return res, err
	}

	for _, t := range types {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		before, err := ir.Fingerprint(t)
		if err != nil {
			return fail(fmt.Errorf("input type %s: %w", t.Name, err))
		}

		cur := t
		for _, st := range stages {
			next, err := st.Transform(cur)
			if err != nil {
				serr := &StageError{Stage: st.Name(), Type: t.Name, Err: err}
				sink.Emit(diag.Record{
					Severity: diag.SeverityError,
					Code:     diag.CodeStageFailed,
					Stage:    st.Name(),
					Type:     t.Name,
					Message:  err.Error(),
				})
				return fail(serr)
			}
			cur = next
		}

		after, err := ir.Fingerprint(cur)
		if err != nil {
			return fail(fmt.Errorf("output type %s: %w", t.Name, err))
		}

		change := Change{Type: t.Name, Before: before, After: after}
		res.Changes = append(res.Changes, change)
		res.Stats.Types++
		if change.Modified() {
			res.Stats.Modified++
		}
		if p.reg.Excluded(t.Name) {
			res.Stats.Excluded++
		}
		out = append(out, cur)
	}

	res.Types = out
	res.Records = collector.Records()
	res.Stats.CacheHits, res.Stats.CacheMisses = memo.Stats()

	slog.Debug("pipeline run finished",
		"types", res.Stats.Types,
		"modified", res.Stats.Modified,
		"records", len(res.Records),
	)
	return res, nil
}

// build instantiates the configured stages over one run's lookup state.
func (p *Pipeline) build(types introspect.Introspector, sink diag.Sink) ([]Stage, error) {
	if len(p.stages) == 0 {
		return nil, fmt.Errorf("no stages configured")
	}
	stages := make([]Stage, 0, len(p.stages))
	seen := make(map[string]bool)
	for _, name := range p.stages {
		if seen[name] {
			return nil, fmt.Errorf("stage %s listed twice", name)
		}
		seen[name] = true

		res := resolver.New(types, p.reg, sink, resolver.WithStage(name))
		switch name {
		case completion.StageName:
			stages = append(stages, completion.New(p.reg, res, sink))
		case register.StageName:
			stages = append(stages, register.New(p.reg, res, sink))
		default:
			return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownStage, name, StageNames())
		}
	}
	return stages, nil
}
