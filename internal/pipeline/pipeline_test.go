package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bridgepass/internal/completion"
	"github.com/roach88/bridgepass/internal/diag"
	"github.com/roach88/bridgepass/internal/ir"
	"github.com/roach88/bridgepass/internal/register"
	"github.com/roach88/bridgepass/internal/registry"
	tu "github.com/roach88/bridgepass/internal/testutil"
)

func defaultRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	return reg
}

// bridgingStream is a small bridging hierarchy: Base declares the contract,
// View overrides it without tags and has no static initializer.
func bridgingStream() []*ir.CompiledType {
	return []*ir.CompiledType{
		tu.Type("app/Base", tu.NativeObject).
			Method(tu.Method("speak", "()V").Tag(tu.SelectorTag("speak"), tu.Tag(tu.Owned)).Build()).
			Method(tu.Clinit(tu.Call(tu.RegisterHook), tu.Return()).Build()).
			Build(),
		tu.Type("app/View", "app/Base").
			Method(tu.Method("speak", "()V").Code(tu.Return()).Build()).
			Build(),
		tu.Type("app/Plain", tu.ObjectType).Build(),
	}
}

func TestRun_BothStages(t *testing.T) {
	in := bridgingStream()
	p := New(defaultRegistry(t), WithLibrary(tu.Platform()...))

	res, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Types, 3)

	view := res.Types[1]
	m, _ := view.FindMethod("speak", "()V")
	assert.True(t, ir.HasTag(m.Tags, tu.Owned))
	clinit, _ := view.Clinit()
	require.NotNil(t, clinit)

	assert.Same(t, in[0], res.Types[0], "already registered base is untouched")
	assert.Same(t, in[2], res.Types[2])

	assert.Equal(t, Stats{Types: 3, Modified: 1}, Stats{Types: res.Stats.Types, Modified: res.Stats.Modified})
	assert.False(t, res.Changes[0].Modified())
	assert.True(t, res.Changes[1].Modified())

	codes := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		codes = append(codes, r.Code)
	}
	assert.Equal(t, []string{diag.CodeTagsInjected, diag.CodeClinitSynthesized}, codes)
	assert.Equal(t, int64(1), res.Records[0].Seq)
	assert.Equal(t, int64(2), res.Records[1].Seq)
}

func TestRun_FatalErrorAborts(t *testing.T) {
	in := []*ir.CompiledType{
		tu.Type("app/Base", tu.NativeObject).
			Method(tu.Method("speak", "(I)V").Tag(tu.SelectorTag("speak:")).Param(0, tu.Tag(tu.NUInt)).Build()).
			Build(),
		tu.Type("app/View", "app/Base").
			Method(tu.Method("speak", "(I)V").Param(0, tu.Tag(tu.NInt)).Build()).
			Build(),
	}
	p := New(defaultRegistry(t), WithLibrary(tu.Platform()...))

	res, err := p.Run(context.Background(), in)
	require.Error(t, err)

	var serr *StageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, completion.StageName, serr.Stage)
	assert.Equal(t, "app/View", serr.Type)

	var cerr *completion.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, completion.CodeCollision, cerr.Code)

	require.NotNil(t, res)
	assert.Nil(t, res.Types, "no partial output")
	last := res.Records[len(res.Records)-1]
	assert.Equal(t, diag.CodeStageFailed, last.Code)
	assert.Equal(t, diag.SeverityError, last.Severity)
}

func TestRun_StageSelection(t *testing.T) {
	in := bridgingStream()
	p := New(defaultRegistry(t), WithLibrary(tu.Platform()...), WithStages(register.StageName))

	res, err := p.Run(context.Background(), in)
	require.NoError(t, err)

	m, _ := res.Types[1].FindMethod("speak", "()V")
	assert.Empty(t, m.Tags, "completion did not run")
	clinit, _ := res.Types[1].Clinit()
	assert.NotNil(t, clinit)
}

func TestRun_StageConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		stages []string
		is     error
	}{
		{name: "unknown", stages: []string{"optimize"}, is: ErrUnknownStage},
		{name: "duplicate", stages: []string{register.StageName, register.StageName}},
		{name: "empty", stages: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(defaultRegistry(t), WithStages(tt.stages...))
			res, err := p.Run(context.Background(), nil)
			require.Error(t, err)
			assert.Nil(t, res)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(defaultRegistry(t), WithLibrary(tu.Platform()...))
	res, err := p.Run(ctx, bridgingStream())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res.Types)
}

func TestRun_FreshLookupStatePerRun(t *testing.T) {
	p := New(defaultRegistry(t), WithLibrary(tu.Platform()...))

	first := bridgingStream()
	_, err := p.Run(context.Background(), first)
	require.NoError(t, err)

	// Without Base in the stream, View's ancestry cannot be resolved.
	res, err := p.Run(context.Background(), first[1:2])
	require.NoError(t, err)
	assert.Same(t, first[1], res.Types[0])

	var warnings []string
	for _, r := range res.Records {
		if r.Severity == diag.SeverityWarning {
			warnings = append(warnings, r.Code)
		}
	}
	assert.ElementsMatch(t, []string{diag.CodeTypeNotFound, diag.CodeAncestryUnresolved}, warnings)
}

func TestRun_InputSnapshot(t *testing.T) {
	// Derived precedes its parent in the stream; the parent is still
	// resolved from the pre-run snapshot.
	in := bridgingStream()
	in[0], in[1] = in[1], in[0]

	p := New(defaultRegistry(t), WithLibrary(tu.Platform()...))
	res, err := p.Run(context.Background(), in)
	require.NoError(t, err)

	m, _ := res.Types[0].FindMethod("speak", "()V")
	assert.True(t, ir.HasTag(m.Tags, tu.Owned))
}

func TestRun_ForwardsToSink(t *testing.T) {
	var got []diag.Record
	p := New(defaultRegistry(t),
		WithLibrary(tu.Platform()...),
		WithSink(diag.Func(func(r diag.Record) { got = append(got, r) })),
	)

	res, err := p.Run(context.Background(), bridgingStream())
	require.NoError(t, err)
	assert.Equal(t, res.Records, got)
}

func TestRun_ExcludedCounted(t *testing.T) {
	in := []*ir.CompiledType{tu.Type("org/moe/natj/objc/ObjCRuntime", tu.ObjectType).Build()}
	p := New(defaultRegistry(t), WithLibrary(tu.Platform()...))

	res, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Excluded)
	assert.Zero(t, res.Stats.Modified)
}

func TestStageError(t *testing.T) {
	inner := errors.New("boom")
	err := &StageError{Stage: "completion", Type: "app/T", Err: inner}
	assert.Equal(t, "stage completion: type app/T: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestRun_StreamWithoutParamTags(t *testing.T) {
	// Neither declaration carries param_tags, as a compiler writes a method
	// with no parameter annotations.
	stream := fmt.Sprintf(`{"name":"app/Base","super":%q,"methods":[{"name":"count","desc":"(I)V","tags":[{"type":%q,"fields":[{"name":"value","value":"count:"}]},{"type":%q}]}]}
{"name":"app/Derived","super":"app/Base","methods":[{"name":"count","desc":"(I)V","code":{"instructions":[{"op":"return"}]}}]}`,
		tu.NativeObject, tu.Selector, tu.Owned)
	in, err := ir.ReadStream(strings.NewReader(stream))
	require.NoError(t, err)

	p := New(defaultRegistry(t), WithLibrary(tu.Platform()...), WithStages(completion.StageName))
	res, err := p.Run(context.Background(), in)
	require.NoError(t, err)

	m, _ := res.Types[1].FindMethod("count", "(I)V")
	require.NotNil(t, m)
	assert.True(t, ir.HasTag(m.Tags, tu.Owned))
	assert.False(t, ir.HasTag(m.Tags, tu.Selector), "contract marker is not copied")
	require.Len(t, m.ParamTags, 1)
	assert.Empty(t, m.ParamTags[0])

	require.Len(t, res.Records, 1)
	assert.Equal(t, diag.CodeTagsInjected, res.Records[0].Code)
	assert.Equal(t, "app/Derived", res.Records[0].Type)
}
