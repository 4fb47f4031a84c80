package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bridgepass/internal/diag"
	"github.com/roach88/bridgepass/internal/introspect"
	"github.com/roach88/bridgepass/internal/ir"
	"github.com/roach88/bridgepass/internal/register"
	"github.com/roach88/bridgepass/internal/resolver"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	PipelineFlags
	Type   string
	Method string
	Desc   string
}

// ResolveResult reports which declaration a method overrides. Bridging is
// true when the type would take part in the registration stage.
type ResolveResult struct {
	Type      string       `json:"type"`
	Method    string       `json:"method"`
	Bridging  bool         `json:"bridging"`
	Found     bool         `json:"found"`
	Owner     string       `json:"owner,omitempty"`
	Tags      []string     `json:"tags,omitempty"`
	ParamTags [][]string   `json:"param_tags,omitempty"`
	Records   []RecordView `json:"records"`
}

// String renders the text report.
func (r ResolveResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.%s\n", r.Type, r.Method)
	fmt.Fprintf(&b, "  registers with runtime: %t\n", r.Bridging)
	if !r.Found {
		b.WriteString("  no contract declaration found")
		return b.String()
	}
	fmt.Fprintf(&b, "  declared by: %s\n", r.Owner)
	fmt.Fprintf(&b, "  method tags: %s", strings.Join(r.Tags, " "))
	for i, p := range r.ParamTags {
		fmt.Fprintf(&b, "\n  param %d tags: %s", i, strings.Join(p, " "))
	}
	return b.String()
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <input>",
		Short: "Show which declaration a method overrides",
		Long: `Show the contract declaration the resolver selects for a method,
and whether its type descends from the bridging root.

The lookup sees the same universe a run would: the classpath plus the
input stream.

Examples:
  bridgepass resolve app.jsonl --type app/View --method speak --desc "(I)V"
  bridgepass resolve app.jsonl --type app/View --method init --desc "()V" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	opts.PipelineFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Type, "type", "", "type declaring the override (required)")
	cmd.Flags().StringVar(&opts.Method, "method", "", "method name (required)")
	cmd.Flags().StringVar(&opts.Desc, "desc", "", "method descriptor (required)")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("method")
	_ = cmd.MarkFlagRequired("desc")

	return cmd
}

func runResolve(opts *ResolveOptions, inputPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	env, err := loadEnvironment(cmd, &opts.PipelineFlags)
	if err != nil {
		return loadFailure(formatter, "failed to load configuration", err)
	}
	setupLogging(cmd, logLevel(opts.RootOptions, env.Config.Log.SlogLevel()))

	input, err := readInput(cmd, inputPath)
	if err != nil {
		return loadFailure(formatter, "failed to read input", err)
	}

	cp := introspect.NewClasspath(env.Library...)
	cp.Add(input...)
	t, err := cp.ResolveType(opts.Type)
	if err != nil {
		_ = formatter.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "type not found", err)
	}

	sink := diag.NewCollector()
	res := resolver.New(introspect.NewMemo(cp), env.Registry, sink, resolver.WithStage("resolve"))

	result := ResolveResult{
		Type:     t.Name,
		Method:   opts.Method + opts.Desc,
		Bridging: register.New(env.Registry, res, sink).Participates(t),
	}
	decl, ok := res.ResolveContractDeclaration(t.Name, t.Super, t.Interfaces, opts.Method, opts.Desc)
	if ok {
		result.Found = true
		result.Owner = decl.Owner
		result.Tags = ir.TagKinds(decl.Method.Tags)
		for _, p := range decl.Method.ParamTags {
			result.ParamTags = append(result.ParamTags, ir.TagKinds(p))
		}
	}
	result.Records = recordViews(sink.Records())

	if formatter.Format != "json" {
		formatter.Records(sink.Records())
	}
	return formatter.Success(result)
}
