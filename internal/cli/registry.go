package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bridgepass/internal/registry"
)

// RegistryOptions holds flags for the registry command.
type RegistryOptions struct {
	*RootOptions
	Registry string
	Source   bool
}

// TagKindView is the JSON shape of one recognized tag kind.
type TagKindView struct {
	Name     string   `json:"name"`
	Return   bool     `json:"return"`
	Param    bool     `json:"param"`
	Optional bool     `json:"optional,omitempty"`
	Fields   []string `json:"fields,omitempty"`
}

// RegistryView is the JSON shape of the effective registry.
type RegistryView struct {
	Profile        string        `json:"profile"`
	ContractMarker string        `json:"contract_marker"`
	RuntimeTag     string        `json:"runtime_tag"`
	BridgingRoot   string        `json:"bridging_root"`
	ExcludedPrefix string        `json:"excluded_prefix"`
	Hook           string        `json:"hook"`
	Tags           []TagKindView `json:"tags"`
	Groups         [][]string    `json:"groups"`
}

// String renders the text form.
func (v RegistryView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "profile:         %s\n", v.Profile)
	fmt.Fprintf(&b, "contract marker: %s\n", v.ContractMarker)
	fmt.Fprintf(&b, "runtime tag:     %s\n", v.RuntimeTag)
	fmt.Fprintf(&b, "bridging root:   %s\n", v.BridgingRoot)
	fmt.Fprintf(&b, "excluded prefix: %s\n", v.ExcludedPrefix)
	fmt.Fprintf(&b, "hook:            %s\n", v.Hook)
	fmt.Fprintf(&b, "\ntag kinds (%d):\n", len(v.Tags))
	for _, t := range v.Tags {
		var at []string
		if t.Return {
			at = append(at, registry.PlaceMethod.String())
		}
		if t.Param {
			at = append(at, registry.PlaceParam.String())
		}
		if t.Optional {
			at = append(at, "optional")
		}
		fmt.Fprintf(&b, "  %s [%s]", t.Name, strings.Join(at, ", "))
		if len(t.Fields) > 0 {
			fmt.Fprintf(&b, " fields: %s", strings.Join(t.Fields, ", "))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nexclusion groups (%d):\n", len(v.Groups))
	for _, g := range v.Groups {
		fmt.Fprintf(&b, "  %s\n", strings.Join(g, " "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewRegistryCommand creates the registry command.
func NewRegistryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegistryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Print the effective tag registry",
		Long: `Load and validate a registry profile and print it: recognized tag
kinds with their legal positions and fields, mutual-exclusion groups, the
contract marker, and the registration hook.

Without --registry the built-in NatJ profile is used. --source prints the
built-in profile's CUE source, a starting point for a custom profile.

Examples:
  bridgepass registry
  bridgepass registry --registry profiles/custom.cue --format json
  bridgepass registry --source > custom.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistry(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Registry, "registry", "", "CUE registry profile (default: built-in NatJ profile)")
	cmd.Flags().BoolVar(&opts.Source, "source", false, "print the built-in profile source")

	return cmd
}

func runRegistry(opts *RegistryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Source {
		_, err := cmd.OutOrStdout().Write(registry.DefaultSource())
		return err
	}

	reg, profile, err := loadRegistry(opts.Registry)
	if err != nil {
		return loadFailure(formatter, "failed to load registry", err)
	}
	return formatter.Success(registryView(reg, profile))
}

func registryView(reg *registry.Registry, profile string) RegistryView {
	v := RegistryView{
		Profile:        profile,
		ContractMarker: reg.ContractMarker,
		RuntimeTag:     reg.RuntimeTag,
		BridgingRoot:   reg.BridgingRoot,
		ExcludedPrefix: reg.ExcludedPrefix,
		Hook:           reg.Hook.String(),
		Tags:           make([]TagKindView, len(reg.Tags)),
		Groups:         reg.Groups,
	}
	if v.Groups == nil {
		v.Groups = [][]string{}
	}
	for i, t := range reg.Tags {
		fields := make([]string, len(t.Fields))
		for j, f := range t.Fields {
			fields[j] = f.Name + ":" + string(f.Kind)
		}
		v.Tags[i] = TagKindView{Name: t.Name, Return: t.Return, Param: t.Param, Optional: t.Optional, Fields: fields}
	}
	return v
}
