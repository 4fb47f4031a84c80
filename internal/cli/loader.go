package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/bridgepass/internal/config"
	"github.com/roach88/bridgepass/internal/diag"
	"github.com/roach88/bridgepass/internal/introspect"
	"github.com/roach88/bridgepass/internal/ir"
	"github.com/roach88/bridgepass/internal/pipeline"
	"github.com/roach88/bridgepass/internal/registry"
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeConfig      = "E002" // Config file or flag error
	ErrCodeRegistry    = "E003" // Registry profile failed to load
	ErrCodeClasspath   = "E004" // Classpath entry unreadable
	ErrCodeInput       = "E005" // Input stream unreadable or malformed
	ErrCodeWriteFailed = "E007" // Output write error
	ErrCodeJournal     = "E008" // Journal open/read/write error
	ErrCodeTestFailed  = "E009" // One or more scenarios failed
	ErrCodeStageFailed = diag.CodeStageFailed
)

// ProfileDefault names the built-in registry profile in journal rows.
const ProfileDefault = "default"

// PipelineFlags are the flags shared by commands that build a pipeline.
// Flags override bridgepass.yaml and BRIDGEPASS_* values.
type PipelineFlags struct {
	Config    string
	Registry  string
	Classpath []string
	Stages    []string
}

func (f *PipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Config, "config", "", "config file (default: ./bridgepass.yaml if present)")
	cmd.Flags().StringVar(&f.Registry, "registry", "", "CUE registry profile (default: built-in NatJ profile)")
	cmd.Flags().StringSliceVar(&f.Classpath, "classpath", nil, "library stream files or directories")
	cmd.Flags().StringSliceVar(&f.Stages, "stages", nil, "stages to run, in order (default: completion,register)")
}

// Environment is everything a pipeline needs besides its input.
type Environment struct {
	Config   *config.Config
	Registry *registry.Registry
	Profile  string // "default" or the profile path
	Library  []*ir.CompiledType
}

// loadEnvironment resolves configuration, then loads the registry and the
// library classpath.
func loadEnvironment(cmd *cobra.Command, flags *PipelineFlags) (*Environment, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}

	reg, profile, err := loadRegistry(cfg.Registry)
	if err != nil {
		return nil, err
	}

	library, err := loadClasspath(cfg.Classpath)
	if err != nil {
		return nil, err
	}

	return &Environment{Config: cfg, Registry: reg, Profile: profile, Library: library}, nil
}

func loadConfig(cmd *cobra.Command, flags *PipelineFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.Config != "" {
		cfg, err = config.LoadFile(flags.Config)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}

	if cmd.Flags().Changed("registry") {
		cfg.Registry = flags.Registry
	}
	if cmd.Flags().Changed("classpath") {
		cfg.Classpath = flags.Classpath
	}
	if cmd.Flags().Changed("stages") {
		cfg.Stages = flags.Stages
	}
	if f := cmd.Flags().Lookup("journal"); f != nil && f.Changed {
		cfg.Journal = f.Value.String()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}
	return cfg, nil
}

func loadRegistry(path string) (*registry.Registry, string, error) {
	if path == "" {
		reg, err := registry.Default()
		if err != nil {
			return nil, "", &LoadError{Code: ErrCodeRegistry, Message: err.Error()}
		}
		return reg, ProfileDefault, nil
	}
	reg, err := registry.LoadFile(path)
	if err != nil {
		return nil, "", &LoadError{Code: ErrCodeRegistry, Message: err.Error()}
	}
	return reg, path, nil
}

// loadClasspath reads every entry into one Classpath. Later entries
// replace earlier types of the same name.
func loadClasspath(entries []string) ([]*ir.CompiledType, error) {
	cp := introspect.NewClasspath()
	for _, entry := range entries {
		if err := cp.Load(entry); err != nil {
			return nil, &LoadError{Code: ErrCodeClasspath, Message: err.Error()}
		}
	}
	return cp.Types(), nil
}

// readInput reads the input stream from path, or from stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]*ir.CompiledType, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeInput, Message: fmt.Sprintf("input not readable: %v", err)}
		}
		defer f.Close()
		r = f
	}

	types, err := ir.ReadStream(r)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInput, Message: err.Error()}
	}
	return types, nil
}

// newPipeline builds the configured pipeline. A nil sink discards records
// beyond the ones returned in the Result.
func (e *Environment) newPipeline(sink diag.Sink) *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithLibrary(e.Library...),
		pipeline.WithStages(e.Config.Stages...),
	}
	if sink != nil {
		opts = append(opts, pipeline.WithSink(sink))
	}
	return pipeline.New(e.Registry, opts...)
}

// LoadError is a command error with a CLI error code. It maps to exit
// code 2.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
