// Package pipeline composes the passes into one run over a compiled-type
// stream.
//
// A run:
//   - snapshots the input stream together with the library types into a
//     Classpath, before any pass modifies anything
//   - builds a fresh introspection Memo and Resolver for the run
//   - pushes each type through every selected stage in order before
//     moving to the next type
//   - aborts on the first fatal error, returning no output types
//
// # Critical Patterns
//
// CRITICAL: Run never shares lookup caches between runs. Two runs over
// different streams must not observe each other's types.
//
// CRITICAL: Stages are pure. A stage returns its input pointer when it has
// nothing to change; the pipeline relies on fingerprints, not pointer
// identity, to report which types were modified.
package pipeline
