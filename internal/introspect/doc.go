// Package introspect answers questions about compiled types by name:
// which type a name refers to, which methods it declares, and what it
// extends and implements.
//
// The passes never consult a global class-loading facility. They receive
// an Introspector, which in production is a Classpath wrapped in a Memo
// and in tests is usually a Classpath built from fixtures.
//
// Thread-safety: a Classpath is read-only after loading and safe to share.
// A Memo is NOT safe for concurrent use and must not outlive one pipeline
// run.
package introspect
