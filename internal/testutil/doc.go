// Package testutil provides fixture builders and deterministic generators
// shared by package tests and the conformance harness.
package testutil
