// Package ir provides the compiled-type model that bridgepass reads,
// rewrites, and re-emits.
//
// ir holds type definitions and codecs only and imports nothing internal.
//
// Conventions:
//   - Type names are always in internal (slash) form: "org/moe/natj/general/NatJ"
//   - Tag values form a closed sum type (TagValue); NO float values
//   - Branch and handler targets are instruction indexes, never byte offsets
//   - A type is only ever mutated through Clone(); passes never touch their input
//   - All JSON tags use snake_case
package ir
