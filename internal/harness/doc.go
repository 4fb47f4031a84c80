// Package harness runs conformance scenarios against the pass pipeline.
//
// # Scenario Format
//
// Scenarios are YAML files. Types are written in the stream's JSON shape
// (see ir.ReadStream) using YAML syntax:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	stages: [completion, register]     # optional, defaults to both
//	registry: profiles/custom.cue      # optional, relative to the scenario
//	classpath: [lib/runtime.jsonl]     # optional library stream files
//	library:                           # optional inline library types
//	  - name: app/Base
//	    super: org/moe/natj/general/NativeObject
//	input:
//	  - name: app/View
//	    super: app/Base
//	    methods:
//	      - name: speak
//	        desc: ()V
//	expect_error:                      # optional; omit when the run must succeed
//	  stage: completion
//	  code: COLLISION
//	assertions:
//	  - type: has_tag
//	    type_name: app/View
//	    method: speak()V
//	    tag: Lorg/moe/natj/general/ann/Owned;
//	  - type: record
//	    code: I100
//	    count: 1
//
// The platform root, the bridging root, and the registration hook owner
// are always on the classpath.
//
// # Assertion Types
//
//   - has_tag / lacks_tag: a tag kind at the method position or at
//     parameter `param`, with optional subset `fields`
//   - record: count of diagnostic records matching code (and optionally
//     type_name, method); without count at least one must match
//   - instructions: a method body, one rendered instruction per entry:
//     "return", "bipush 7", "goto @4", "tableswitch @9 @5 @7", or
//     "invokestatic org/moe/natj/general/NatJ.register()V"
//   - unchanged / modified: content fingerprint comparison of one type
//   - method_count: number of methods declared by a type
//
// # Golden Files
//
// RunWithGolden compares the run's diagnostic trace against
// testdata/golden/<name>.golden. Every scenario runs against a fresh
// in-memory journal and the trace is read back from it, so goldens also
// pin the journal round trip. Regenerate with:
//
//	go test ./internal/harness -update
package harness
