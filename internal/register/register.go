// Package register guarantees that every type participating in the
// bridging runtime calls the registration hook from its static
// initializer, and calls it before anything else when it was missing.
package register

import (
	"log/slog"

	"github.com/roach88/bridgepass/internal/diag"
	"github.com/roach88/bridgepass/internal/ir"
	"github.com/roach88/bridgepass/internal/registry"
	"github.com/roach88/bridgepass/internal/resolver"
)

// StageName identifies this pass in records and pipeline errors.
const StageName = "register"

// Pass is the registration injection pass.
type Pass struct {
	reg      *registry.Registry
	resolver *resolver.Resolver
	sink     diag.Sink
}

// New creates a registration pass. A nil sink discards records.
func New(reg *registry.Registry, res *resolver.Resolver, sink diag.Sink) *Pass {
	if sink == nil {
		sink = diag.Discard
	}
	return &Pass{reg: reg, resolver: res, sink: sink}
}

// Name returns the stage name.
func (p *Pass) Name() string {
	return StageName
}

// Participates reports whether t takes part in the bridging runtime: its
// superclass descends from the bridging root, or it carries the runtime
// designation tag.
func (p *Pass) Participates(t *ir.CompiledType) bool {
	if p.resolver.IsBridgingDescendant(t.Name, t.Super) {
		return true
	}
	return ir.HasTag(t.Tags, p.reg.RuntimeTag)
}

// Transform ensures t's static initializer calls the hook. It returns t
// itself when nothing changes.
//
// CRITICAL: an initializer that already calls the hook anywhere in its
// body is left exactly as it is, so the pass is idempotent.
func (p *Pass) Transform(t *ir.CompiledType) (*ir.CompiledType, error) {
	if p.reg.Excluded(t.Name) || !p.Participates(t) {
		return t, nil
	}

	hook := p.reg.Hook
	clinit, idx := t.Clinit()
	if clinit == nil {
		out := t.Clone()
		out.Methods = append(out.Methods, synthesize(hook))
		p.emit(diag.CodeClinitSynthesized, t.Name, "synthesized static initializer calling "+hook.String())
		return out, nil
	}

	if at := hookIndex(clinit, hook); at >= 0 {
		slog.Debug("registration call already present", "type", t.Name, "index", at)
		return t, nil
	}

	out := t.Clone()
	prepend(out.Methods[idx], hook)
	p.emit(diag.CodeHookPrepended, t.Name, "injected "+hook.String()+" into static initializer")
	return out, nil
}

func (p *Pass) emit(code, typeName, msg string) {
	p.sink.Emit(diag.Record{
		Severity: diag.SeverityInfo,
		Code:     code,
		Stage:    StageName,
		Type:     typeName,
		Method:   ir.ClinitName + ir.ClinitDesc,
		Message:  msg,
	})
}

// hookIndex returns the index of the first instruction calling hook, or -1.
func hookIndex(m *ir.Method, hook ir.MemberRef) int {
	if m.Code == nil {
		return -1
	}
	for i, insn := range m.Code.Instructions {
		if insn.Calls(hook) {
			return i
		}
	}
	return -1
}

func hookCall(hook ir.MemberRef) ir.Instruction {
	return ir.Instruction{Op: ir.OpInvokeStatic, Owner: hook.Owner, Name: hook.Name, Desc: hook.Desc}
}

// synthesize builds `static <clinit>()V { invokestatic hook; return }`.
func synthesize(hook ir.MemberRef) *ir.Method {
	return &ir.Method{
		Name:   ir.ClinitName,
		Desc:   ir.ClinitDesc,
		Access: ir.AccStatic,
		Code: &ir.Code{
			Instructions: []ir.Instruction{hookCall(hook), {Op: ir.OpReturn}},
		},
	}
}

// prepend inserts the hook call before the first instruction of m and
// shifts every instruction index in the body by one.
func prepend(m *ir.Method, hook ir.MemberRef) {
	if m.Code == nil {
		m.Code = &ir.Code{}
	}
	code := m.Code

	for i := range code.Instructions {
		insn := &code.Instructions[i]
		if insn.Target != nil {
			*insn.Target++
		}
		for j := range insn.Targets {
			insn.Targets[j]++
		}
	}
	for i := range code.Handlers {
		h := &code.Handlers[i]
		h.Start++
		h.End++
		h.Handler++
	}

	code.Instructions = append([]ir.Instruction{hookCall(hook)}, code.Instructions...)
}
