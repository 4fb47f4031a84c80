package testutil

import (
	"fmt"

	"github.com/roach88/bridgepass/internal/descriptor"
	"github.com/roach88/bridgepass/internal/ir"
)

// TypeBuilder assembles a CompiledType.
type TypeBuilder struct {
	t *ir.CompiledType
}

// Type starts a public class with the given superclass and interfaces.
// An empty super makes it a root.
func Type(name, super string, interfaces ...string) *TypeBuilder {
	return &TypeBuilder{t: &ir.CompiledType{
		Name:       name,
		Super:      super,
		Interfaces: interfaces,
		Access:     ir.AccPublic,
		Version:    52,
	}}
}

// Interface starts an interface type extending the given interfaces.
func Interface(name string, extends ...string) *TypeBuilder {
	b := Type(name, ObjectType, extends...)
	b.t.Access = ir.AccPublic | ir.AccInterface | ir.AccAbstract
	return b
}

// Tag adds type-level tags.
func (b *TypeBuilder) Tag(tags ...ir.Tag) *TypeBuilder {
	b.t.Tags = append(b.t.Tags, tags...)
	return b
}

// Method adds methods in order.
func (b *TypeBuilder) Method(methods ...*ir.Method) *TypeBuilder {
	b.t.Methods = append(b.t.Methods, methods...)
	return b
}

// Build returns the type.
func (b *TypeBuilder) Build() *ir.CompiledType {
	return b.t
}

// MethodBuilder assembles a Method.
type MethodBuilder struct {
	m *ir.Method
}

// Method starts a public method. ParamTags is sized from the descriptor.
// Panics on a malformed descriptor; use Raw for deliberately broken input.
func Method(name, desc string) *MethodBuilder {
	n, err := descriptor.ParamCount(desc)
	if err != nil {
		panic(fmt.Sprintf("testutil.Method(%s%s): %v", name, desc, err))
	}
	return &MethodBuilder{m: &ir.Method{
		Name:      name,
		Desc:      desc,
		Access:    ir.AccPublic,
		ParamTags: make([]ir.TagSet, n),
	}}
}

// Raw starts a method without inspecting the descriptor.
func Raw(name, desc string, paramSets int) *MethodBuilder {
	return &MethodBuilder{m: &ir.Method{
		Name:      name,
		Desc:      desc,
		Access:    ir.AccPublic,
		ParamTags: make([]ir.TagSet, paramSets),
	}}
}

// Clinit starts a static initializer with the given body.
func Clinit(body ...ir.Instruction) *MethodBuilder {
	return Method(ir.ClinitName, ir.ClinitDesc).Static().Code(body...)
}

// Static marks the method static.
func (b *MethodBuilder) Static() *MethodBuilder {
	b.m.Access |= ir.AccStatic
	return b
}

// Abstract marks the method abstract.
func (b *MethodBuilder) Abstract() *MethodBuilder {
	b.m.Access |= ir.AccAbstract
	return b
}

// Tag adds method/return tags.
func (b *MethodBuilder) Tag(tags ...ir.Tag) *MethodBuilder {
	b.m.Tags = append(b.m.Tags, tags...)
	return b
}

// Param adds tags at parameter index i.
func (b *MethodBuilder) Param(i int, tags ...ir.Tag) *MethodBuilder {
	b.m.ParamTags[i] = append(b.m.ParamTags[i], tags...)
	return b
}

// Code sets the body.
func (b *MethodBuilder) Code(body ...ir.Instruction) *MethodBuilder {
	if b.m.Code == nil {
		b.m.Code = &ir.Code{MaxStack: 1}
	}
	b.m.Code.Instructions = append(b.m.Code.Instructions, body...)
	return b
}

// Handler adds an exception range.
func (b *MethodBuilder) Handler(start, end, handler int, typ string) *MethodBuilder {
	if b.m.Code == nil {
		b.m.Code = &ir.Code{MaxStack: 1}
	}
	b.m.Code.Handlers = append(b.m.Code.Handlers, ir.Handler{Start: start, End: end, Handler: handler, Type: typ})
	return b
}

// Build returns the method.
func (b *MethodBuilder) Build() *ir.Method {
	return b.m
}

// Tag returns a visible tag of the given kind.
func Tag(kind string, fields ...ir.TagField) ir.Tag {
	return ir.Tag{Type: kind, Visible: true, Fields: fields}
}

// Field returns a tag field.
func Field(name string, v ir.TagValue) ir.TagField {
	return ir.TagField{Name: name, Value: v}
}

// Call returns an invokestatic of ref.
func Call(ref ir.MemberRef) ir.Instruction {
	return ir.Instruction{Op: ir.OpInvokeStatic, Owner: ref.Owner, Name: ref.Name, Desc: ref.Desc}
}

// Insn returns an instruction with no operands.
func Insn(op string) ir.Instruction {
	return ir.Instruction{Op: op}
}

// Push returns an instruction with a scalar operand, such as "bipush 7".
func Push(op, operand string) ir.Instruction {
	return ir.Instruction{Op: op, Operand: operand}
}

// Jump returns a branch to instruction index target.
func Jump(op string, target int) ir.Instruction {
	return ir.Instruction{Op: op, Target: &target}
}

// Switch returns a switch with a default target followed by case targets.
func Switch(op string, def int, cases ...int) ir.Instruction {
	return ir.Instruction{Op: op, Target: &def, Targets: cases}
}

// Return returns a void return.
func Return() ir.Instruction {
	return Insn(ir.OpReturn)
}
