package testutil

import "github.com/roach88/bridgepass/internal/ir"

// NatJ tag kinds as they appear in compiled code.
const (
	ByValue            = "Lorg/moe/natj/general/ann/ByValue;"
	Mapped             = "Lorg/moe/natj/general/ann/Mapped;"
	MappedReturn       = "Lorg/moe/natj/general/ann/MappedReturn;"
	NFloat             = "Lorg/moe/natj/general/ann/NFloat;"
	NInt               = "Lorg/moe/natj/general/ann/NInt;"
	NUInt              = "Lorg/moe/natj/general/ann/NUInt;"
	Owned              = "Lorg/moe/natj/general/ann/Owned;"
	ReferenceInfo      = "Lorg/moe/natj/general/ann/ReferenceInfo;"
	Runtime            = "Lorg/moe/natj/general/ann/Runtime;"
	FunctionPtr        = "Lorg/moe/natj/c/ann/FunctionPtr;"
	IBAction           = "Lorg/moe/natj/objc/ann/IBAction;"
	IBOutlet           = "Lorg/moe/natj/objc/ann/IBOutlet;"
	IBOutletCollection = "Lorg/moe/natj/objc/ann/IBOutletCollection;"
	NotImplemented     = "Lorg/moe/natj/objc/ann/NotImplemented;"
	ObjCBlock          = "Lorg/moe/natj/objc/ann/ObjCBlock;"
	Selector           = "Lorg/moe/natj/objc/ann/Selector;"
)

// Well-known type names.
const (
	ObjectType   = "java/lang/Object"
	NativeObject = "org/moe/natj/general/NativeObject"
	NatJType     = "org/moe/natj/general/NatJ"
)

// RegisterHook is the NatJ registration call.
var RegisterHook = ir.MemberRef{Owner: NatJType, Name: "register", Desc: "()V"}

// Platform returns the minimal library universe every bridging fixture
// needs: the platform root, the bridging root, and the hook owner.
func Platform() []*ir.CompiledType {
	return []*ir.CompiledType{
		Type(ObjectType, "").Build(),
		Type(NativeObject, ObjectType).Build(),
		Type(NatJType, ObjectType).
			Method(Method("register", "()V").Static().Build()).
			Build(),
	}
}

// SelectorTag returns a contract marker with the given selector string.
func SelectorTag(sel string) ir.Tag {
	return Tag(Selector, Field("value", ir.TagString(sel)))
}
