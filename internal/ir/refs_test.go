package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeRefDescriptor(t *testing.T) {
	tests := []struct {
		ref  TypeRef
		desc string
		str  string
	}{
		{TypeRef{Kind: KindInt}, "I", "int"},
		{TypeRef{Kind: KindVoid}, "V", "void"},
		{Object("java/lang/String"), "Ljava/lang/String;", "java/lang/String"},
		{ArrayOf(TypeRef{Kind: KindByte}, 1), "[B", "byte[]"},
		{ArrayOf(Object("app/Point"), 2), "[[Lapp/Point;", "app/Point[][]"},
		{TypeRef{}, "", "<invalid>"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.desc, tt.ref.Descriptor())
			assert.Equal(t, tt.str, tt.ref.String())
		})
	}
}

func TestPrimitiveKind(t *testing.T) {
	for _, code := range []byte("VZBCSIJFD") {
		k, ok := PrimitiveKind(code)
		assert.True(t, ok, "code %c", code)
		assert.Equal(t, string(code), TypeRef{Kind: k}.Descriptor())
	}

	for _, code := range []byte("L[QX") {
		_, ok := PrimitiveKind(code)
		assert.False(t, ok, "code %c", code)
	}
}

func TestArrayOfKeepsOriginal(t *testing.T) {
	base := Object("app/Point")
	arr := ArrayOf(base, 1)
	assert.False(t, base.IsArray())
	assert.True(t, arr.IsArray())
}

func TestDescriptorName(t *testing.T) {
	assert.Equal(t, "org/moe/natj/objc/ann/Selector", DescriptorName("Lorg/moe/natj/objc/ann/Selector;"))
	assert.Equal(t, "I", DescriptorName("I"))
	assert.Equal(t, "", DescriptorName("L;"))
}

func TestMemberRefString(t *testing.T) {
	ref := MemberRef{Owner: "org/moe/natj/general/NatJ", Name: "register", Desc: "()V"}
	assert.Equal(t, "org/moe/natj/general/NatJ.register()V", ref.String())
}
