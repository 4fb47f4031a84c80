package introspect

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bridgepass/internal/ir"
)

func sampleTypes() []*ir.CompiledType {
	return []*ir.CompiledType{
		{Name: "java/lang/Object"},
		{Name: "app/Speaker", Super: "java/lang/Object", Access: ir.AccInterface | ir.AccAbstract,
			Methods: []*ir.Method{{Name: "speak", Desc: "(I)V"}}},
		{Name: "app/Base", Super: "java/lang/Object", Interfaces: []string{"app/Speaker"},
			Methods: []*ir.Method{
				{Name: "speak", Desc: "(I)V"},
				{Name: "speak", Desc: "(Ljava/lang/String;)Ljava/lang/Object;"},
				{Name: "broken", Desc: "(Q)V"},
			}},
		{Name: "app/Orphan", Super: "app/Missing", Interfaces: []string{"app/Gone"}},
	}
}

func TestClasspathResolveType(t *testing.T) {
	cp := NewClasspath(sampleTypes()...)
	assert.Equal(t, 4, cp.Len())
	assert.Equal(t, []string{"app/Base", "app/Orphan", "app/Speaker", "java/lang/Object"}, cp.Names())

	base, err := cp.ResolveType("app/Base")
	require.NoError(t, err)
	assert.Equal(t, "app/Base", base.Name)

	_, err = cp.ResolveType("app/Nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeNotFound))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "app/Nope", nf.Name)
}

func TestClasspathSnapshotsInput(t *testing.T) {
	types := sampleTypes()
	cp := NewClasspath(types...)

	types[2].Methods[0].Tags = append(types[2].Methods[0].Tags, ir.Tag{Type: "LChanged;"})

	base, err := cp.ResolveType("app/Base")
	require.NoError(t, err)
	assert.Empty(t, base.Methods[0].Tags, "classpath must hold a snapshot")
}

func TestClasspathDeclaredMethod(t *testing.T) {
	cp := NewClasspath(sampleTypes()...)
	base, err := cp.ResolveType("app/Base")
	require.NoError(t, err)

	m, err := cp.DeclaredMethod(base, "speak", []ir.TypeRef{{Kind: ir.KindInt}})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "(I)V", m.Desc)

	// Return type is ignored.
	m, err = cp.DeclaredMethod(base, "speak", []ir.TypeRef{ir.Object("java/lang/String")})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "(Ljava/lang/String;)Ljava/lang/Object;", m.Desc)

	m, err = cp.DeclaredMethod(base, "speak", nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = cp.DeclaredMethod(base, "broken", []ir.TypeRef{})
	require.NoError(t, err)
	assert.Nil(t, m, "malformed candidates never match")
}

func TestClasspathSuperclassAndInterfaces(t *testing.T) {
	cp := NewClasspath(sampleTypes()...)

	base, _ := cp.ResolveType("app/Base")
	super, err := cp.SuperclassOf(base)
	require.NoError(t, err)
	assert.Equal(t, "java/lang/Object", super.Name)

	root, _ := cp.ResolveType("java/lang/Object")
	super, err = cp.SuperclassOf(root)
	require.NoError(t, err)
	assert.Nil(t, super)

	itfs, err := cp.InterfacesOf(base)
	require.NoError(t, err)
	require.Len(t, itfs, 1)
	assert.Equal(t, "app/Speaker", itfs[0].Name)

	orphan, _ := cp.ResolveType("app/Orphan")
	_, err = cp.SuperclassOf(orphan)
	assert.ErrorIs(t, err, ErrTypeNotFound)
	_, err = cp.InterfacesOf(orphan)
	assert.ErrorIs(t, err, ErrTypeNotFound)
}

func TestClasspathLoadDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "lib")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jsonl"),
		[]byte(`{"name":"java/lang/Object"}`+"\n"+`{"name":"app/A","super":"java/lang/Object"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.json"),
		[]byte(`{"name":"app/B","super":"app/A"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "notes.txt"),
		[]byte(`not a stream`), 0o644))

	cp := NewClasspath()
	require.NoError(t, cp.LoadDir(dir))
	assert.Equal(t, []string{"app/A", "app/B", "java/lang/Object"}, cp.Names())
}

func TestClasspathLoadFileErrors(t *testing.T) {
	cp := NewClasspath()

	err := cp.LoadFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(bad, []byte(`{"name":`), 0o644))
	err = cp.LoadFile(bad)
	var se *ir.StreamError
	assert.ErrorAs(t, err, &se)
}

func TestClasspathLoadAndTypes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "one.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(`{"name":"app/Z"}`+"\n"+`{"name":"app/A"}`+"\n"), 0o644))
	sub := filepath.Join(dir, "more")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "two.jsonl"), []byte(`{"name":"app/M"}`), 0o644))

	cp := NewClasspath()
	require.NoError(t, cp.Load(file))
	require.NoError(t, cp.Load(sub))

	types := cp.Types()
	require.Len(t, types, 3)
	assert.Equal(t, "app/A", types[0].Name)
	assert.Equal(t, "app/M", types[1].Name)
	assert.Equal(t, "app/Z", types[2].Name)

	err := cp.Load(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
