package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fingerprintFixture() *CompiledType {
	return &CompiledType{
		Name:  "app/Derived",
		Super: "app/Base",
		Methods: []*Method{{
			Name: "speak",
			Desc: "()V",
			Tags: []Tag{{Type: "Lorg/moe/natj/general/ann/Owned;", Visible: true}},
		}},
	}
}

func TestFingerprintDeterminism(t *testing.T) {
	fp1, err := Fingerprint(fingerprintFixture())
	require.NoError(t, err)

	fp2, err := Fingerprint(fingerprintFixture())
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2, "Fingerprint must be deterministic")
	assert.Len(t, fp1, 64, "SHA-256 hex is 64 characters")
}

func TestFingerprintChangesWithContent(t *testing.T) {
	base := fingerprintFixture()

	tagged := base.Clone()
	tagged.Methods[0].Tags = append(tagged.Methods[0].Tags, Tag{Type: "Lorg/moe/natj/general/ann/ByValue;"})

	renamed := base.Clone()
	renamed.Name = "app/Other"

	assert.NotEqual(t, MustFingerprint(base), MustFingerprint(tagged))
	assert.NotEqual(t, MustFingerprint(base), MustFingerprint(renamed))
	assert.Equal(t, MustFingerprint(base), MustFingerprint(base.Clone()))
}

func TestFingerprintDomainSeparation(t *testing.T) {
	ct := fingerprintFixture()

	typeFP := MustFingerprint(ct)
	streamFP, err := StreamFingerprint([]*CompiledType{ct})
	require.NoError(t, err)

	assert.NotEqual(t, typeFP, streamFP)
}

func TestStreamFingerprintOrderSensitive(t *testing.T) {
	a := &CompiledType{Name: "app/A"}
	b := &CompiledType{Name: "app/B"}

	ab, err := StreamFingerprint([]*CompiledType{a, b})
	require.NoError(t, err)
	ba, err := StreamFingerprint([]*CompiledType{b, a})
	require.NoError(t, err)

	assert.NotEqual(t, ab, ba)
}

func TestMustFingerprintPanics(t *testing.T) {
	bad := &CompiledType{
		Name: "app/Bad",
		Tags: []Tag{{Type: "LX;", Fields: []TagField{{Name: "value"}}}},
	}
	assert.Panics(t, func() { MustFingerprint(bad) })
}
