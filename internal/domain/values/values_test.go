package values

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/glimpse/aot"
)

type player struct{}

func Test_NewUnitID(t *testing.T) {
	id1 := NewUnitID()
	id2 := NewUnitID()

	assert.False(t, id1.IsZero())
	assert.NotEqual(t, id1, id2, "two new IDs should be different")
	assert.True(t, UnitID{}.IsZero())
}

func Test_ParseUnitID(t *testing.T) {
	const valid = "123e4567-e89b-12d3-a456-426614174000"

	id, err := ParseUnitID(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, id.String())

	for _, bad := range []string{"", "invalid", "123"} {
		_, err := ParseUnitID(bad)
		assert.Error(t, err, bad)
	}
	assert.Panics(t, func() { MustParseUnitID("invalid") })
}

func Test_UnitID_Text(t *testing.T) {
	id := NewUnitID()
	b, err := id.MarshalText()
	require.NoError(t, err)

	var back UnitID
	require.NoError(t, back.UnmarshalText(b))
	assert.Equal(t, id, back)
}

func Test_Severity(t *testing.T) {
	tests := []struct {
		in    string
		want  Severity
		sarif string
	}{
		{"info", SeverityInfo, "note"},
		{"warn", SeverityWarning, "warning"},
		{"ERROR", SeverityError, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSeverity(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.sarif, got.SARIFLevel())
		})
	}

	_, err := ParseSeverity("fatal")
	assert.Error(t, err)
	assert.True(t, SeverityError.IsHigherOrEqual(SeverityWarning))
}

func Test_MemberKey(t *testing.T) {
	decl := reflect.TypeFor[player]()
	h := MemberHandle{Decl: decl, Name: "Health", Kind: KindField}

	assert.Equal(t, MemberKey{Decl: decl, Kind: KindField, Name: "Health"}, h.Key())
	assert.Equal(t, "github.com/reglet-dev/glimpse/internal/domain/values.player.Health", h.String())

	a := MemberKey{Decl: decl, Kind: KindField, Name: "A"}
	b := MemberKey{Decl: decl, Kind: KindField, Name: "B"}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func Test_ClosureKey(t *testing.T) {
	k := NewClosureKey(aot.FamilyDictionary, "string", "int")
	assert.Equal(t, "Dictionary[string, int]", k.String())
}

func Test_TypeName(t *testing.T) {
	assert.Equal(t, "int", TypeName(reflect.TypeFor[int]()))
	assert.Equal(t, "[]string", TypeName(reflect.TypeFor[[]string]()))
	assert.Equal(t, "<nil>", TypeName(nil))
}
