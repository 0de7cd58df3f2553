package marker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		want func(*testing.T, Member)
	}{
		{
			name: "label only",
			tag:  "Hit points",
			want: func(t *testing.T, m Member) {
				assert.Equal(t, "Hit points", m.Options.Label)
				assert.Equal(t, KindField, m.Kind)
				assert.Equal(t, DefaultFontSize, m.Options.FontSize)
				assert.Nil(t, m.Condition)
			},
		},
		{
			name: "empty label keeps field name",
			tag:  ",segment:tick",
			want: func(t *testing.T, m Member) {
				assert.Equal(t, "Health", m.Options.Label)
				assert.Equal(t, SegmentTick, m.Segment)
			},
		},
		{
			name: "comparison",
			tag:  "HP,gt:10",
			want: func(t *testing.T, m Member) {
				require.NotNil(t, m.Condition)
				assert.Equal(t, Comparison, m.Condition.Kind)
				assert.Equal(t, Gt, m.Condition.Op)
				assert.Equal(t, "10", m.Condition.Literal)
			},
		},
		{
			name: "formatting options",
			tag:  "HP,format:%.2f,group:Stats,indent:4,elem:3,index,tags:a|b,color:#ff0000,font:18,pos:2,prefix:>",
			want: func(t *testing.T, m Member) {
				o := m.Options
				assert.Equal(t, "%.2f", o.Format)
				assert.Equal(t, "Stats", o.Group)
				assert.Equal(t, 4, o.Indent)
				assert.Equal(t, 3, o.ElementIndent)
				assert.True(t, o.ShowIndex)
				assert.Equal(t, "#ff0000", o.Color)
				assert.Equal(t, 18, o.FontSize)
				assert.Equal(t, 2, o.Position)
				assert.Equal(t, ">", o.Prefix)
				assert.Equal(t, []string{"a", "b"}, m.Tags)
			},
		},
		{
			name: "quoted expression",
			tag:  "HP,expr:'value > 1, value < 9'",
			want: func(t *testing.T, m Member) {
				require.NotNil(t, m.Condition)
				assert.Equal(t, Expression, m.Condition.Kind)
				assert.Equal(t, "value > 1, value < 9", m.Condition.Expr)
			},
		},
		{
			name: "behavioural hints",
			tag:  ",processor:Fmt,event:Changed,cond:positive,redact",
			want: func(t *testing.T, m Member) {
				assert.Equal(t, "Fmt", m.Processor)
				assert.Equal(t, "Changed", m.UpdateEvent)
				assert.True(t, m.Redact)
				require.NotNil(t, m.Condition)
				assert.Equal(t, IsPositive, m.Condition.Check)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok, err := ParseTag("Health", tt.tag)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "Health", m.Name)
			tt.want(t, m)
		})
	}
}

func TestParseTag_Errors(t *testing.T) {
	for _, tag := range []string{"x,segment:never", "x,font:big", "x,cond:maybe", "x,bogus:1"} {
		t.Run(tag, func(t *testing.T) {
			_, _, err := ParseTag("F", tag)
			assert.Error(t, err)
		})
	}
}

func TestParseTag_Skip(t *testing.T) {
	_, ok, err := ParseTag("F", "-")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemberOptions(t *testing.T) {
	m := Method("Roll", Label("Dice"), Args(3, "x"), OutParam(1, "sum"), Update(SegmentFrame), If("Alive"))

	assert.Equal(t, KindMethod, m.Kind)
	assert.Equal(t, "Dice", m.Options.Label)
	assert.Equal(t, []any{3, "x"}, m.Args)
	assert.Equal(t, []Out{{Index: 1, Name: "sum"}}, m.Outs)
	assert.Equal(t, SegmentFrame, m.Segment)
	assert.Equal(t, "if Alive", m.Condition.String())
}

func TestStaticDecls(t *testing.T) {
	var n int
	v := Var("Count", &n)
	p := Processor("Fmt", func(FormatOptions, int) string { return "" })

	assert.True(t, v.Monitored())
	assert.Equal(t, KindField, v.Member.Kind)
	assert.False(t, p.Monitored())
}

func TestParseSegment(t *testing.T) {
	s, err := ParseSegment("frame")
	require.NoError(t, err)
	assert.Equal(t, SegmentFrame, s)
	assert.Equal(t, "frame", s.String())

	_, err = ParseSegment("sometimes")
	assert.Error(t, err)
}
