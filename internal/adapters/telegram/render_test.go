package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"el-estate-bot/internal/domain/commands"
	"el-estate-bot/internal/domain/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCell(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "  ", want: "-"},
		{name: "short", in: "Olena K", want: "Olena K"},
		{name: "exact", in: strings.Repeat("я", maxCellRunes), want: strings.Repeat("я", maxCellRunes)},
		{name: "long", in: strings.Repeat("я", maxCellRunes+5), want: strings.Repeat("я", maxCellRunes-1) + "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cell(tt.in))
		})
	}
}

func TestRenderAllowedHugeNameFitsMessage(t *testing.T) {
	t.Parallel()
	huge := strings.Repeat("<&>", 1400)
	rows := []commands.AllowedUser{
		{ID: 1, Username: "@a", FullName: huge},
		{ID: 2, Username: "@" + strings.Repeat("b", 4000), FullName: "Bob"},
	}

	out := RenderAllowed(rows)
	require.Len(t, out, 1)
	assert.LessOrEqual(t, utf8.RuneCountInString(out[0]), 4096)
	assert.Contains(t, out[0], "…")
	assert.Contains(t, out[0], "Bob")
}

func TestRenderSplitsManyRows(t *testing.T) {
	t.Parallel()
	rows := make([]stats.Row, 0, 300)
	for i := range 300 {
		rows = append(rows, stats.Row{Label: "@user_" + strings.Repeat("x", i%40), Count: int64(i)})
	}

	out := RenderStats(rows, nil)
	require.Greater(t, len(out), 2)
	for i, msg := range out {
		assert.LessOrEqual(t, len(msg), 4096)
		assert.True(t, strings.HasSuffix(msg, "</pre>"))
		assert.Equal(t, i == 0, strings.Contains(msg, "сьогодні"), "title only in the first part")
	}
}
