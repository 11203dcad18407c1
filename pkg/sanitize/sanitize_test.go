package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestForTerminal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "2021-01-01 00:00:00 005930 volume 1520", "2021-01-01 00:00:00 005930 volume 1520"},
		{"korean untouched", "2024-04-30 13:21:00 삼성전자 거래량 1520", "2024-04-30 13:21:00 삼성전자 거래량 1520"},
		{"tab becomes space", "a\tb", "a b"},
		{"carriage return", "a\rb", "a[CR]b"},
		{"bell", "a\x07b", "a[CTRL]b"},
		{"delete", "a\x7fb", "a[DEL]b"},
		{"csi colour", "\x1b[31mred\x1b[0m", "[ESC]red[ESC]"},
		{"bare escape at end", "x\x1b", "x[ESC]"},
		{"invalid utf8", "a\xffb", "a�b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForTerminal(tt.input))
		})
	}
}

func TestLine_StripsTerminator(t *testing.T) {
	assert.Equal(t, "garbage", Line("garbage\r\n", 0))
	assert.Equal(t, "garbage", Line("garbage\n", DefaultMaxDisplayLength))
}

func TestLine_Truncates(t *testing.T) {
	long := strings.Repeat("x", 300)
	got := Line(long, DefaultMaxDisplayLength)
	assert.Len(t, got, DefaultMaxDisplayLength)
	assert.True(t, strings.HasSuffix(got, "..."))

	assert.Equal(t, "ab", Line("abcdef", 2))
}

func TestLine_TruncatesOnRuneBoundary(t *testing.T) {
	// each Hangul syllable is three bytes
	s := strings.Repeat("삼", 10)
	for n := 1; n < len(s); n++ {
		got := Line(s, n)
		assert.True(t, utf8.ValidString(got), "maxLen %d produced invalid UTF-8", n)
		assert.LessOrEqual(t, len(got), n)
	}
}

func BenchmarkForTerminal_Clean(b *testing.B) {
	s := "2021-01-01 00:00:00 005930 81000 81500 81200 80900"
	for i := 0; i < b.N; i++ {
		ForTerminal(s)
	}
}
