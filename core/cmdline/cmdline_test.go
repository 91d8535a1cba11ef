package cmdline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields(t *testing.T) {
	cases := map[string]struct {
		line string
		want []string
	}{
		"single":       {line: "ls", want: []string{"ls"}},
		"args":         {line: "ls -l /tmp", want: []string{"ls", "-l", "/tmp"}},
		"extra spaces": {line: "  ls   -l  ", want: []string{"ls", "-l"}},
		"tabs":         {line: "ls\t-l", want: []string{"ls", "-l"}},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, Fields(tc.line))
		})
	}
}

func TestFieldsEmpty(t *testing.T) {
	assert.Empty(t, Fields(""))
	assert.Empty(t, Fields("   \t "))
}

func TestExpandPID(t *testing.T) {
	cases := map[string]struct {
		token string
		want  string
	}{
		"no expansion":     {token: "echo", want: "echo"},
		"whole token":      {token: "$$", want: "4200"},
		"embedded":         {token: "file$$.txt", want: "file4200.txt"},
		"multiple":         {token: "$$x$$", want: "4200x4200"},
		"adjacent pairs":   {token: "$$$$", want: "42004200"},
		"trailing dollar":  {token: "cost$", want: "cost$"},
		"lone dollar":      {token: "$", want: "$"},
		"three dollars":    {token: "$$$", want: "4200$"},
		"dollar then word": {token: "$HOME", want: "$HOME"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, ExpandPID(tc.token, 4200))
		})
	}
}

func TestExpandPIDUsesGivenPID(t *testing.T) {
	for _, pid := range []int{1, 99, 32768} {
		assert.Equal(t, fmt.Sprintf("a%da", pid), ExpandPID("a$$a", pid))
	}
}

func TestParse(t *testing.T) {
	cases := map[string]struct {
		tokens []string
		want   Command
	}{
		"plain": {
			tokens: []string{"ls", "-l"},
			want:   Command{Argv: []string{"ls", "-l"}},
		},
		"input redirect": {
			tokens: []string{"wc", "<", "data.txt"},
			want:   Command{Argv: []string{"wc"}, InputFile: "data.txt"},
		},
		"output redirect": {
			tokens: []string{"ls", ">", "out.txt"},
			want:   Command{Argv: []string{"ls"}, OutputFile: "out.txt"},
		},
		"both redirects": {
			tokens: []string{"sort", "<", "in.txt", ">", "out.txt"},
			want:   Command{Argv: []string{"sort"}, InputFile: "in.txt", OutputFile: "out.txt"},
		},
		"both redirects reversed": {
			tokens: []string{"sort", ">", "out.txt", "<", "in.txt"},
			want:   Command{Argv: []string{"sort"}, InputFile: "in.txt", OutputFile: "out.txt"},
		},
		"background": {
			tokens: []string{"sleep", "30", "&"},
			want:   Command{Argv: []string{"sleep", "30"}, Background: true},
		},
		"background with redirects": {
			tokens: []string{"ls", "-l", ">", "out.txt", "&"},
			want:   Command{Argv: []string{"ls", "-l"}, OutputFile: "out.txt", Background: true},
		},
		"ampersand mid-line is literal": {
			tokens: []string{"echo", "&", "b"},
			want:   Command{Argv: []string{"echo", "&", "b"}},
		},
		"ampersand before redirect is literal": {
			tokens: []string{"echo", "&", ">", "out.txt"},
			want:   Command{Argv: []string{"echo", "&"}, OutputFile: "out.txt"},
		},
		"arguments after redirect are dropped": {
			tokens: []string{"echo", "a", "<", "in.txt", "b"},
			want:   Command{Argv: []string{"echo", "a"}, InputFile: "in.txt"},
		},
		"repeated redirect keeps the last path": {
			tokens: []string{"ls", ">", "a.txt", ">", "b.txt"},
			want:   Command{Argv: []string{"ls"}, OutputFile: "b.txt"},
		},
		"operator first": {
			tokens: []string{">", "out.txt", "ls"},
			want:   Command{Argv: nil, OutputFile: "out.txt"},
		},
		"lone ampersand": {
			tokens: []string{"&"},
			want:   Command{Argv: nil, Background: true},
		},
		"empty": {
			tokens: nil,
			want:   Command{Argv: nil},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			got, err := Parse(tc.tokens)
			require.NoError(t, err)
			assert.Equal(t, tc.want.Argv, got.Argv)
			assert.Equal(t, tc.want.InputFile, got.InputFile)
			assert.Equal(t, tc.want.OutputFile, got.OutputFile)
			assert.Equal(t, tc.want.Background, got.Background)
		})
	}
}

func TestParseMissingPath(t *testing.T) {
	for _, tokens := range [][]string{
		{"wc", "<"},
		{"ls", ">"},
		{"sort", "<", "in.txt", ">"},
	} {
		_, err := Parse(tokens)
		assert.Error(t, err, "tokens: %v", tokens)
	}
}

func TestParseDoesNotAliasInput(t *testing.T) {
	tokens := []string{"echo", "hi"}
	got, err := Parse(tokens)
	require.NoError(t, err)

	tokens[1] = "changed"
	assert.Equal(t, []string{"echo", "hi"}, got.Argv)
}
