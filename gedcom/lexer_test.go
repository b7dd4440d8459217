package gedcom

import (
	"testing"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type tok struct {
	Type  string
	Value string
}

func lexAll(t *testing.T, input string) []tok {
	t.Helper()

	def := newLineLexer()
	names := make(map[lexer.TokenType]string, len(def.Symbols()))

	for name, typ := range def.Symbols() {
		names[typ] = name
	}

	lex, err := def.LexString("test.ged", input)
	require.NoError(t, err)

	var out []tok

	for {
		tk, err := lex.Next()
		require.NoError(t, err)

		if tk.EOF() {
			return out
		}

		out = append(out, tok{Type: names[tk.Type], Value: tk.Value})
	}
}

func TestLexer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []tok
	}{
		{
			name:  "record with pointer",
			input: "0 @I1@ INDI\n",
			want: []tok{
				{"Level", "0"}, {"Pointer", "@I1@"}, {"Tag", "INDI"}, {"EOL", "\n"},
			},
		},
		{
			name:  "value keeps inner and trailing spaces",
			input: "1 NAME John  /Smith/ ",
			want: []tok{
				{"Level", "1"}, {"Tag", "NAME"}, {"Value", "John  /Smith/ "},
			},
		},
		{
			name:  "crlf and bare cr line ends",
			input: "0 HEAD\r\n1 CHAR UTF-8\r0 TRLR",
			want: []tok{
				{"Level", "0"}, {"Tag", "HEAD"}, {"EOL", "\r\n"},
				{"Level", "1"}, {"Tag", "CHAR"}, {"Value", "UTF-8"}, {"EOL", "\r"},
				{"Level", "0"}, {"Tag", "TRLR"},
			},
		},
		{
			name:  "byte order mark is skipped",
			input: "\uFEFF0 HEAD",
			want:  []tok{{"Level", "0"}, {"Tag", "HEAD"}},
		},
		{
			name:  "blank and indented lines",
			input: "\n   \n  1 SEX M\n",
			want: []tok{
				{"EOL", "\n"}, {"EOL", "\n"},
				{"Level", "1"}, {"Tag", "SEX"}, {"Value", "M"}, {"EOL", "\n"},
			},
		},
		{
			name:  "empty value after delimiter",
			input: "1 BIRT \n",
			want:  []tok{{"Level", "1"}, {"Tag", "BIRT"}, {"Value", ""}, {"EOL", "\n"}},
		},
		{
			name:  "user defined tag",
			input: "1 _UID abc",
			want:  []tok{{"Level", "1"}, {"Tag", "_UID"}, {"Value", "abc"}},
		},
		{
			name:  "line without level",
			input: "NAME John\n",
			want:  []tok{{"Invalid", "NAME John"}, {"EOL", "\n"}},
		},
		{
			name:  "level glued to tag",
			input: "1NAME John",
			want:  []tok{{"Level", "1"}, {"Invalid", "NAME John"}},
		},
		{
			name:  "unterminated pointer",
			input: "0 @I1 INDI",
			want:  []tok{{"Level", "0"}, {"Invalid", "@I1 INDI"}},
		},
		{
			name:  "tag followed by junk",
			input: "1 NAME\tJohn",
			want:  []tok{{"Level", "1"}, {"Tag", "NAME"}, {"Invalid", "\tJohn"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := lexAll(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLexerPositions(t *testing.T) {
	t.Parallel()

	lex, err := newLineLexer().LexString("f.ged", "0 HEAD\r\n1 CHAR UTF-8\n")
	require.NoError(t, err)

	var tags []lexer.Position

	for {
		tk, err := lex.Next()
		require.NoError(t, err)

		if tk.EOF() {
			break
		}

		if tk.Type == tTag {
			tags = append(tags, tk.Pos)
		}
	}

	want := []lexer.Position{
		{Filename: "f.ged", Offset: 2, Line: 1, Column: 3},
		{Filename: "f.ged", Offset: 10, Line: 2, Column: 3},
	}
	if diff := cmp.Diff(want, tags); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
}
