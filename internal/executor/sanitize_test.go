package executor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "nil", input: nil, want: ""},
		{name: "plain string", input: "MacBook-Pro", want: "MacBook-Pro"},
		{name: "trims whitespace", input: "  udid-123  ", want: "udid-123"},
		{name: "backticks", input: "`reboot`", want: "reboot"},
		{name: "dollar", input: "$HOME/evil", want: "HOME/evil"},
		{name: "pipe chain", input: "a|b|c", want: "abc"},
		{name: "ampersand", input: "x && y", want: "x  y"},
		{name: "semicolon", input: "foo;rm -rf /", want: "foorm -rf /"},
		{name: "newlines", input: "one\ntwo\rthree", want: "onetwothree"},
		{name: "redirection", input: "out > file < in", want: "out  file  in"},
		{name: "backslash", input: `C:\path`, want: "C:path"},
		{name: "parens and braces", input: "(sub){grp}", want: "subgrp"},
		{name: "integer input", input: 42, want: "42"},
		{name: "order preserved", input: "a`b$c|d", want: "abcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			assert.Equal(t, tt.want, got)
			for _, c := range dangerousChars {
				assert.NotContains(t, got, string(c))
			}
		})
	}
}

func TestSanitizeAll(t *testing.T) {
	got := SanitizeAll("a;b", nil, " c ")
	assert.Equal(t, []string{"ab", "", "c"}, got)
}

func TestSanitizeKeepsSafeCharacters(t *testing.T) {
	safe := "abcXYZ019 ._-:/@=+,'\"~^%!?[]#*"
	assert.Equal(t, strings.TrimSpace(safe), Sanitize(safe))
}
