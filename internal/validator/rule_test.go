package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRule(t *testing.T) {
	tests := []struct {
		name     string
		rule     string
		matchers []string
		errMsg   string
	}{
		{
			name:     "single host",
			rule:     "Host(`example.com`)",
			matchers: []string{"Host"},
		},
		{
			name:     "host and path prefix",
			rule:     "Host(`api.example.com`) && PathPrefix(`/v1`)",
			matchers: []string{"Host", "PathPrefix"},
		},
		{
			name:     "grouped or with negation",
			rule:     "(Host(`a.example.com`) || Host(\"b.example.com\")) && !Method(`POST`)",
			matchers: []string{"Host", "Host", "Method"},
		},
		{
			name:     "bare argument",
			rule:     "Host(example.com)",
			matchers: []string{"Host"},
		},
		{
			name:     "header takes two arguments",
			rule:     "Header(`X-Env`, `prod`)",
			matchers: []string{"Header"},
		},
		{
			name:   "empty",
			rule:   "   ",
			errMsg: "is required",
		},
		{
			name:   "unknown matcher",
			rule:   "Hots(`example.com`)",
			errMsg: `unknown matcher "Hots"`,
		},
		{
			name:   "missing closing paren",
			rule:   "Host(`example.com`",
			errMsg: "unbalanced parentheses in Host",
		},
		{
			name:   "unbalanced group",
			rule:   "(Host(`example.com`)",
			errMsg: "unbalanced parentheses",
		},
		{
			name:   "unterminated quote",
			rule:   "Host(`example.com)",
			errMsg: "unbalanced quote in Host",
		},
		{
			name:   "dangling operator",
			rule:   "Host(`example.com`) &&",
			errMsg: "missing operand",
		},
		{
			name:   "header needs two arguments",
			rule:   "Header(`X-Env`)",
			errMsg: "Header requires 2 arguments",
		},
		{
			name:   "host takes one argument",
			rule:   "Host(`a.example.com`, `b.example.com`, `c.example.com`)",
			errMsg: "Host accepts 1 argument(s), got 3",
		},
		{
			name:   "method takes one argument",
			rule:   "Method(`GET`, `POST`)",
			errMsg: "Method accepts 1 argument(s), got 2",
		},
		{
			name:   "header takes at most two arguments",
			rule:   "Header(`X-Env`, `prod`, `extra`)",
			errMsg: "Header accepts 2 argument(s), got 3",
		},
		{
			name:   "empty argument",
			rule:   "Host(``)",
			errMsg: "empty argument in Host",
		},
		{
			name:   "trailing garbage",
			rule:   "Host(`example.com`) extra",
			errMsg: "unexpected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matchers, err := ParseRule(tt.rule)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.matchers, matchers)
		})
	}
}

func TestParseRuleReportsPosition(t *testing.T) {
	_, err := ParseRule("Host(`a`) && Nope(`b`)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position 14")
}
