package tenants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchTermEscaping(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"acme", "acme"},
		{"acme_corp", `acme\_corp`},
		{"100%", `100\%`},
		{`back\slash`, `back\\slash`},
		{"%_", `\%\_`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, likeEscaper.Replace(tc.in), "input %q", tc.in)
	}
}
