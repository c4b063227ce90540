package utils_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/bizanalyzer/pkg/utils"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "https://acme.example", want: "https://acme.example/"},
		{in: "HTTPS://ACME.Example/About/", want: "https://acme.example/About"},
		{in: "https://acme.example:443/about#team", want: "https://acme.example/about"},
		{in: "http://acme.example:80/", want: "http://acme.example/"},
		{in: "http://acme.example:8080/", want: "http://acme.example:8080/"},
		{in: "https://acme.example/a/../b/./c", want: "https://acme.example/b/c"},
		{in: "https://acme.example/?b=2&a=1&utm_source=x&fbclid=y", want: "https://acme.example/?a=1&b=2"},
		{in: "https://user:pw@acme.example/", want: "https://acme.example/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := utils.CanonicalURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalURL_Rejects(t *testing.T) {
	for _, in := range []string{"", "/relative", "mailto:a@acme.example", "ftp://acme.example/file", "acme.example"} {
		_, err := utils.CanonicalURL(in)
		assert.Error(t, err, in)
	}
}

func TestOrigin(t *testing.T) {
	u, err := url.Parse("HTTPS://Acme.Example:443/path")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example", utils.Origin(u))

	u, err = url.Parse("http://acme.example:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://acme.example:8080", utils.Origin(u))
}

func TestToAbsoluteURL(t *testing.T) {
	base, err := url.Parse("https://acme.example/blog/post")
	require.NoError(t, err)

	got, err := utils.ToAbsoluteURL(base, "../contact")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example/contact", got)

	got, err = utils.ToAbsoluteURL(base, "//cdn.example/x.js")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/x.js", got)
}

func TestHashURL(t *testing.T) {
	a := utils.HashURL("https://acme.example/")
	assert.Len(t, a, 64)
	assert.Equal(t, a, utils.HashURL("https://acme.example/"))
	assert.NotEqual(t, a, utils.HashURL("https://acme.example/about"))
}
