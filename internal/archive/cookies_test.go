package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCookies(t *testing.T) {
	t.Run("empty input means no credentials", func(t *testing.T) {
		for _, raw := range []string{"", "   ", "\n"} {
			cookies, err := ParseCookies(raw)
			require.NoError(t, err)
			assert.Nil(t, cookies)
		}
	})

	t.Run("browser export shape", func(t *testing.T) {
		raw := `[
			{"name":"auth_token","value":"abc","domain":".x.com","path":"/","secure":true,"httpOnly":true,"sameSite":"Lax"},
			{"name":"ct0","value":"def","domain":".x.com"}
		]`
		cookies, err := ParseCookies(raw)
		require.NoError(t, err)
		require.Len(t, cookies, 2)

		assert.Equal(t, "auth_token", cookies[0].Name)
		assert.Equal(t, ".x.com", cookies[0].Domain)
		assert.True(t, cookies[0].Secure)
		assert.True(t, cookies[0].HTTPOnly)
		assert.Equal(t, "Lax", cookies[0].SameSite)

		assert.Equal(t, "/", cookies[1].Path, "missing path defaults to /")
	})

	t.Run("nameless entries dropped", func(t *testing.T) {
		cookies, err := ParseCookies(`[{"value":"orphan"},{"name":"kept","value":"v"}]`)
		require.NoError(t, err)
		require.Len(t, cookies, 1)
		assert.Equal(t, "kept", cookies[0].Name)
	})

	t.Run("malformed json is an error", func(t *testing.T) {
		_, err := ParseCookies(`{"name":"not-a-list"`)
		assert.Error(t, err)
	})
}
