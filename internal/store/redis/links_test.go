package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "deferlink:link:abc", LinkKey("abc"))
	assert.Equal(t, "deferlink:link:abc:counters", CountersKey("abc"))
	assert.Equal(t, "deferlink:links:all", AllLinksKey())

	id, err := ExtractLinkID(LinkKey("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	_, err = ExtractLinkID("deferlink:link:")
	assert.Error(t, err)
	_, err = ExtractLinkID("other:link:abc")
	assert.Error(t, err)
}

func TestDecodeLink(t *testing.T) {
	data := []byte(`{"id":"abc","originalUrl":"https://x.com/p","appScheme":"myapp",` +
		`"customData":{"k":1},"clicks":1,"installs":0,"createdAt":"2024-01-02T03:04:05Z"}`)

	t.Run("counters hash wins", func(t *testing.T) {
		link, err := decodeLink(data, map[string]string{"clicks": "7", "installs": "3"})
		require.NoError(t, err)
		assert.Equal(t, "abc", link.ID)
		assert.Equal(t, int64(7), link.Clicks)
		assert.Equal(t, int64(3), link.Installs)
		assert.JSONEq(t, `{"k":1}`, string(link.CustomData))
	})

	t.Run("missing hash keeps json counters", func(t *testing.T) {
		link, err := decodeLink(data, map[string]string{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), link.Clicks)
		assert.Equal(t, int64(0), link.Installs)
	})

	t.Run("corrupt counter", func(t *testing.T) {
		_, err := decodeLink(data, map[string]string{"clicks": "many"})
		assert.Error(t, err)
	})

	t.Run("corrupt json", func(t *testing.T) {
		_, err := decodeLink([]byte("{"), nil)
		assert.Error(t, err)
	})
}
