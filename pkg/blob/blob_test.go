package blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRemove(t *testing.T) {
	r := NewRegistry()

	h := r.Put("image/png", []byte{1, 2, 3})
	assert.True(t, IsHandle(h))

	img, ok := r.Get(h)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, []byte{1, 2, 3}, img.Data)

	r.Remove(h)
	_, ok = r.Get(h)
	assert.False(t, ok)
}

func TestDataURLRoundTrip(t *testing.T) {
	r := NewRegistry()
	h := r.Put("image/jpeg", []byte("fake-jpeg-bytes"))

	url, err := r.DataURL(h)
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,ZmFrZS1qcGVnLWJ5dGVz", url)

	img, err := ParseDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)
	assert.Equal(t, []byte("fake-jpeg-bytes"), img.Data)
}

func TestDataURLUnknownHandle(t *testing.T) {
	_, err := NewRegistry().DataURL("blob:nope")
	require.Error(t, err)
}

func TestParseDataURLRejectsGarbage(t *testing.T) {
	for _, bad := range []string{
		"http://example.com/x.png",
		"data:image/png",
		"data:image/png;hex,ff",
		"data:image/png;base64,!!!",
	} {
		_, err := ParseDataURL(bad)
		assert.Error(t, err, bad)
	}
}
