package rtsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDmapStringRoundTrip(t *testing.T) {
	var e DmapEncoder
	e.EncodeString(DmapItemName, "Test Track")

	items, err := DecodeDmap(e.Bytes())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, DmapItemName, items[0].Tag)
	assert.Equal(t, DmapKindString, items[0].Value.Kind)
	assert.Equal(t, "Test Track", items[0].Value.String)
}

func TestDmapIntRoundTrip(t *testing.T) {
	var e DmapEncoder
	e.EncodeInt(DmapSongYear, 2024)
	e.EncodeInt(DmapSongTrackNum, 7)

	items, err := DecodeDmap(e.Bytes())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2024), items[0].Value.Int)
	assert.Equal(t, int64(7), items[1].Value.Int)
}

func TestDmapContainerRoundTrip(t *testing.T) {
	var e DmapEncoder
	e.EncodeContainer(DmapListing, func(inner *DmapEncoder) {
		inner.EncodeContainer(DmapListingItem, func(item *DmapEncoder) {
			item.EncodeString(DmapItemName, "Song A")
		})
		inner.EncodeContainer(DmapListingItem, func(item *DmapEncoder) {
			item.EncodeString(DmapItemName, "Song B")
		})
	})

	items, err := DecodeDmap(e.Bytes())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, DmapListing, items[0].Tag)
	require.Len(t, items[0].Value.Container, 2)
	assert.Equal(t, "Song A", items[0].Value.Container[0].Value.Container[0].Value.String)
}

func TestDmapDecodeTruncatedFails(t *testing.T) {
	_, err := DecodeDmap([]byte{'m', 'i', 'n', 'm'})
	assert.Error(t, err)
}

func TestDmapDecodeClaimsTooMuchFails(t *testing.T) {
	buf := []byte{'m', 'i', 'n', 'm', 0, 0, 0, 100, 'h', 'i'}
	_, err := DecodeDmap(buf)
	assert.Error(t, err)
}
