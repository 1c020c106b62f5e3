package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIDNoPrefix(t *testing.T) {
	for _, text := range []string{
		"",
		"hello world",
		"user 8a12f6cc-3b3c-47ff-a27e-5d0a9d2cb634",
		"usr without underscore usr-8a12f6cc",
	} {
		_, ok := ExtractID(text)
		assert.False(t, ok, "text %q should yield no id", text)
	}
}

func TestExtractIDWellFormed(t *testing.T) {
	id, ok := ExtractID("my id is usr_8a12f6cc-3b3c-47ff-a27e-5d0a9d2cb634 thanks")
	require.True(t, ok)
	assert.Equal(t, "usr_8a12f6cc-3b3c-47ff-a27e-5d0a9d2cb634", id)
}

func TestExtractIDLowercases(t *testing.T) {
	id, ok := ExtractID("usr_8A12F6CC-3B3C-47FF-A27E-5D0A9D2CB634")
	require.True(t, ok)
	assert.Equal(t, "usr_8a12f6cc-3b3c-47ff-a27e-5d0a9d2cb634", id)
}

func TestExtractIDMalformedBody(t *testing.T) {
	for _, text := range []string{
		"usr_",
		"usr_not-a-uuid-at-all-nope-nope-nope-nope!!",
		"usr_8a12f6cc",
		"usr_8a12f6cc-3b3c-47ff-a27e-5d0a9d2cb63",  // one short
		"usr_zzzzzzzz-3b3c-47ff-a27e-5d0a9d2cb634", // bad hex
	} {
		_, ok := ExtractID(text)
		assert.False(t, ok, "text %q should yield no id", text)
	}
}

func TestExtractIDLastOccurrenceWins(t *testing.T) {
	text := "old: usr_8a12f6cc-3b3c-47ff-a27e-5d0a9d2cb634 new: usr_0e4b1d1e-9f6a-4c0d-8d8a-111122223333"
	id, ok := ExtractID(text)
	require.True(t, ok)
	assert.Equal(t, "usr_0e4b1d1e-9f6a-4c0d-8d8a-111122223333", id)
}

func TestExtractIDLastOccurrenceMalformed(t *testing.T) {
	// the last prefix has a broken body, so nothing is returned even
	// though an earlier occurrence is valid
	text := "usr_8a12f6cc-3b3c-47ff-a27e-5d0a9d2cb634 then usr_broken"
	_, ok := ExtractID(text)
	assert.False(t, ok)
}

func TestExtractIDIdempotent(t *testing.T) {
	id, ok := ExtractID("usr_8a12f6cc-3b3c-47ff-a27e-5d0a9d2cb634")
	require.True(t, ok)

	again, ok := ExtractID(id)
	require.True(t, ok)
	assert.Equal(t, id, again)
}
