package tokenstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDecoder maps each id to a fixed, possibly multi-byte UTF-8 rune,
// letting tests control exactly when a boundary completes without
// depending on internal/tokenizer.
type fakeDecoder struct {
	pieces  map[int32]string
	special map[string]int32
}

func (f fakeDecoder) DecodeBytes(ids []int32) []byte {
	var out []byte
	for _, id := range ids {
		out = append(out, f.pieces[id]...)
	}
	return out
}

func (f fakeDecoder) TokenToID(token string) (int32, bool) {
	id, ok := f.special[token]
	return id, ok
}

func TestPushEmitsWholeAsciiTokens(t *testing.T) {
	dec := fakeDecoder{pieces: map[int32]string{1: "hel", 2: "lo"}}
	s := New(dec)

	frag, ok := s.Push(1)
	require.True(t, ok)
	assert.Equal(t, "hel", frag)

	frag, ok = s.Push(2)
	require.True(t, ok)
	assert.Equal(t, "lo", frag)
}

func TestPushBuffersPartialMultibyteRune(t *testing.T) {
	full := "世" // 3-byte UTF-8 rune
	dec := fakeDecoder{pieces: map[int32]string{
		10: full[:1],
		11: full[1:2],
		12: full[2:3],
	}}
	s := New(dec)

	_, ok := s.Push(10)
	assert.False(t, ok)
	_, ok = s.Push(11)
	assert.False(t, ok)
	frag, ok := s.Push(12)
	require.True(t, ok)
	assert.Equal(t, full, frag)
}

func TestFlushReturnsRemainder(t *testing.T) {
	full := "世"
	dec := fakeDecoder{pieces: map[int32]string{10: full[:1], 11: full[1:]}}
	s := New(dec)
	_, _ = s.Push(10)
	frag, ok := s.Flush()
	require.True(t, ok)
	assert.Equal(t, full[:1], frag)
}

func TestClearResetsBuffer(t *testing.T) {
	dec := fakeDecoder{pieces: map[int32]string{1: "a"}}
	s := New(dec)
	_, _ = s.Push(1)
	s.Clear()
	_, ok := s.Flush()
	assert.False(t, ok)
}

func TestLookupSpecialToken(t *testing.T) {
	dec := fakeDecoder{special: map[string]int32{"<eos>": 99}}
	s := New(dec)
	id, ok := s.Lookup("<eos>")
	require.True(t, ok)
	assert.Equal(t, int32(99), id)
}

func TestConcatenationMatchesBatchDecode(t *testing.T) {
	dec := fakeDecoder{pieces: map[int32]string{1: "ab", 2: "cd", 3: "ef"}}
	s := New(dec)
	var got string
	for _, id := range []int32{1, 2, 3} {
		if frag, ok := s.Push(id); ok {
			got += frag
		}
	}
	if frag, ok := s.Flush(); ok {
		got += frag
	}
	assert.Equal(t, string(dec.DecodeBytes([]int32{1, 2, 3})), got)
}
