package natsort

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrings(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"numbers by value", []string{"t2", "t10", "t1"}, []string{"t1", "t2", "t10"}},
		{"seat files", []string{"sent-weat10", "sent-weat3b", "sent-weat3", "sent-angry_black_woman_stereotype"},
			[]string{"sent-angry_black_woman_stereotype", "sent-weat3", "sent-weat3b", "sent-weat10"}},
		{"prefix first", []string{"weat1b", "weat1"}, []string{"weat1", "weat1b"}},
		{"no digits", []string{"b", "a"}, []string{"a", "b"}},
		{"huge numbers", []string{"t100000000000000000000", "t99999999999999999999"},
			[]string{"t99999999999999999999", "t100000000000000000000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := append([]string(nil), tt.in...)
			Strings(got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStrings_StableForEqualKeys(t *testing.T) {
	got := []string{"t01", "t1", "t001"}
	Strings(got)
	assert.Equal(t, []string{"t01", "t1", "t001"}, got)
}

func TestKey(t *testing.T) {
	assert.Equal(t, []string{"sent-weat", "6", "b"}, key("sent-weat6b"))
	assert.Equal(t, []string{"", "12", ""}, key("12"))
	assert.Equal(t, []string{"abc"}, key("abc"))
}
