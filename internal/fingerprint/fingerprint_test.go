package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSHA256_KnownDigest(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	assert.Equal(t, want, SHA256{}.Sum([]byte("abc")))
}

func TestFields(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []string
		sameAs bool
	}{
		{"identical fields", []string{"0.0.1", "SUCCESS"}, []string{"0.0.1", "SUCCESS"}, true},
		{"different value", []string{"0.0.1", "SUCCESS"}, []string{"0.0.1", "FAILURE"}, false},
		{"separator prevents shifting", []string{"ab", "c"}, []string{"a", "bc"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Fields(SHA256{}, tt.a...)
			b := Fields(SHA256{}, tt.b...)
			assert.Len(t, a, 64)
			if tt.sameAs {
				assert.Equal(t, a, b)
			} else {
				assert.NotEqual(t, a, b)
			}
		})
	}
}

func TestLines_OrderMatters(t *testing.T) {
	a := Lines(SHA256{}, []string{"x", "y"})
	b := Lines(SHA256{}, []string{"y", "x"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, SHA256{}.Sum(nil), Lines(SHA256{}, nil))
}
