package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corexis/netkit"
)

type sample struct {
	Name string `json:"name"`
}

func TestCompressingRoundTrip(t *testing.T) {
	for _, algo := range []Algorithm{Gzip, Brotli, Snappy} {
		t.Run(algo.String(), func(t *testing.T) {
			c := NewCompressing(netkit.JSONCodec{}, algo)

			data, err := c.Encode(sample{Name: "A"})
			require.NoError(t, err)

			var out sample
			require.NoError(t, c.Decode(data, &out))
			require.Equal(t, "A", out.Name)
		})
	}
}

func TestCompressingContentType(t *testing.T) {
	c := NewCompressing(netkit.JSONCodec{}, Brotli)
	require.Equal(t, "application/json", c.ContentType())
}
