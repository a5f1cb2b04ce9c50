package rest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corexis/netkit"
)

type fakeTransport struct {
	statusCode int
	body       []byte
}

func (f *fakeTransport) RoundTrip(ctx context.Context, req *netkit.WireRequest) (*netkit.RawResponse, error) {
	return &netkit.RawResponse{StatusCode: f.statusCode, Headers: map[string]string{}, Body: f.body, URL: req.URL}, nil
}

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestGetDecodesResponse(t *testing.T) {
	engine, err := netkit.NewEngine(netkit.WithTransport(&fakeTransport{statusCode: 200, body: []byte(`{"id":1,"name":"A"}`)}))
	require.NoError(t, err)

	c := New(engine, "https://api.example.com")
	resp, err := Get[user](context.Background(), c, "/users/1")
	require.NoError(t, err)
	require.True(t, resp.IsSuccess())
	require.Equal(t, user{ID: 1, Name: "A"}, resp.Payload)
}

func TestPostEncodesBodyAndDecodesResponse(t *testing.T) {
	engine, err := netkit.NewEngine(netkit.WithTransport(&fakeTransport{statusCode: 201, body: []byte(`{"id":42,"name":"A"}`)}))
	require.NoError(t, err)

	c := New(engine, "https://api.example.com")
	resp, err := Post[user](context.Background(), c, "/users", user{Name: "A"})
	require.NoError(t, err)
	require.Equal(t, 42, resp.Payload.ID)
}
