package xray

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildVlessWSLink(t *testing.T) {
	p := LinkParams{Host: "vpn.example.com", Port: 8081, Path: "/ws8081", Security: "none"}
	link := BuildVlessWSLink("3f2c9d1e-9f1b-4f7d-8c4e-1a2b3c4d5e6f", p, "u1-o2-1@bot")

	assert.Equal(t,
		"vless://3f2c9d1e-9f1b-4f7d-8c4e-1a2b3c4d5e6f@vpn.example.com:8081"+
			"?type=ws&path=/ws8081&encryption=none&security=none#u1-o2-1%40bot",
		link)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "vless", u.Scheme)
	assert.Equal(t, "ws", u.Query().Get("type"))
	assert.Equal(t, "/ws8081", u.Query().Get("path"))
	assert.Equal(t, "none", u.Query().Get("encryption"))
}

func TestBuildVlessWSLink_AddsLeadingSlash(t *testing.T) {
	p := LinkParams{Host: "h", Port: 443, Path: "ws", Security: "tls"}
	link := BuildVlessWSLink("id", p, "x")
	assert.Contains(t, link, "path=/ws")
	assert.Contains(t, link, "security=tls")
}

func TestBuildVlessWSLink_EscapesFragment(t *testing.T) {
	p := LinkParams{Host: "h", Port: 1, Path: "/w", Security: "none"}
	link := BuildVlessWSLink("id", p, "имя с пробелом#1")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "имя с пробелом#1", u.Fragment)
	// пробел не должен превращаться в "+": это не query-строка
	assert.NotContains(t, link, "+")
}
