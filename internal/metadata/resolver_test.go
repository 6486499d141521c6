package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGatewayURL(t *testing.T) {
	r := NewResolver(Options{GatewayHost: "ipfs.w3s.link"})
	defer r.Close()

	cases := []struct {
		uri  string
		want string
	}{
		{"ipfs://bafybeigdyr/0.json", "https://bafybeigdyr.ipfs.w3s.link/0.json"},
		{"ipfs://bafybeigdyr/images/car.png", "https://bafybeigdyr.ipfs.w3s.link/images/car.png"},
		{"ipfs://bafybeigdyr", "https://bafybeigdyr.ipfs.w3s.link/"},
		{"https://example.com/meta.json", "https://example.com/meta.json"},
		{"not-a-uri", "not-a-uri"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, r.GatewayURL(c.uri), "uri=%s", c.uri)
	}
}

func TestResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "Moove #3",
			"image": "ipfs://bafyimage/3.png",
			"attributes": [
				{"trait_type": "Vehicle", "value": "Scooter"},
				{"trait_type": "Color", "value": "Red"}
			]
		}`))
	}))
	defer srv.Close()

	r := NewResolver(Options{GatewayHost: "ipfs.w3s.link"})
	defer r.Close()

	meta := r.Resolve(context.Background(), srv.URL+"/meta.json")
	assert.Equal(t, "Moove #3", meta.Name)
	assert.Equal(t, "Scooter", meta.Vehicle)
	assert.Equal(t, "Scooter", meta.DisplayName())
	assert.Equal(t, "https://bafyimage.ipfs.w3s.link/3.png", meta.ImageURL)
}

func TestResolveDegradesToPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResolver(Options{PlaceholderImage: "/nft-placeholder.jpg"})
	defer r.Close()

	meta := r.Resolve(context.Background(), srv.URL+"/meta.json")
	assert.Equal(t, "/nft-placeholder.jpg", meta.ImageURL)
	assert.Equal(t, "Unknown NFT", meta.DisplayName())

	// 空URI同样降级
	meta = r.Resolve(context.Background(), "   ")
	assert.Equal(t, "/nft-placeholder.jpg", meta.ImageURL)
}

func TestResolveCaches(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{"name": "Moove #1", "image": "https://example.com/1.png"}`))
	}))
	defer srv.Close()

	r := NewResolver(Options{CacheTTL: time.Minute})
	defer r.Close()

	for i := 0; i < 3; i++ {
		meta := r.Resolve(context.Background(), srv.URL+"/meta.json")
		assert.Equal(t, "Moove #1", meta.Name)
	}
	assert.Equal(t, 1, hits, "命中缓存后不应重复请求网关")
}

func TestResolveMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	r := NewResolver(Options{PlaceholderImage: "/ph.jpg"})
	defer r.Close()

	meta := r.Resolve(context.Background(), srv.URL+"/meta.json")
	assert.True(t, strings.HasSuffix(meta.ImageURL, "/ph.jpg"))
}
