package customHttpClient

import (
	"net/http"

	"github.com/akolanti/GoIndexer/internal/config"
)

var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// PooledClient is shared by the embedding adapters so every request to the
// same host reuses connections instead of paying the handshake each time.
func PooledClient() *http.Client {
	return &http.Client{Transport: customTransport}
}
