// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the shared client for outbound calls. Widget API traffic is
// small JSON bodies; anything slower than this is treated as degraded.
var HTTPClient = &http.Client{
	Timeout: 15 * time.Second,
}
