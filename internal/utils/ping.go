package utils

import (
	"fmt"
	"net"
	"net/url"
	"time"
)

// schemePorts supplies the dial port when the Authorizer URL omits one.
var schemePorts = map[string]string{
	"https": "443",
	"http":  "80",
}

// PingAuthorizer dials the Authorizer's TCP endpoint to confirm the
// service is reachable before the client singleton is initialized. It
// never speaks HTTP; reachability is all the startup path needs.
func PingAuthorizer(authzURL string, timeout time.Duration) error {
	u, err := url.Parse(authzURL)
	if err != nil {
		return fmt.Errorf("invalid authorizer URL %q: %w", authzURL, err)
	}

	port := u.Port()
	if port == "" {
		var ok bool
		if port, ok = schemePorts[u.Scheme]; !ok {
			port = "80"
		}
	}
	address := net.JoinHostPort(u.Hostname(), port)

	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return fmt.Errorf("authorizer unreachable at %s: %w", address, err)
	}
	return conn.Close()
}
