// Package portalloc finds a free TCP port on the local host.
package portalloc

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/oar-cd/skiff/domain"
)

const (
	DefaultStart    = 8000
	DefaultAttempts = 100
)

// Find returns the first port in [start, start+attempts) that can be bound on all
// interfaces. Each candidate listener is closed before Find returns, so the port is
// only known to have been free when checked.
func Find(start, attempts int) (int, error) {
	if attempts < 1 {
		return 0, fmt.Errorf("invalid attempt count %d: must be at least 1", attempts)
	}
	if start < 1 || start > 65535 {
		return 0, fmt.Errorf("invalid start port %d: must be 1-65535", start)
	}

	end := min(start+attempts, 65536)
	for port := start; port < end; port++ {
		if canBind(port) {
			slog.Debug("Found free port", "layer", "portalloc", "operation", "find", "port", port)
			return port, nil
		}
	}

	return 0, fmt.Errorf("%w in range %d-%d", domain.ErrNoPortAvailable, start, end-1)
}

func canBind(port int) bool {
	l, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}
