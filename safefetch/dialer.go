package safefetch

import (
	"context"
	"net"
)

// pinnedDialer dials exactly the IP chosen during DNS pinning,
// regardless of what address net/http's transport tries to resolve
// again internally — it never gets the chance to, since DialContext
// bypasses Go's resolver entirely for this connection.
type pinnedDialer struct {
	ip   net.IP
	base net.Dialer
}

func (d *pinnedDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	return d.base.DialContext(ctx, network, net.JoinHostPort(d.ip.String(), port))
}
