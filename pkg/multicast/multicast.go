// Package multicast contains read-only UDP connections able to receive multicast streams.
package multicast

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/ipv4"
)

// Conn is a read-only UDP connection.
type Conn interface {
	net.PacketConn
	SetReadBuffer(int) error
}

// conn is a multicast connection that
// joins a group on one or more interfaces.
type conn struct {
	addr   *net.UDPAddr
	conn   *net.UDPConn
	connIP *ipv4.PacketConn

	// whether the destination address of packets is available.
	filterDst bool
}

// Listen opens a connection that receives packets sent to address.
// When address is a multicast group, the group is joined on intf,
// or on all multicast-capable interfaces when intf is nil.
func Listen(
	address string,
	intf *net.Interface,
	listenPacket func(network, address string) (net.PacketConn, error),
) (Conn, error) {
	if listenPacket == nil {
		listenPacket = net.ListenPacket
	}

	addr, err := net.ResolveUDPAddr("udp4", address)
	if err != nil {
		return nil, err
	}

	if !addr.IP.IsMulticast() {
		tmp, err := listenPacket("udp4", address)
		if err != nil {
			return nil, err
		}
		return tmp.(*net.UDPConn), nil
	}

	var intfs []*net.Interface

	if intf != nil {
		intfs = []*net.Interface{intf}
	} else {
		all, err := net.Interfaces()
		if err != nil {
			return nil, err
		}

		for _, intf := range all {
			if (intf.Flags & net.FlagMulticast) != 0 {
				cintf := intf
				intfs = append(intfs, &cintf)
			}
		}
	}

	return newConn(addr, intfs, listenPacket)
}

func newConn(
	addr *net.UDPAddr,
	intfs []*net.Interface,
	listenPacket func(network, address string) (net.PacketConn, error),
) (Conn, error) {
	tmp, err := listenPacket("udp4", ":"+strconv.FormatInt(int64(addr.Port), 10))
	if err != nil {
		return nil, err
	}
	udpConn := tmp.(*net.UDPConn)

	connIP := ipv4.NewPacketConn(udpConn)

	joined := 0

	for _, intf := range intfs {
		err = connIP.JoinGroup(intf, &net.UDPAddr{IP: addr.IP})
		if err == nil {
			joined++
		}
	}

	if joined == 0 {
		udpConn.Close() //nolint:errcheck
		return nil, fmt.Errorf("unable to join multicast group %v on any interface", addr.IP)
	}

	// the destination address is not available on some platforms.
	filterDst := connIP.SetControlMessage(ipv4.FlagDst, true) == nil

	return &conn{
		addr:      addr,
		conn:      udpConn,
		connIP:    connIP,
		filterDst: filterDst,
	}, nil
}

// Close implements Conn.
func (c *conn) Close() error {
	return c.conn.Close()
}

// SetReadBuffer implements Conn.
func (c *conn) SetReadBuffer(bytes int) error {
	return c.conn.SetReadBuffer(bytes)
}

// LocalAddr implements Conn.
func (c *conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// SetDeadline implements Conn.
func (c *conn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline implements Conn.
func (c *conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline implements Conn.
func (c *conn) SetWriteDeadline(_ time.Time) error {
	return fmt.Errorf("connection is read-only")
}

// WriteTo implements Conn.
func (c *conn) WriteTo(_ []byte, _ net.Addr) (int, error) {
	return 0, fmt.Errorf("connection is read-only")
}

// ReadFrom implements Conn.
func (c *conn) ReadFrom(b []byte) (int, net.Addr, error) {
	for {
		n, cm, src, err := c.connIP.ReadFrom(b)
		if err != nil {
			return 0, nil, err
		}

		// the socket receives packets addressed to groups
		// joined by other sockets bound to the same port.
		if c.filterDst && cm != nil && cm.Dst != nil && !cm.Dst.Equal(c.addr.IP) {
			continue
		}

		return n, src, nil
	}
}
