// Package transport implements the dual TCP/UDP endpoint: a
// length-prefixed reliable stream and a one-packet-per-datagram
// unreliable channel sharing the same port number (§4.13).
package transport

import (
	"bufio"
	"encoding/binary"
	"io"
	"log"
	"net"
	"strconv"

	"arena-server/internal/wire"
)

// Handle identifies a reliable connection to the dispatcher; it is kept
// opaque (net.Conn) so the server core never parses addresses itself.
type Handle = net.Conn

// Dispatcher receives decoded packets and connection lifecycle events
// from the transport. The server core implements this.
type Dispatcher interface {
	OnReliablePacket(conn Handle, p wire.Packet)
	OnUnreliablePacket(addr net.Addr, p wire.Packet)
	OnDisconnect(conn Handle)
}

// Endpoint owns the TCP listener and UDP socket for one port.
type Endpoint struct {
	port       int
	dispatcher Dispatcher
	logger     *log.Logger

	tcpLn  net.Listener
	udpConn *net.UDPConn
}

// New constructs an Endpoint bound to port (not yet listening).
func New(port int, dispatcher Dispatcher, logger *log.Logger) *Endpoint {
	return &Endpoint{port: port, dispatcher: dispatcher, logger: logger}
}

// Start opens the TCP listener and UDP socket and begins accepting.
func (e *Endpoint) Start() error {
	tcpLn, err := net.Listen("tcp", portAddr(e.port))
	if err != nil {
		return err
	}
	e.tcpLn = tcpLn

	udpAddr, err := net.ResolveUDPAddr("udp", portAddr(e.port))
	if err != nil {
		_ = tcpLn.Close()
		return err
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		_ = tcpLn.Close()
		return err
	}
	e.udpConn = udpConn

	go e.acceptLoop()
	go e.udpLoop()
	return nil
}

func portAddr(port int) string {
	return net.JoinHostPort("", strconv.Itoa(port))
}

// Stop closes both sockets, which unblocks acceptLoop/udpLoop.
func (e *Endpoint) Stop() {
	if e.tcpLn != nil {
		_ = e.tcpLn.Close()
	}
	if e.udpConn != nil {
		_ = e.udpConn.Close()
	}
}

func (e *Endpoint) acceptLoop() {
	for {
		conn, err := e.tcpLn.Accept()
		if err != nil {
			return
		}
		go e.reliableLoop(conn)
	}
}

// reliableLoop reads length-prefixed frames from one connection until it
// errors or closes, decoding each into a wire.Packet and handing it to
// the dispatcher. On exit, the dispatcher is notified of the disconnect.
func (e *Endpoint) reliableLoop(conn net.Conn) {
	defer func() {
		e.dispatcher.OnDisconnect(conn)
		_ = conn.Close()
	}()

	r := bufio.NewReaderSize(conn, wire.PacketSize+2)
	var lenBuf [2]byte
	for {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return
		}
		frameLen := int(binary.BigEndian.Uint16(lenBuf[:]))
		if frameLen < wire.PacketSize {
			if e.logger != nil {
				e.logger.Printf("transport: short frame (%d bytes) from %s, dropping connection", frameLen, conn.RemoteAddr())
			}
			return
		}
		buf := make([]byte, frameLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return
		}
		p, err := wire.Deserialize(buf)
		if err != nil {
			if e.logger != nil {
				e.logger.Printf("transport: malformed reliable packet from %s: %v", conn.RemoteAddr(), err)
			}
			continue
		}
		e.dispatcher.OnReliablePacket(conn, p)
	}
}

// SendReliable writes p to conn, length-prefixed.
func SendReliable(conn net.Conn, p wire.Packet) error {
	payload := wire.Serialize(p)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

func (e *Endpoint) udpLoop() {
	buf := make([]byte, wire.PacketSize*2)
	for {
		n, addr, err := e.udpConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if n < wire.PacketSize {
			continue // packets below PACKET_SIZE readable bytes are dropped
		}
		p, err := wire.Deserialize(buf[:n])
		if err != nil {
			if e.logger != nil {
				e.logger.Printf("transport: malformed unreliable packet from %s: %v", addr, err)
			}
			continue
		}
		e.dispatcher.OnUnreliablePacket(addr, p)
	}
}

// SendUnreliable writes p as a single datagram to addr.
func (e *Endpoint) SendUnreliable(addr net.Addr, p wire.Packet) error {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return errNotUDPAddr
	}
	_, err := e.udpConn.WriteToUDP(wire.Serialize(p), udpAddr)
	return err
}

var errNotUDPAddr = netAddrError("transport: address is not a *net.UDPAddr")

type netAddrError string

func (e netAddrError) Error() string { return string(e) }
