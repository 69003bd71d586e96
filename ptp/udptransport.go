package ptp

import (
	"net"
	"strconv"
)

// EventPort and GeneralPort are the IEEE 1588 well-known UDP ports:
// timing-critical Sync/Delay_Req traffic goes out the event port,
// everything else (Announce, Follow_Up, Delay_Resp) the general port.
const (
	EventPort   = 319
	GeneralPort = 320
)

// UDPTransport implements Transport over a pair of UDP sockets bound
// to the event and general ports.
type UDPTransport struct {
	eventConn   *net.UDPConn
	generalConn *net.UDPConn
}

// NewUDPTransport binds the event and general ports on bindIP (an
// empty string binds all interfaces).
func NewUDPTransport(bindIP string) (*UDPTransport, error) {
	ip := net.ParseIP(bindIP)
	if ip == nil {
		ip = net.IPv4zero
	}

	eventConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: EventPort})
	if err != nil {
		return nil, err
	}
	generalConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: GeneralPort})
	if err != nil {
		eventConn.Close()
		return nil, err
	}
	return &UDPTransport{eventConn: eventConn, generalConn: generalConn}, nil
}

// SendEvent sends payload to addr's event port.
func (t *UDPTransport) SendEvent(addr string, payload []byte) error {
	return t.sendTo(t.eventConn, addr, EventPort, payload)
}

// SendGeneral sends payload to addr's general port.
func (t *UDPTransport) SendGeneral(addr string, payload []byte) error {
	return t.sendTo(t.generalConn, addr, GeneralPort, payload)
}

func (t *UDPTransport) sendTo(conn *net.UDPConn, addr string, port int, payload []byte) error {
	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	_, err = conn.WriteToUDP(payload, raddr)
	return err
}

// ReadEvent blocks for the next event-port datagram, returning its
// payload and the sender's address (host only, port stripped).
func (t *UDPTransport) ReadEvent(buf []byte) (int, string, error) {
	return readFrom(t.eventConn, buf)
}

// ReadGeneral blocks for the next general-port datagram.
func (t *UDPTransport) ReadGeneral(buf []byte) (int, string, error) {
	return readFrom(t.generalConn, buf)
}

func readFrom(conn *net.UDPConn, buf []byte) (int, string, error) {
	n, addr, err := conn.ReadFromUDP(buf)
	if err != nil {
		return 0, "", err
	}
	return n, addr.IP.String(), nil
}

// Close releases both sockets.
func (t *UDPTransport) Close() error {
	err1 := t.eventConn.Close()
	err2 := t.generalConn.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
