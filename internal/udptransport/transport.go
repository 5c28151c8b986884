// Package udptransport provides the non-blocking UDP sender and listener
// that OSC traffic rides on: a mutex-guarded sender with optional broadcast
// and optional per-packet encryption, and a callback-driven listener that
// logs and continues past decode failures.
package udptransport

import (
	"log"
	"net"
	"sync"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
	"github.com/large-farva/fleetcore/internal/oscwire"
	"github.com/large-farva/fleetcore/internal/osccrypto"
)

// Sender owns a bound UDP socket and serialises all writes behind a
// single mutex.
type Sender struct {
	mu        sync.Mutex
	conn      *net.UDPConn
	encryptor *osccrypto.Encryptor
}

// NewSender dials dest over UDP. If broadcast is true, SO_BROADCAST is set
// on the underlying socket so dest may be a subnet broadcast address. If
// km is non-nil, every outgoing packet is encrypted per osccrypto before
// the socket write.
func NewSender(dest *net.UDPAddr, broadcast bool, km *osccrypto.KeyMaterial) (*Sender, error) {
	conn, err := net.DialUDP("udp", nil, dest)
	if err != nil {
		return nil, fleeterrors.Wrap(fleeterrors.TransportError, "udptransport.NewSender", err)
	}
	if broadcast {
		if err := setBroadcast(conn); err != nil {
			conn.Close()
			return nil, fleeterrors.Wrap(fleeterrors.TransportError, "udptransport.NewSender", err)
		}
	}
	s := &Sender{conn: conn}
	if km != nil {
		s.encryptor = osccrypto.NewEncryptor(*km)
	}
	return s, nil
}

// SendPacket encodes p per the OSC wire format, encrypts it if this Sender
// has key material, and writes it to the destination. Concurrent callers
// serialise on the sender's mutex.
func (s *Sender) SendPacket(p oscwire.Packet) error {
	payload, err := oscwire.Encode(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encryptor != nil {
		payload, err = s.encryptor.Encrypt(payload)
		if err != nil {
			return err
		}
	}

	if _, err := s.conn.Write(payload); err != nil {
		return fleeterrors.Wrap(fleeterrors.TransportError, "udptransport.Send", err)
	}
	return nil
}

// Close releases the underlying socket.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// PacketHandler receives a decoded packet and the remote address it
// arrived from. It is called synchronously on the listener's receive loop.
type PacketHandler func(p oscwire.Packet, remote *net.UDPAddr)

// Listener binds a UDP endpoint and feeds decoded packets to a callback,
// logging and continuing past decode failures rather than ever treating
// them as fatal to the receive loop.
type Listener struct {
	conn    *net.UDPConn
	handler PacketHandler
	logger  *log.Logger
	km      *osccrypto.KeyMaterial
}

// NewListener binds addr for UDP receive. If km is non-nil, incoming
// packets are first decrypted per osccrypto before OSC decode.
func NewListener(addr *net.UDPAddr, km *osccrypto.KeyMaterial, logger *log.Logger, handler PacketHandler) (*Listener, error) {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fleeterrors.Wrap(fleeterrors.TransportError, "udptransport.NewListener", err)
	}
	return &Listener{conn: conn, handler: handler, logger: logger, km: km}, nil
}

// Run blocks, reading datagrams until the socket is closed (by Close or
// process shutdown). Each decode failure is logged with the remote address
// and payload length; the loop never exits because of one.
func (l *Listener) Run() error {
	buf := make([]byte, 65535)
	for {
		n, remote, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			// A closed socket surfaces here as the loop's exit condition,
			// not a packet-level decode failure.
			return fleeterrors.Wrap(fleeterrors.TransportError, "udptransport.Listener.Run", err)
		}
		l.handleDatagram(buf[:n], remote)
	}
}

func (l *Listener) handleDatagram(raw []byte, remote *net.UDPAddr) {
	payload := raw
	if l.km != nil {
		plain, err := osccrypto.Decrypt(*l.km, raw)
		if err != nil {
			l.logf("decrypt failed from %s (%d bytes): %v", remote, len(raw), err)
			return
		}
		payload = plain
	}

	packet, err := oscwire.Decode(payload)
	if err != nil {
		l.logf("decode failed from %s (%d bytes): %v", remote, len(payload), err)
		return
	}
	l.handler(packet, remote)
}

func (l *Listener) logf(format string, args ...any) {
	if l.logger != nil {
		l.logger.Printf(format, args...)
	}
}

// Close releases the underlying socket, unblocking Run.
func (l *Listener) Close() error {
	return l.conn.Close()
}
