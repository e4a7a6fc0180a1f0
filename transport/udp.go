// Package transport implements the default Frame Gateway spec.md §4
// declares out of scope: it turns apkes's framed byte slices into UDP
// datagrams and back, standing in for the 802.15.4 radio driver the
// original targets. Grounded on backkem-matter's pkg/transport UDP
// transport (read loop goroutine, MessageHandler callback, mutex-guarded
// start/stop), generalized from its single-peer PeerAddress to a PeerBook
// since APKES broadcasts to every one-hop neighbor at once.
package transport

import (
	"net"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/kahnreaz/contiki/proto"
)

// MaxDatagramSize bounds a single UDP datagram, including the sender
// header, comfortably under the common 1500-byte Ethernet MTU.
const MaxDatagramSize = 1280

// senderHeaderLen is the width of the extended-address header UDPGateway
// prepends to every datagram, standing in for the sender-authenticated MAC
// header spec.md §1 assumes the link layer already provides.
const senderHeaderLen = proto.ExtendedAddrLen

// FrameHandler receives one demultiplexed command frame: the sender's
// extended address (as read off the datagram's sender header), the command
// id, and the payload following it. It matches apkes.Engine.HandleFrame's
// signature exactly, so an *apkes.Engine can be wired in directly as the
// handler without transport importing apkes.
type FrameHandler func(from proto.ExtendedAddr, id proto.CommandID, payload []byte)

// UDPGateway is a apkes.Gateway implementation over a net.PacketConn. Every
// outbound frame is prefixed with self's extended address so the receiver
// can demultiplex without a handshake; every inbound datagram is split
// back into (sender, command id, payload) and handed to Handler.
type UDPGateway struct {
	conn    net.PacketConn
	self    proto.ExtendedAddr
	handler FrameHandler
	peers   *PeerBook
	log     logging.LeveledLogger

	closeCh chan struct{}
	wg      sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

// UDPConfig configures a UDPGateway.
type UDPConfig struct {
	// Conn is an optional pre-existing PacketConn to use. If nil, a new
	// connection is created listening on ListenAddr.
	Conn net.PacketConn

	// ListenAddr is the address to listen on (e.g. ":7878"). Ignored if
	// Conn is provided.
	ListenAddr string

	// Self is this node's extended address, stamped on every outbound
	// datagram's sender header.
	Self proto.ExtendedAddr

	// Handler receives every demultiplexed inbound frame. Required.
	Handler FrameHandler

	// Peers is the address book SendBroadcast fans out to and
	// SendUnicast resolves against. If nil, an empty PeerBook is created.
	Peers *PeerBook

	// LoggerFactory is the factory for creating loggers. If nil, a
	// default factory is used.
	LoggerFactory logging.LoggerFactory
}

// NewUDPGateway creates a UDPGateway from cfg. It does not start the read
// loop; call Start for that.
func NewUDPGateway(cfg UDPConfig) (*UDPGateway, error) {
	if cfg.Handler == nil {
		return nil, ErrNoHandler
	}
	if cfg.Peers == nil {
		cfg.Peers = NewPeerBook()
	}

	g := &UDPGateway{
		conn:    cfg.Conn,
		self:    cfg.Self,
		handler: cfg.Handler,
		peers:   cfg.Peers,
		closeCh: make(chan struct{}),
	}

	loggerFactory := cfg.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	g.log = loggerFactory.NewLogger("transport-udp")

	if g.conn == nil {
		addr := cfg.ListenAddr
		if addr == "" {
			addr = ":0"
		}
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return nil, err
		}
		g.conn = conn
	}
	return g, nil
}

// Start begins the read loop. Inbound frames are delivered to the
// configured Handler until Stop is called.
func (g *UDPGateway) Start() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	if g.started {
		g.mu.Unlock()
		return ErrAlreadyStarted
	}
	g.started = true
	g.mu.Unlock()

	g.log.Infof("apkes: UDP gateway listening on %s", g.conn.LocalAddr())
	g.wg.Add(1)
	go g.readLoop()
	return nil
}

// Stop closes the underlying connection and waits for the read loop to
// exit.
func (g *UDPGateway) Stop() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	g.closed = true
	g.mu.Unlock()

	close(g.closeCh)
	g.conn.SetReadDeadline(time.Now())
	g.conn.Close()
	g.wg.Wait()
	return nil
}

// LocalAddr returns the address the gateway is listening on.
func (g *UDPGateway) LocalAddr() net.Addr {
	return g.conn.LocalAddr()
}

// Peers returns the gateway's address book, so callers can populate it as
// neighbors are discovered out-of-band (e.g. from a config file or a
// discovery beacon ahead of bootstrap).
func (g *UDPGateway) Peers() *PeerBook {
	return g.peers
}

// SendUnicast implements apkes.Gateway. It resolves to.Extended against the
// peer book and writes the framed datagram directly to that address.
func (g *UDPGateway) SendUnicast(to proto.Identity, frame []byte) {
	addr, ok := g.peers.Lookup(to.Extended)
	if !ok {
		g.log.Debugf("apkes: SendUnicast to unknown peer %x dropped", to.Extended)
		return
	}
	g.writeTo(frame, addr)
}

// SendBroadcast implements apkes.Gateway. Plain UDP has no notion of a
// one-hop radio broadcast domain, so it is approximated by writing
// individually to every address currently in the peer book.
func (g *UDPGateway) SendBroadcast(frame []byte) {
	g.peers.Each(func(_ proto.ExtendedAddr, addr *net.UDPAddr) {
		g.writeTo(frame, addr)
	})
}

func (g *UDPGateway) writeTo(frame []byte, addr *net.UDPAddr) {
	datagram := make([]byte, senderHeaderLen+len(frame))
	copy(datagram, g.self[:])
	copy(datagram[senderHeaderLen:], frame)

	if len(datagram) > MaxDatagramSize {
		g.log.Warnf("apkes: dropping outbound frame of %d bytes to %v, exceeds MaxDatagramSize", len(datagram), addr)
		return
	}

	if _, err := g.conn.WriteTo(datagram, addr); err != nil {
		g.log.Warnf("apkes: UDP write to %v failed: %v", addr, err)
	}
}

func (g *UDPGateway) readLoop() {
	defer g.wg.Done()

	buf := make([]byte, MaxDatagramSize)
	for {
		select {
		case <-g.closeCh:
			return
		default:
		}

		n, addr, err := g.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-g.closeCh:
				return
			default:
				g.log.Warnf("apkes: UDP read error: %v", err)
				continue
			}
		}
		if n < senderHeaderLen+1 {
			g.log.Debugf("apkes: dropping short datagram (%d bytes) from %v", n, addr)
			continue
		}

		var from proto.ExtendedAddr
		copy(from[:], buf[:senderHeaderLen])
		id := proto.CommandID(buf[senderHeaderLen])
		payload := make([]byte, n-senderHeaderLen-1)
		copy(payload, buf[senderHeaderLen+1:n])

		if udpAddr, ok := addr.(*net.UDPAddr); ok {
			g.peers.Add(from, udpAddr)
		}

		g.handler(from, id, payload)
	}
}
