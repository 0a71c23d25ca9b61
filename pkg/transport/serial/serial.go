package serial

import (
    "context"
    "errors"
    "fmt"
    "io"
    "net"
    "strconv"
    "strings"
    "sync"
    "time"

    bugst "go.bug.st/serial"

    "beamlink/pkg/protocol/stream"
    "beamlink/pkg/transport"
)

// DefaultBaud is used when an address carries no @baud suffix.
const DefaultBaud = 115200

// OpenFunc opens a port. The default opens a UART with 8N1 framing.
type OpenFunc func(name string, baud int) (io.ReadWriteCloser, error)

// Transport carries frames over a point-to-point UART link. Addresses are
// port names with an optional baud suffix: "/dev/ttyUSB0@921600".
type Transport struct {
    Baud int
    Open OpenFunc
}

func New(baud int) *Transport {
    if baud <= 0 { baud = DefaultBaud }
    return &Transport{Baud: baud, Open: openUART}
}

func openUART(name string, baud int) (io.ReadWriteCloser, error) {
    mode := &bugst.Mode{
        BaudRate: baud,
        DataBits: 8,
        Parity:   bugst.NoParity,
        StopBits: bugst.OneStopBit,
    }
    port, err := bugst.Open(name, mode)
    if err != nil { return nil, err }
    // drop whatever the other side sent before we were listening
    if err := port.ResetInputBuffer(); err != nil {
        _ = port.Close()
        return nil, err
    }
    return port, nil
}

// ParseAddress splits "name@baud". A missing suffix yields def.
func ParseAddress(address string, def int) (string, int, error) {
    name, baud, ok := strings.Cut(address, "@")
    if name == "" { return "", 0, errors.New("serial: empty port name") }
    if !ok { return name, def, nil }
    n, err := strconv.Atoi(baud)
    if err != nil || n <= 0 { return "", 0, fmt.Errorf("serial: bad baud rate %q", baud) }
    return name, n, nil
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) { return bugst.GetPortsList() }

func (t *Transport) Kind() transport.Kind { return transport.KindSerial }

func (t *Transport) open(address string) (*session, error) {
    name, baud, err := ParseAddress(address, t.Baud)
    if err != nil { return nil, err }
    open := t.Open
    if open == nil { open = openUART }
    port, err := open(name, baud)
    if err != nil { return nil, fmt.Errorf("serial: open %s: %w", name, err) }
    return newSession(name, port), nil
}

// Dial opens the port and returns a session over it.
func (t *Transport) Dial(ctx context.Context, address string) (transport.Session, error) {
    if err := ctx.Err(); err != nil { return nil, err }
    return t.open(address)
}

// Listen returns a listener that yields one session at a time: the port is
// reopened once the previous session is closed.
func (t *Transport) Listen(ctx context.Context, address string) (transport.Listener, error) {
    name, _, err := ParseAddress(address, t.Baud)
    if err != nil { return nil, err }
    l := &listener{t: t, address: address, name: name, free: make(chan struct{}, 1), closeCh: make(chan struct{})}
    l.free <- struct{}{}
    go func() {
        select {
        case <-ctx.Done():
        case <-l.closeCh:
        }
        _ = l.Close()
    }()
    return l, nil
}

type listener struct {
    t       *Transport
    address string
    name    string
    free    chan struct{}
    once    sync.Once
    closeCh chan struct{}
}

func (l *listener) Addr() net.Addr { return portAddr(l.name) }

func (l *listener) Accept(ctx context.Context) (transport.Session, error) {
    select {
    case <-ctx.Done():
        return nil, ctx.Err()
    case <-l.closeCh:
        return nil, transport.ErrListenerClosed
    case <-l.free:
    }
    s, err := l.t.open(l.address)
    if err != nil {
        l.free <- struct{}{}
        return nil, err
    }
    s.onClose = func() { l.free <- struct{}{} }
    return s, nil
}

func (l *listener) Close() error {
    l.once.Do(func() { close(l.closeCh) })
    return nil
}

type portAddr string
func (a portAddr) Network() string { return "serial" }
func (a portAddr) String() string  { return string(a) }

type session struct {
    *stream.Framer
    name    string
    port    io.ReadWriteCloser
    once    sync.Once
    onClose func()
    establishedAt time.Time
}

func newSession(name string, port io.ReadWriteCloser) *session {
    return &session{Framer: stream.New(port), name: name, port: port, establishedAt: time.Now()}
}

func (s *session) Peer() transport.PeerInfo {
    return transport.PeerInfo{ID: transport.TempPeerID(transport.KindSerial, portAddr(s.name)), Addr: s.name}
}
func (s *session) TransportKind() transport.Kind { return transport.KindSerial }
func (s *session) LocalAddr() net.Addr { return portAddr(s.name) }
func (s *session) RemoteAddr() net.Addr { return portAddr(s.name) }

func (s *session) OpenStream(_ context.Context) (transport.Stream, error) { return s, nil }
func (s *session) AcceptStream(_ context.Context) (transport.Stream, error) { return s, nil }
func (s *session) Quality() transport.Quality { return transport.Quality{EstablishedAt: s.establishedAt} }

func (s *session) Close() error {
    err := errors.New("serial: session already closed")
    s.once.Do(func() {
        err = s.port.Close()
        if s.onClose != nil { s.onClose() }
    })
    return err
}
