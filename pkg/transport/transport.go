package transport

import (
    "context"
    "errors"
    "fmt"
    "net"
    "strings"
    "time"
)

// ErrListenerClosed is returned by Accept once the listener is closed.
// Any other Accept error may be transient.
var ErrListenerClosed = errors.New("transport: listener closed")

// Kind identifies the link type carrying a host/device channel.
type Kind int

const (
    KindUnknown Kind = iota
    KindMem
    KindTCP
    KindQUIC
    KindSerial
)

func (k Kind) String() string {
    switch k {
    case KindMem:
        return "mem"
    case KindTCP:
        return "tcp"
    case KindQUIC:
        return "quic"
    case KindSerial:
        return "serial"
    default:
        return "unknown"
    }
}

// ParseKind maps a configuration name to a Kind.
func ParseKind(s string) (Kind, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "mem":
        return KindMem, nil
    case "tcp":
        return KindTCP, nil
    case "quic":
        return KindQUIC, nil
    case "serial", "uart":
        return KindSerial, nil
    default:
        return KindUnknown, fmt.Errorf("unknown transport kind: %q", s)
    }
}

// PeerID is an opaque peer label used in logs and session tracking.
type PeerID string

// PeerInfo bundles peer identity and addressing hints.
type PeerInfo struct {
    ID   PeerID
    Addr string // transport-dependent address string
}

// TempPeerID builds a peer id from transport kind and remote address.
func TempPeerID(kind Kind, addr net.Addr) PeerID {
    if addr == nil { return PeerID(fmt.Sprintf("%s:unknown", kind)) }
    return PeerID(fmt.Sprintf("%s:%s", kind, addr.String()))
}

// Quality is a snapshot of link activity.
type Quality struct {
    EstablishedAt time.Time
    LastSeen      time.Time
}

// Stream is a bidirectional message stream. Each message is one protocol
// frame. Exactly one reader and one writer goroutine are expected.
type Stream interface {
    // SendBytes sends one message as opaque bytes.
    SendBytes([]byte) error
    // RecvBytes receives the next message.
    RecvBytes() ([]byte, error)
    Close() error
}

// Session is a connection to a peer carrying one command channel.
type Session interface {
    Peer() PeerInfo
    TransportKind() Kind
    LocalAddr() net.Addr
    RemoteAddr() net.Addr

    // OpenStream returns the command stream. Dialers call it; transports
    // without native streams return a shared stream.
    OpenStream(ctx context.Context) (Stream, error)
    // AcceptStream waits for the peer's command stream.
    AcceptStream(ctx context.Context) (Stream, error)

    Quality() Quality
    Close() error
}

// Listener accepts inbound sessions.
type Listener interface {
    // Accept blocks until an inbound session is available or ctx is done.
    Accept(ctx context.Context) (Session, error)
    Addr() net.Addr
    // Close stops the listener and unblocks Accept.
    Close() error
}

// Transport provides dialing/listening for a specific link kind.
type Transport interface {
    Kind() Kind
    // Listen starts accepting inbound sessions on address (transport-specific format).
    Listen(ctx context.Context, address string) (Listener, error)
    // Dial creates an outbound session to address.
    Dial(ctx context.Context, address string) (Session, error)
}
