package quic

import (
    "context"
    "crypto/rand"
    "crypto/rsa"
    "crypto/tls"
    "crypto/x509"
    "math/big"
    "net"
    "sync"
    "time"

    quicgo "github.com/quic-go/quic-go"

    "beamlink/pkg/protocol/stream"
    "beamlink/pkg/transport"
)

// ALPN is the application protocol negotiated on every beamlink QUIC
// connection.
const ALPN = "beamlink/1"

// Transport implements QUIC-based sessions with length-prefixed frames.
// Each session carries a single command stream opened by the dialer and
// accepted by the listener.
type Transport struct {
    tlsConf  *tls.Config
    quicConf *quicgo.Config
}

// New builds a transport with an ephemeral self-signed server certificate.
func New() (*Transport, error) {
    cert, err := selfSignedCert()
    if err != nil { return nil, err }
    tlsConf := &tls.Config{
        Certificates: []tls.Certificate{cert},
        NextProtos:   []string{ALPN},
        MinVersion:   tls.VersionTLS13,
    }
    qconf := &quicgo.Config{KeepAlivePeriod: 10 * time.Second, MaxIdleTimeout: time.Minute}
    return &Transport{tlsConf: tlsConf, quicConf: qconf}, nil
}

func (t *Transport) Kind() transport.Kind { return transport.KindQUIC }

func (t *Transport) Listen(ctx context.Context, address string) (transport.Listener, error) {
    l, err := quicgo.ListenAddr(address, t.tlsConf, t.quicConf)
    if err != nil { return nil, err }
    ql := &listener{l: l, newCh: make(chan *session, 8), closeCh: make(chan struct{})}
    lctx, cancel := context.WithCancel(ctx)
    ql.cancel = cancel
    go ql.acceptLoop(lctx)
    go func() { <-lctx.Done(); _ = ql.Close() }()
    return ql, nil
}

func (t *Transport) Dial(ctx context.Context, address string) (transport.Session, error) {
    // The device certificate is ephemeral; the link is trusted by address.
    tlsClient := &tls.Config{
        InsecureSkipVerify: true,
        NextProtos:         []string{ALPN},
        MinVersion:         tls.VersionTLS13,
    }
    c, err := quicgo.DialAddr(ctx, address, tlsClient, t.quicConf)
    if err != nil { return nil, err }
    return newSession(c, false), nil
}

// ---- Listener ----

type listener struct {
    l       *quicgo.Listener
    newCh   chan *session
    once    sync.Once
    closeCh chan struct{}
    cancel  context.CancelFunc
}

func (l *listener) Addr() net.Addr { return l.l.Addr() }

func (l *listener) Accept(ctx context.Context) (transport.Session, error) {
    select {
    case <-ctx.Done():
        return nil, ctx.Err()
    case <-l.closeCh:
        return nil, transport.ErrListenerClosed
    case s := <-l.newCh:
        return s, nil
    }
}

func (l *listener) Close() error {
    var err error
    l.once.Do(func() {
        close(l.closeCh)
        l.cancel()
        err = l.l.Close()
    })
    return err
}

func (l *listener) acceptLoop(ctx context.Context) {
    for {
        c, err := l.l.Accept(ctx)
        if err != nil { return }
        s := newSession(c, true)
        select {
        case l.newCh <- s:
        case <-l.closeCh:
            _ = s.Close()
            return
        }
    }
}

// ---- Session/Streams ----

type session struct {
    peer    transport.PeerInfo
    c       quicgo.Connection
    inbound bool
    establishedAt time.Time

    mu   sync.Mutex
    ctrl *qstream
}

func newSession(c quicgo.Connection, inbound bool) *session {
    raddr := c.RemoteAddr()
    return &session{
        peer:          transport.PeerInfo{ID: transport.TempPeerID(transport.KindQUIC, raddr), Addr: raddr.String()},
        c:             c,
        inbound:       inbound,
        establishedAt: time.Now(),
    }
}

func (s *session) Peer() transport.PeerInfo { return s.peer }
func (s *session) TransportKind() transport.Kind { return transport.KindQUIC }
func (s *session) LocalAddr() net.Addr { return s.c.LocalAddr() }
func (s *session) RemoteAddr() net.Addr { return s.c.RemoteAddr() }

// OpenStream returns the command stream, opening it on first use. On an
// inbound session it waits for the dialer's stream instead.
func (s *session) OpenStream(ctx context.Context) (transport.Stream, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.ctrl != nil { return s.ctrl, nil }
    var (
        qs  quicgo.Stream
        err error
    )
    if s.inbound {
        qs, err = s.c.AcceptStream(ctx)
    } else {
        qs, err = s.c.OpenStreamSync(ctx)
    }
    if err != nil { return nil, err }
    s.ctrl = &qstream{Framer: stream.New(qs), qs: qs}
    return s.ctrl, nil
}

func (s *session) AcceptStream(ctx context.Context) (transport.Stream, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.ctrl != nil { return s.ctrl, nil }
    qs, err := s.c.AcceptStream(ctx)
    if err != nil { return nil, err }
    s.ctrl = &qstream{Framer: stream.New(qs), qs: qs}
    return s.ctrl, nil
}

func (s *session) Quality() transport.Quality { return transport.Quality{EstablishedAt: s.establishedAt} }

func (s *session) Close() error { return s.c.CloseWithError(0, "") }

// qstream implements transport.Stream over a QUIC bidirectional stream.
type qstream struct {
    *stream.Framer
    qs quicgo.Stream
}

func (st *qstream) Close() error {
    st.qs.CancelRead(0)
    return st.qs.Close()
}

// ---- Helpers ----

// selfSignedCert generates a short-lived self-signed TLS certificate for local QUIC use.
func selfSignedCert() (tls.Certificate, error) {
    priv, err := rsa.GenerateKey(rand.Reader, 2048)
    if err != nil { return tls.Certificate{}, err }
    tmpl := x509.Certificate{
        SerialNumber: big.NewInt(time.Now().UnixNano()),
        NotBefore:    time.Now().Add(-time.Minute),
        NotAfter:     time.Now().Add(24 * time.Hour),
        KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
        ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
        BasicConstraintsValid: true,
        DNSNames:     []string{"localhost"},
    }
    der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
    if err != nil { return tls.Certificate{}, err }
    return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}
