package mem

import (
    "context"
    "errors"
    "net"
    "sync"
    "time"

    "beamlink/pkg/protocol/stream"
    "beamlink/pkg/transport"
)

// Transport is an in-process transport using net.Pipe. Useful for tests and
// for running host and device in the same process.
type Transport struct {
    mu        sync.Mutex
    listeners map[string]*listener
}

func New() *Transport { return &Transport{listeners: make(map[string]*listener)} }

func (t *Transport) Kind() transport.Kind { return transport.KindMem }

func (t *Transport) Listen(ctx context.Context, name string) (transport.Listener, error) {
    t.mu.Lock(); defer t.mu.Unlock()
    if _, ok := t.listeners[name]; ok {
        return nil, errors.New("mem: listener already exists")
    }
    l := &listener{name: name, newCh: make(chan *session, 8), closeCh: make(chan struct{})}
    t.listeners[name] = l
    go func() {
        select {
        case <-ctx.Done():
        case <-l.closeCh:
        }
        _ = l.Close()
        t.mu.Lock()
        if t.listeners[name] == l { delete(t.listeners, name) }
        t.mu.Unlock()
    }()
    return l, nil
}

func (t *Transport) Dial(ctx context.Context, name string) (transport.Session, error) {
    t.mu.Lock(); l := t.listeners[name]; t.mu.Unlock()
    if l == nil { return nil, errors.New("mem: no such listener") }
    c1, c2 := net.Pipe()
    now := time.Now()
    srv := newSession(transport.PeerInfo{ID: transport.TempPeerID(transport.KindMem, c1.RemoteAddr()), Addr: name}, c1, now)
    cli := newSession(transport.PeerInfo{ID: transport.PeerID("mem:" + name), Addr: name}, c2, now)
    select {
    case l.newCh <- srv:
    case <-l.closeCh:
        _ = srv.Close(); _ = cli.Close()
        return nil, errors.New("mem: listener closed")
    case <-ctx.Done():
        _ = srv.Close(); _ = cli.Close()
        return nil, ctx.Err()
    }
    return cli, nil
}

type listener struct {
    name    string
    newCh   chan *session
    once    sync.Once
    closeCh chan struct{}
}

func (l *listener) Addr() net.Addr { return memAddr(l.name) }

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
    l.once.Do(func() { close(l.closeCh) })
    return nil
}

type memAddr string
func (a memAddr) Network() string { return "mem" }
func (a memAddr) String() string  { return string(a) }

type session struct {
    *stream.Framer
    peer transport.PeerInfo
    c    net.Conn
    establishedAt time.Time
}

func newSession(peer transport.PeerInfo, c net.Conn, at time.Time) *session {
    return &session{Framer: stream.New(c), peer: peer, c: c, establishedAt: at}
}

func (s *session) Peer() transport.PeerInfo { return s.peer }
func (s *session) TransportKind() transport.Kind { return transport.KindMem }
func (s *session) LocalAddr() net.Addr { return s.c.LocalAddr() }
func (s *session) RemoteAddr() net.Addr { return s.c.RemoteAddr() }

func (s *session) OpenStream(_ context.Context) (transport.Stream, error) { return s, nil }
func (s *session) AcceptStream(_ context.Context) (transport.Stream, error) { return s, nil }
func (s *session) Quality() transport.Quality { return transport.Quality{EstablishedAt: s.establishedAt} }
func (s *session) Close() error { return s.c.Close() }
