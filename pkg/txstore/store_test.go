package txstore

import (
    "errors"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "beamlink/pkg/protocol"
)

func TestPutGetCopies(t *testing.T) {
    s := New(Options{})
    defer s.Close()

    in := []uint32{1, 2, 3}
    if err := s.Put(protocol.TxData{ID: 7, Samples: in}); err != nil { t.Fatalf("put: %v", err) }
    in[0] = 99
    td, ok := s.Get(7)
    if !ok || td.ID != 7 || td.Samples[0] != 1 {
        t.Fatalf("Get mismatch: ok=%v td=%+v", ok, td)
    }
    // mutating the returned copy must not reach the store
    td.Samples[1] = 42
    td2, _ := s.Get(7)
    if td2.Samples[1] != 2 { t.Fatalf("store shared memory with caller") }
    if !s.Has(7) || s.Has(8) { t.Fatalf("Has mismatch") }
    if _, ok := s.Get(8); ok { t.Fatalf("unexpected hit") }

    st := s.Stats()
    if st.Keys != 1 || st.Bytes != 12 || st.Hits != 2 || st.Misses != 1 || st.Puts != 1 {
        t.Fatalf("stats = %+v", st)
    }
}

func TestReplaceAndDelete(t *testing.T) {
    s := New(Options{})
    defer s.Close()
    _ = s.Put(protocol.TxData{ID: 1, Samples: make([]uint32, 10)})
    _ = s.Put(protocol.TxData{ID: 1, Samples: make([]uint32, 4)})
    if st := s.Stats(); st.Keys != 1 || st.Bytes != 16 { t.Fatalf("after replace: %+v", st) }
    if !s.Delete(1) || s.Delete(1) { t.Fatalf("delete mismatch") }
    if st := s.Stats(); st.Keys != 0 || st.Bytes != 0 || s.Len() != 0 { t.Fatalf("after delete: %+v", st) }
}

func TestMaxBytes(t *testing.T) {
    s := New(Options{MaxBytes: 40})
    defer s.Close()
    if err := s.Put(protocol.TxData{ID: 1, Samples: make([]uint32, 8)}); err != nil { t.Fatalf("put 1: %v", err) }
    err := s.Put(protocol.TxData{ID: 2, Samples: make([]uint32, 3)})
    if !errors.Is(err, ErrFull) { t.Fatalf("expected ErrFull, got %v", err) }
    if s.Has(2) { t.Fatalf("refused entry stored") }
    // shrinking an existing entry frees room
    if err := s.Put(protocol.TxData{ID: 1, Samples: make([]uint32, 2)}); err != nil { t.Fatalf("shrink: %v", err) }
    if err := s.Put(protocol.TxData{ID: 2, Samples: make([]uint32, 8)}); err != nil { t.Fatalf("put 2: %v", err) }
    if st := s.Stats(); st.Bytes != 40 || st.Refused != 1 { t.Fatalf("stats = %+v", st) }
}

func TestTTLLazyExpiry(t *testing.T) {
    var clock atomic.Int64
    clock.Store(time.Unix(1000, 0).UnixNano())
    s := New(Options{TTL: time.Minute})
    s.Close() // stop the expirer so only lazy expiry runs
    s.nowFn = func() time.Time { return time.Unix(0, clock.Load()) }

    _ = s.Put(protocol.TxData{ID: 3, Samples: []uint32{1}})
    clock.Add(int64(30 * time.Second))
    if !s.Has(3) { t.Fatalf("expired too early") }
    clock.Add(int64(31 * time.Second))
    if s.Has(3) { t.Fatalf("Has reports expired entry") }
    if _, ok := s.Get(3); ok { t.Fatalf("Get returned expired entry") }
    if st := s.Stats(); st.Expired != 1 || st.Keys != 0 || st.Bytes != 0 { t.Fatalf("stats = %+v", st) }
}

func TestTTLBackgroundExpiry(t *testing.T) {
    s := New(Options{TTL: 20 * time.Millisecond})
    defer s.Close()
    _ = s.Put(protocol.TxData{ID: 9, Samples: []uint32{1, 2}})
    deadline := time.Now().Add(2 * time.Second)
    for s.Len() != 0 {
        if time.Now().After(deadline) { t.Fatalf("entry never expired: %+v", s.Stats()) }
        time.Sleep(5 * time.Millisecond)
    }
    if st := s.Stats(); st.Expired != 1 || st.Bytes != 0 { t.Fatalf("stats = %+v", st) }
}

func TestConcurrentPutGet(t *testing.T) {
    s := New(Options{Shards: 4})
    defer s.Close()
    var wg sync.WaitGroup
    for g := 0; g < 8; g++ {
        wg.Add(1)
        go func(g int) {
            defer wg.Done()
            for i := 0; i < 200; i++ {
                id := protocol.TxDataID(g*1000 + i)
                if err := s.Put(protocol.TxData{ID: id, Samples: []uint32{uint32(i)}}); err != nil { t.Errorf("put: %v", err); return }
                if td, ok := s.Get(id); !ok || td.Samples[0] != uint32(i) { t.Errorf("get %d failed", id); return }
            }
        }(g)
    }
    wg.Wait()
    if s.Len() != 1600 { t.Fatalf("len = %d", s.Len()) }
}
