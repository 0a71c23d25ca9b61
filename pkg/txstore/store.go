// Package txstore holds the TxData waveforms a device has been loaded with.
//
// Entries are sharded by id, copied on Put and on Get, optionally expire
// after a TTL and may be bounded by a total byte budget. All counters are
// atomic so Stats never blocks store operations.
package txstore

import (
    "container/heap"
    "errors"
    "fmt"
    "sync"
    "sync/atomic"
    "time"

    "beamlink/pkg/protocol"
)

// ErrFull is returned by Put when the entry would exceed Options.MaxBytes.
var ErrFull = errors.New("txstore: byte budget exceeded")

// sampleBytes is the stored size of one sample.
const sampleBytes = 4

// ========================= Options =========================

type Options struct {
    Shards   int           // number of shards (default 16)
    TTL      time.Duration // entry lifetime; 0 keeps entries until replaced
    MaxBytes uint64        // hard limit on stored samples in bytes (0 = unbounded)
}

func (o Options) withDefaults() Options {
    if o.Shards <= 0 {
        o.Shards = 16
    }
    return o
}

// ========================= Store =========================

type Store struct {
    opts    Options
    shards  []shard
    expq    expQueue
    wake    chan struct{}
    closeCh chan struct{}
    once    sync.Once
    wg      sync.WaitGroup

    nowFn func() time.Time

    mKeys    atomic.Uint64
    mBytes   atomic.Uint64
    mPuts    atomic.Uint64
    mGets    atomic.Uint64
    mHits    atomic.Uint64
    mMisses  atomic.Uint64
    mDels    atomic.Uint64
    mExpired atomic.Uint64
    mRefused atomic.Uint64
}

type shard struct {
    mu sync.RWMutex
    m  map[protocol.TxDataID]*entry
}

type entry struct {
    samples  []uint32
    expireAt int64 // unix nano; 0 = never
}

func (e *entry) expired(now int64) bool { return e.expireAt != 0 && e.expireAt <= now }

func New(opts Options) *Store {
    opts = opts.withDefaults()
    s := &Store{
        opts:    opts,
        shards:  make([]shard, opts.Shards),
        wake:    make(chan struct{}, 1),
        closeCh: make(chan struct{}),
        nowFn:   time.Now,
    }
    for i := range s.shards {
        s.shards[i].m = make(map[protocol.TxDataID]*entry)
    }
    if opts.TTL > 0 {
        s.wg.Add(1)
        go s.expirer()
    }
    return s
}

// Close stops background expiry. The store stays readable.
func (s *Store) Close() {
    s.once.Do(func() { close(s.closeCh) })
    s.wg.Wait()
}

func (s *Store) shardFor(id protocol.TxDataID) *shard {
    return &s.shards[int(uint32(id)%uint32(len(s.shards)))]
}

// tryAddBytes reserves delta bytes against the budget.
func (s *Store) tryAddBytes(delta uint64) bool {
    if s.opts.MaxBytes == 0 {
        s.mBytes.Add(delta)
        return true
    }
    for {
        cur := s.mBytes.Load()
        next := cur + delta
        if next > s.opts.MaxBytes {
            return false
        }
        if s.mBytes.CompareAndSwap(cur, next) {
            return true
        }
    }
}

func (s *Store) subBytes(n uint64) { s.mBytes.Add(^(n - 1)) }

// ========================= API =========================

// Put stores td, replacing any previous waveform with the same id.
func (s *Store) Put(td protocol.TxData) error {
    v := make([]uint32, len(td.Samples))
    copy(v, td.Samples)
    size := uint64(len(v)) * sampleBytes

    now := s.nowFn()
    expAt := int64(0)
    if s.opts.TTL > 0 {
        expAt = now.Add(s.opts.TTL).UnixNano()
    }

    sh := s.shardFor(td.ID)
    sh.mu.Lock()
    prev, existed := sh.m[td.ID]
    oldSize := uint64(0)
    if existed {
        oldSize = uint64(len(prev.samples)) * sampleBytes
    }
    if size > oldSize {
        if !s.tryAddBytes(size - oldSize) {
            sh.mu.Unlock()
            s.mRefused.Add(1)
            return fmt.Errorf("%w: %s needs %d bytes, budget %d, in use %d", ErrFull, td.ID, size, s.opts.MaxBytes, s.mBytes.Load())
        }
    } else if size < oldSize {
        s.subBytes(oldSize - size)
    }
    sh.m[td.ID] = &entry{samples: v, expireAt: expAt}
    if !existed {
        s.mKeys.Add(1)
    }
    s.mPuts.Add(1)
    sh.mu.Unlock()

    if expAt != 0 {
        s.enqueueExpire(td.ID, expAt)
    }
    return nil
}

// Get returns a copy of the waveform with the given id.
func (s *Store) Get(id protocol.TxDataID) (protocol.TxData, bool) {
    s.mGets.Add(1)
    sh := s.shardFor(id)
    sh.mu.RLock()
    e, ok := sh.m[id]
    if !ok || e.expired(s.nowFn().UnixNano()) {
        sh.mu.RUnlock()
        if ok { s.expire(id) }
        s.mMisses.Add(1)
        return protocol.TxData{}, false
    }
    out := make([]uint32, len(e.samples))
    copy(out, e.samples)
    sh.mu.RUnlock()
    s.mHits.Add(1)
    return protocol.TxData{ID: id, Samples: out}, true
}

// Has reports whether id is loaded and not expired.
func (s *Store) Has(id protocol.TxDataID) bool {
    sh := s.shardFor(id)
    sh.mu.RLock()
    e, ok := sh.m[id]
    live := ok && !e.expired(s.nowFn().UnixNano())
    sh.mu.RUnlock()
    return live
}

// Delete removes id. It reports whether an entry was present.
func (s *Store) Delete(id protocol.TxDataID) bool {
    sh := s.shardFor(id)
    sh.mu.Lock()
    e, ok := sh.m[id]
    if ok {
        delete(sh.m, id)
    }
    sh.mu.Unlock()
    if ok {
        s.mDels.Add(1)
        s.mKeys.Add(^uint64(0))
        s.subBytes(uint64(len(e.samples)) * sampleBytes)
    }
    return ok
}

// Len returns the number of stored entries, expired ones included until
// they are collected.
func (s *Store) Len() int { return int(s.mKeys.Load()) }

// expire removes id if its entry is still expired.
func (s *Store) expire(id protocol.TxDataID) {
    sh := s.shardFor(id)
    sh.mu.Lock()
    e, ok := sh.m[id]
    if ok && e.expired(s.nowFn().UnixNano()) {
        delete(sh.m, id)
    } else {
        ok = false
    }
    sh.mu.Unlock()
    if ok {
        s.mExpired.Add(1)
        s.mKeys.Add(^uint64(0))
        s.subBytes(uint64(len(e.samples)) * sampleBytes)
    }
}

// ========================= Metrics =========================

// Stats is a metrics snapshot.
type Stats struct {
    Keys    uint64
    Bytes   uint64
    Puts    uint64
    Gets    uint64
    Hits    uint64
    Misses  uint64
    Dels    uint64
    Expired uint64
    Refused uint64
}

func (s *Store) Stats() Stats {
    return Stats{
        Keys:    s.mKeys.Load(),
        Bytes:   s.mBytes.Load(),
        Puts:    s.mPuts.Load(),
        Gets:    s.mGets.Load(),
        Hits:    s.mHits.Load(),
        Misses:  s.mMisses.Load(),
        Dels:    s.mDels.Load(),
        Expired: s.mExpired.Load(),
        Refused: s.mRefused.Load(),
    }
}

// ========================= Expiry queue =========================

type expItem struct {
    when int64
    id   protocol.TxDataID
}

type expQueue struct {
    mu    sync.Mutex
    items []expItem
}

func (q *expQueue) Len() int           { return len(q.items) }
func (q *expQueue) Less(i, j int) bool { return q.items[i].when < q.items[j].when }
func (q *expQueue) Swap(i, j int)      { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *expQueue) Push(x any)         { q.items = append(q.items, x.(expItem)) }
func (q *expQueue) Pop() any           { n := len(q.items); it := q.items[n-1]; q.items = q.items[:n-1]; return it }

func (s *Store) enqueueExpire(id protocol.TxDataID, when int64) {
    s.expq.mu.Lock()
    heap.Push(&s.expq, expItem{when: when, id: id})
    s.expq.mu.Unlock()
    select {
    case s.wake <- struct{}{}:
    default:
    }
}

func (s *Store) expirer() {
    defer s.wg.Done()
    timer := time.NewTimer(time.Hour)
    defer timer.Stop()
    for {
        s.expq.mu.Lock()
        wait := time.Duration(-1)
        now := s.nowFn().UnixNano()
        var due []protocol.TxDataID
        for s.expq.Len() > 0 {
            it := s.expq.items[0]
            if it.when > now {
                wait = time.Duration(it.when - now)
                break
            }
            heap.Pop(&s.expq)
            due = append(due, it.id)
        }
        s.expq.mu.Unlock()

        // a replaced entry carries a later deadline and survives this check
        for _, id := range due {
            s.expire(id)
        }

        if !timer.Stop() {
            select {
            case <-timer.C:
            default:
            }
        }
        var tc <-chan time.Time
        if wait >= 0 {
            timer.Reset(wait)
            tc = timer.C
        }
        select {
        case <-s.closeCh:
            return
        case <-s.wake:
        case <-tc:
        }
    }
}
