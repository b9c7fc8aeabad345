package stan

// batchState is the per-store batch context: the nesting depth, the keys
// whose computed fields must be recomputed and the keys waiting to be
// delivered.
type batchState struct {
	depth   int
	derived []*keyEntry
	stale   map[*keyEntry]struct{}
	pending []*keyEntry
	queued  map[*keyEntry]struct{}
}

func (b *batchState) active() bool {
	return b.depth > 0
}

func (b *batchState) queue(e *keyEntry) {
	if b.queued == nil {
		b.queued = make(map[*keyEntry]struct{})
	}
	if _, ok := b.queued[e]; ok {
		return
	}
	b.queued[e] = struct{}{}
	b.pending = append(b.pending, e)
}

func (b *batchState) queueDerived(e *keyEntry) {
	if b.stale == nil {
		b.stale = make(map[*keyEntry]struct{})
	}
	if _, ok := b.stale[e]; ok {
		return
	}
	b.stale[e] = struct{}{}
	b.derived = append(b.derived, e)
}

func (b *batchState) takeDerived() []*keyEntry {
	derived := b.derived
	b.derived = nil
	b.stale = nil
	return derived
}

func (b *batchState) drain() []*keyEntry {
	pending := b.pending
	b.pending = nil
	b.queued = nil
	b.derived = nil
	b.stale = nil
	return pending
}

// Batch is a scoped batch handle returned by Begin. Notifications for
// writes made while any batch is open are delivered when the outermost
// batch ends.
type Batch struct {
	s     *Store
	ended bool
}

// Begin opens a batch. Pair it with a deferred End:
//
//	b := store.Begin()
//	defer b.End()
//
// Batches opened inside another batch join it.
func (s *Store) Begin() *Batch {
	s.batch.depth++
	if s.batch.depth == 1 {
		for _, o := range s.observers {
			o.BatchStarted()
		}
	}
	return &Batch{s: s}
}

// End closes the batch. When it closes the outermost batch, computed fields
// whose dependencies changed are recomputed once, then every pending
// composite key is delivered once, with the values its fields hold now.
// Writes made by listeners during delivery notify immediately. End is
// idempotent.
func (b *Batch) End() {
	if b == nil || b.ended {
		return
	}
	b.ended = true
	s := b.s
	if s.batch.depth > 1 {
		s.batch.depth--
		return
	}
	s.flush()
}

// flush settles computed fields while the batch is still open, so their
// changes join the pending set, then closes it and delivers.
func (s *Store) flush() {
	defer s.deliverPending()
	for {
		derived := s.batch.takeDerived()
		if len(derived) == 0 {
			return
		}
		for _, e := range derived {
			s.recompute(e)
		}
	}
}

func (s *Store) deliverPending() {
	s.batch.depth = 0
	pending := s.batch.drain()
	for _, e := range pending {
		s.deliver(e)
	}
	s.logger.Debug("stan: batch flushed", "keys", len(pending))
	for _, o := range s.observers {
		o.BatchFlushed(len(pending))
	}
}

// BatchUpdates runs fn with notifications deferred until it returns. The
// flush happens on every exit path; if fn panics, the panic continues after
// the flush and writes made before it stay committed.
func (s *Store) BatchUpdates(fn func()) {
	b := s.Begin()
	defer b.End()
	fn()
}
