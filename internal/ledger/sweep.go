package ledger

import (
	"time"

	"github.com/rs/zerolog/log"
)

func (s *Store) startSweeper() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.CleanupInterval)
		defer ticker.Stop()

		log.Debug().
			Dur("interval", s.opts.CleanupInterval).
			Dur("ttl", s.opts.TTL).
			Msg("Ledger sweeper started")

		for {
			select {
			case <-s.ctx.Done():
				log.Debug().Msg("Ledger sweeper stopped")
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Sweep removes every session whose last access is older than the TTL and
// returns the number removed. Candidates are collected under the read lock;
// each removal re-checks expiry under the write lock.
func (s *Store) Sweep() int {
	start := time.Now()
	cutoff := s.opts.Now().Add(-s.opts.TTL)

	s.mu.RLock()
	var candidates []string
	for id, sess := range s.sessions {
		if sess.lastAccessTime().Before(cutoff) {
			candidates = append(candidates, id)
		}
	}
	s.mu.RUnlock()

	removed := make([]string, 0, len(candidates))
	for _, id := range candidates {
		s.mu.Lock()
		sess, ok := s.sessions[id]
		if ok && sess.lastAccessTime().Before(cutoff) {
			s.removeLocked(sess)
			removed = append(removed, id)
		}
		s.mu.Unlock()
	}

	s.sweeps.Add(1)
	s.expirations.Add(int64(len(removed)))

	s.mu.RLock()
	onRemoved := s.onRemoved
	s.mu.RUnlock()
	for _, id := range removed {
		recordRemoval(RemovalExpired)
		if onRemoved != nil {
			onRemoved(id, RemovalExpired)
		}
	}
	recordSweep(time.Since(start), len(removed))

	if len(removed) > 0 {
		log.Info().
			Int("expired", len(removed)).
			Dur("ttl", s.opts.TTL).
			Msg("Expired sessions removed")
	}
	return len(removed)
}
