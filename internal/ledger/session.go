package ledger

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/thebtf/reasonledger/pkg/models"
)

type stepKey struct {
	branch string
	step   int
}

// entry wraps a stored record with its insertion sequence.
// Overrides replace rec in place and keep seq.
type entry struct {
	rec    *models.ThoughtRecord
	seq    uint64
	tokens int
}

// session holds one session's records and indexes. All fields except
// lastAccess are guarded by Store.mu.
type session struct {
	createdAt   time.Time
	byKey       map[stepKey]*entry
	byStep      map[int]*entry
	branchSteps map[string][]int
	forks       map[string]int
	revisedBy   map[int][]*entry
	id          string
	entries     []*entry
	branchOrder []string
	lastAccess  atomic.Int64
	nextSeq     uint64
	tokens      int
}

func newSession(id string, now time.Time) *session {
	s := &session{
		id:          id,
		createdAt:   now,
		byKey:       make(map[stepKey]*entry),
		byStep:      make(map[int]*entry),
		branchSteps: make(map[string][]int),
		forks:       make(map[string]int),
		revisedBy:   make(map[int][]*entry),
	}
	s.touch(now)
	return s
}

func (s *session) touch(now time.Time) {
	s.lastAccess.Store(now.UnixNano())
}

func (s *session) lastAccessTime() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}

// put inserts or overrides rec. It returns true when an existing record
// was replaced.
func (s *session) put(rec *models.ThoughtRecord, tokens int) bool {
	branch := rec.Branch()
	key := stepKey{branch: branch, step: rec.StepNumber}

	if existing, ok := s.byKey[key]; ok {
		s.unlinkRevision(existing)
		existing.rec = rec
		s.linkRevision(existing)
		s.byStep[rec.StepNumber] = existing
		s.tokens += tokens - existing.tokens
		existing.tokens = tokens
		return true
	}

	s.nextSeq++
	e := &entry{rec: rec, seq: s.nextSeq, tokens: tokens}
	s.entries = append(s.entries, e)
	s.byKey[key] = e
	s.byStep[rec.StepNumber] = e
	s.linkRevision(e)
	s.tokens += tokens

	steps, known := s.branchSteps[branch]
	if !known {
		s.branchOrder = append(s.branchOrder, branch)
	}
	i := sort.SearchInts(steps, rec.StepNumber)
	steps = append(steps, 0)
	copy(steps[i+1:], steps[i:])
	steps[i] = rec.StepNumber
	s.branchSteps[branch] = steps

	if rec.BranchFrom > 0 {
		if _, ok := s.forks[branch]; !ok {
			s.forks[branch] = rec.BranchFrom
		}
	}
	return false
}

func (s *session) linkRevision(e *entry) {
	if e.rec.RevisesStep > 0 {
		s.revisedBy[e.rec.RevisesStep] = append(s.revisedBy[e.rec.RevisesStep], e)
	}
}

func (s *session) unlinkRevision(e *entry) {
	target := e.rec.RevisesStep
	if target <= 0 {
		return
	}
	list := s.revisedBy[target]
	for i, candidate := range list {
		if candidate == e {
			s.revisedBy[target] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(s.revisedBy[target]) == 0 {
		delete(s.revisedBy, target)
	}
}

// ordered returns records filtered by branch ("" for all) in ascending
// step order, ties broken by insertion order.
func (s *session) ordered(branch string) []*models.ThoughtRecord {
	out := make([]*models.ThoughtRecord, 0, len(s.entries))
	for _, e := range s.entries {
		if branch != "" && e.rec.Branch() != branch {
			continue
		}
		out = append(out, e.rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StepNumber < out[j].StepNumber
	})
	return out
}

// predecessor returns the record with the largest step number below step
// in the same branch.
func (s *session) predecessor(branch string, step int) *entry {
	steps := s.branchSteps[branch]
	i := sort.SearchInts(steps, step)
	if i == 0 {
		return nil
	}
	return s.byKey[stepKey{branch: branch, step: steps[i-1]}]
}

// forkParent resolves the record a branch was forked from: the fork step
// in the default branch when present, otherwise the latest record with that
// step number in another branch.
func (s *session) forkParent(branch string) *entry {
	fork, ok := s.forks[branch]
	if !ok || fork <= 0 {
		return nil
	}
	if branch != models.DefaultBranch {
		if e, ok := s.byKey[stepKey{branch: models.DefaultBranch, step: fork}]; ok {
			return e
		}
	}
	if e, ok := s.byStep[fork]; ok && e.rec.Branch() != branch {
		return e
	}
	var best *entry
	for _, e := range s.entries {
		if e.rec.StepNumber == fork && e.rec.Branch() != branch {
			if best == nil || e.seq > best.seq {
				best = e
			}
		}
	}
	return best
}

func (s *session) info() models.SessionInfo {
	branches := make([]string, len(s.branchOrder))
	copy(branches, s.branchOrder)
	return models.SessionInfo{
		ID:          s.id,
		CreatedAt:   s.createdAt,
		LastAccess:  s.lastAccessTime(),
		Branches:    branches,
		StepCount:   len(s.entries),
		BranchCount: len(s.branchOrder),
		Tokens:      s.tokens,
	}
}
