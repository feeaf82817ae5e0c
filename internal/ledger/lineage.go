package ledger

import (
	"sort"

	"github.com/thebtf/reasonledger/pkg/models"
)

// GetPath returns the lineage of step from the session root, root first.
// Within a branch it descends by step number; at a branch's first record it
// follows the fork back into the parent branch.
func (s *Store) GetPath(sessionID string, step int) []*models.ThoughtRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.lookupLocked(sessionID)
	if sess == nil {
		return []*models.ThoughtRecord{}
	}
	start, ok := sess.byStep[step]
	if !ok {
		return []*models.ThoughtRecord{}
	}
	return sess.path(start)
}

func (s *session) path(start *entry) []*models.ThoughtRecord {
	var reversed []*models.ThoughtRecord
	visited := make(map[*entry]bool)

	for cur := start; cur != nil && !visited[cur]; {
		visited[cur] = true
		reversed = append(reversed, cur.rec)

		branch := cur.rec.Branch()
		if prev := s.predecessor(branch, cur.rec.StepNumber); prev != nil {
			cur = prev
			continue
		}
		cur = s.forkParent(branch)
	}

	out := make([]*models.ThoughtRecord, len(reversed))
	for i, rec := range reversed {
		out[len(reversed)-1-i] = rec
	}
	return out
}

// GetRevisionChain returns rootStep followed by every record that revises
// it, transitively, oldest first.
func (s *Store) GetRevisionChain(sessionID string, rootStep int) []*models.ThoughtRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.lookupLocked(sessionID)
	if sess == nil {
		return []*models.ThoughtRecord{}
	}
	root, ok := sess.byStep[rootStep]
	if !ok {
		return []*models.ThoughtRecord{}
	}

	chain := []*entry{root}
	seen := map[*entry]bool{root: true}
	expanded := map[int]bool{}
	for i := 0; i < len(chain); i++ {
		step := chain[i].rec.StepNumber
		if expanded[step] {
			continue
		}
		expanded[step] = true
		for _, reviser := range sess.revisedBy[step] {
			if !seen[reviser] {
				seen[reviser] = true
				chain = append(chain, reviser)
			}
		}
	}

	sort.SliceStable(chain, func(i, j int) bool {
		ti, tj := chain[i].rec.Timestamp, chain[j].rec.Timestamp
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return chain[i].seq < chain[j].seq
	})

	out := make([]*models.ThoughtRecord, len(chain))
	for i, e := range chain {
		out[i] = e.rec
	}
	return out
}

// CalculateBranchDepth counts the branch hops between step's branch and
// the root branch, including the hop into step's own branch. Steps on the
// default branch have depth 0; unknown steps report 0.
func (s *Store) CalculateBranchDepth(sessionID string, step int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.lookupLocked(sessionID)
	if sess == nil {
		return 0
	}
	start, ok := sess.byStep[step]
	if !ok {
		return 0
	}
	return branchDepth(sess.path(start))
}

func branchDepth(path []*models.ThoughtRecord) int {
	if len(path) == 0 {
		return 0
	}
	depth := 0
	if path[0].Branch() != models.DefaultBranch {
		depth++
	}
	for i := 1; i < len(path); i++ {
		if path[i].Branch() != path[i-1].Branch() {
			depth++
		}
	}
	return depth
}
