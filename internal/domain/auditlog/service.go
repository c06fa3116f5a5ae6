package auditlog

import (
	"context"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/mindful/mindful/internal/domain/user"
	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
)

const (
	recentLimit = 100
	branchLimit = 100
	mergedLimit = 200
)

// UserFinder resolves a search term to a profile.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Service answers compliance queries over the audit trail.
type Service struct {
	repo  Repository
	users UserFinder
}

func NewService(repo Repository, users UserFinder) *Service {
	return &Service{repo: repo, users: users}
}

// Query returns the newest entries platform-wide when term is blank.
// Otherwise it returns entries where term is the actor email or where the
// user registered under term is the target, merged by id and newest first.
func (s *Service) Query(ctx context.Context, viewerRole auth.Role, term string) ([]*Entry, error) {
	if err := auth.Authorize(viewerRole, auth.RoleAdmin); err != nil {
		return nil, err
	}

	term = strings.TrimSpace(term)
	if term == "" {
		entries, err := s.repo.Recent(ctx, recentLimit)
		if err != nil {
			return nil, apperr.Dependency("read audit log", err)
		}
		return entries, nil
	}

	var targetID string
	if u, err := s.users.GetByEmail(ctx, term); err == nil {
		targetID = u.ID
	} else if !apperr.IsNotFound(err) {
		return nil, apperr.Dependency("resolve audit search term", err)
	}

	type result struct {
		entries []*Entry
		err     error
	}
	lookups := []func() ([]*Entry, error){
		func() ([]*Entry, error) { return s.repo.ByActorEmail(ctx, term, branchLimit) },
	}
	if targetID != "" {
		lookups = append(lookups, func() ([]*Entry, error) { return s.repo.ByTargetID(ctx, targetID, branchLimit) })
	}

	results := make([]chan result, len(lookups))
	for i, fn := range lookups {
		results[i] = make(chan result, 1)
		go func(fn func() ([]*Entry, error), out chan<- result) {
			entries, err := fn()
			out <- result{entries: entries, err: err}
		}(fn, results[i])
	}

	var all []*Entry
	for _, ch := range results {
		r := <-ch
		if r.err != nil {
			return nil, apperr.Dependency("read audit log", r.err)
		}
		all = append(all, r.entries...)
	}

	merged := lo.UniqBy(all, func(e *Entry) string { return e.ID })
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})
	if len(merged) > mergedLimit {
		merged = merged[:mergedLimit]
	}
	return merged, nil
}
