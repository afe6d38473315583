package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"parkspot/internal/domain"
)

// AuditService cross-checks every spot's availability flag against the
// bookings that reference it. The API keeps the two consistent inside one
// transaction; the audit exists for stores written by the pre-transactional
// system, or by anything else with write access.
type AuditService struct {
	repo domain.AuditRepository
}

func NewAuditService(r domain.AuditRepository) *AuditService {
	return &AuditService{repo: r}
}

type AuditReport struct {
	Checked    int
	Mismatched int
	Repaired   int
	Failed     int
}

// Run scans all spots with at most workers concurrent checks. With fix set,
// mismatched flags are repaired by conditional update.
func (s *AuditService) Run(ctx context.Context, workers int, fix bool) (AuditReport, error) {
	if workers <= 0 {
		workers = 1
	}
	ids, err := s.repo.ListSpotIDs(ctx)
	if err != nil {
		return AuditReport{}, err
	}

	var (
		mu  sync.Mutex
		rep = AuditReport{Checked: len(ids)}
		sem = semaphore.NewWeighted(int64(workers))
		wg  sync.WaitGroup
	)
	for _, id := range ids {
		if err := sem.Acquire(ctx, 1); err != nil {
			return rep, err
		}
		wg.Add(1)
		go func(spotID string) {
			defer wg.Done()
			defer sem.Release(1)

			avail, active, err := s.repo.SpotAvailability(ctx, spotID)
			if err != nil {
				log.Warn().Str("spot", spotID).Err(err).Msg("audit check failed")
				mu.Lock()
				rep.Failed++
				mu.Unlock()
				return
			}
			want := active == 0
			if avail == want {
				return
			}

			log.Warn().
				Str("spot", spotID).
				Bool("is_available", avail).
				Int("bookings", active).
				Msg("availability flag disagrees with bookings")
			mu.Lock()
			rep.Mismatched++
			mu.Unlock()

			if !fix {
				return
			}
			changed, err := s.repo.FixAvailability(ctx, spotID, want)
			if err != nil {
				log.Warn().Str("spot", spotID).Err(err).Msg("audit repair failed")
				mu.Lock()
				rep.Failed++
				mu.Unlock()
				return
			}
			if changed {
				log.Info().Str("spot", spotID).Bool("is_available", want).Msg("availability repaired")
				mu.Lock()
				rep.Repaired++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	return rep, nil
}
