package purge

import (
	"context"
	"log/slog"
	"time"

	"github.com/forkful/api/internal/domain"
)

// Sweeper permanently removes accounts whose deletion grace period has
// elapsed. Sweep is a pure pass over the eligible set: the scheduler decides
// when it runs, and tests call it directly.
type Sweeper struct {
	accounts    accountStore
	reviews     reviewStore
	favorites   favoriteStore
	sessions    sessionStore
	images      objectStore
	gracePeriod time.Duration
	now         func() time.Time
}

type accountStore interface {
	QueryPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Account, error)
	ClaimForPurge(ctx context.Context, accountID string, cutoff time.Time) (bool, error)
	ScrubPII(ctx context.Context, accountID string) error
}

type reviewStore interface {
	DeleteByAccount(ctx context.Context, accountID string) error
}

type favoriteStore interface {
	DeleteByAccount(ctx context.Context, accountID string) error
}

type sessionStore interface {
	DeleteByAccount(ctx context.Context, accountID string) error
}

type objectStore interface {
	Delete(ctx context.Context, key string) error
}

type SweeperDeps struct {
	AccountRepo  accountStore
	ReviewRepo   reviewStore
	FavoriteRepo favoriteStore
	SessionRepo  sessionStore
	Images       objectStore
	GracePeriod  time.Duration
	Now          func() time.Time // defaults to time.Now
}

func NewSweeper(deps SweeperDeps) *Sweeper {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		accounts:    deps.AccountRepo,
		reviews:     deps.ReviewRepo,
		favorites:   deps.FavoriteRepo,
		sessions:    deps.SessionRepo,
		images:      deps.Images,
		gracePeriod: deps.GracePeriod,
		now:         now,
	}
}

// Sweep purges every account whose grace period elapsed before now. Each
// account is claimed with a single conditional status update before any data
// is touched, so overlapping sweeps (restart mid-run, second instance) never
// process the same account twice. A failure on one account is logged and the
// pass moves on; a failed pass as a whole is simply retried by the next run.
func (s *Sweeper) Sweep(ctx context.Context) (domain.SweepResult, error) {
	ranAt := s.now().UTC()
	cutoff := ranAt.Add(-s.gracePeriod)
	result := domain.SweepResult{RanAt: ranAt}

	candidates, err := s.accounts.QueryPendingBefore(ctx, cutoff)
	if err != nil {
		return result, err
	}

	for _, a := range candidates {
		claimed, err := s.accounts.ClaimForPurge(ctx, a.AccountID, cutoff)
		if err != nil {
			slog.Error("purge claim failed", "account_id", a.AccountID, "err", err)
			result.Failed++
			continue
		}
		if !claimed {
			// Recovered, or another sweep got here first.
			continue
		}
		if err := s.eraseOwnedData(ctx, &a); err != nil {
			slog.Error("purge cascade failed", "account_id", a.AccountID, "err", err)
			result.Failed++
			continue
		}
		result.Purged++
	}

	slog.Info("purge sweep finished",
		"purged", result.Purged, "failed", result.Failed, "candidates", len(candidates))
	return result, nil
}

func (s *Sweeper) eraseOwnedData(ctx context.Context, a *domain.Account) error {
	if err := s.reviews.DeleteByAccount(ctx, a.AccountID); err != nil {
		return err
	}
	if err := s.favorites.DeleteByAccount(ctx, a.AccountID); err != nil {
		return err
	}
	if err := s.sessions.DeleteByAccount(ctx, a.AccountID); err != nil {
		return err
	}
	if a.AvatarKey != "" {
		if err := s.images.Delete(ctx, a.AvatarKey); err != nil {
			// The tombstone loses its pointer to the object either way; don't
			// fail the account purge over an orphaned image.
			slog.Warn("could not delete avatar object", "account_id", a.AccountID, "key", a.AvatarKey, "err", err)
		}
	}
	return s.accounts.ScrubPII(ctx, a.AccountID)
}
