package purge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forkful/api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) QueryPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Account, error) {
	args := m.Called(ctx, cutoff)
	if accounts, _ := args.Get(0).([]domain.Account); accounts != nil {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) ClaimForPurge(ctx context.Context, accountID string, cutoff time.Time) (bool, error) {
	args := m.Called(ctx, accountID, cutoff)
	return args.Bool(0), args.Error(1)
}
func (m *mockAccountStore) ScrubPII(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

type mockOwnedStore struct{ mock.Mock }

func (m *mockOwnedStore) DeleteByAccount(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

type mockObjectStore struct{ mock.Mock }

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// --- builder ---

const grace = 30 * 24 * time.Hour

type fixture struct {
	accounts  *mockAccountStore
	reviews   *mockOwnedStore
	favorites *mockOwnedStore
	sessions  *mockOwnedStore
	images    *mockObjectStore
	sweeper   *Sweeper
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		accounts:  &mockAccountStore{},
		reviews:   &mockOwnedStore{},
		favorites: &mockOwnedStore{},
		sessions:  &mockOwnedStore{},
		images:    &mockObjectStore{},
	}
	f.sweeper = NewSweeper(SweeperDeps{
		AccountRepo:  f.accounts,
		ReviewRepo:   f.reviews,
		FavoriteRepo: f.favorites,
		SessionRepo:  f.sessions,
		Images:       f.images,
		GracePeriod:  grace,
		Now:          func() time.Time { return now },
	})
	return f
}

func (f *fixture) expectCascade(accountID string) {
	f.reviews.On("DeleteByAccount", mock.Anything, accountID).Return(nil)
	f.favorites.On("DeleteByAccount", mock.Anything, accountID).Return(nil)
	f.sessions.On("DeleteByAccount", mock.Anything, accountID).Return(nil)
	f.accounts.On("ScrubPII", mock.Anything, accountID).Return(nil)
}

// --- tests ---

func TestSweep_UsesGracePeriodCutoff(t *testing.T) {
	now := time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC)
	f := newFixture(now)
	f.accounts.On("QueryPendingBefore", mock.Anything, now.Add(-grace)).Return([]domain.Account{}, nil)

	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Purged)
	f.accounts.AssertExpectations(t)
}

func TestSweep_PurgesEligibleAccount(t *testing.T) {
	now := time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC)
	f := newFixture(now)
	cutoff := now.Add(-grace)

	f.accounts.On("QueryPendingBefore", mock.Anything, cutoff).Return([]domain.Account{
		{AccountID: "a1", Status: domain.StatusPendingDeletion, AvatarKey: "avatars/a1.png"},
	}, nil)
	f.accounts.On("ClaimForPurge", mock.Anything, "a1", cutoff).Return(true, nil)
	f.expectCascade("a1")
	f.images.On("Delete", mock.Anything, "avatars/a1.png").Return(nil)

	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Purged)
	assert.Equal(t, 0, result.Failed)
	f.accounts.AssertExpectations(t)
	f.reviews.AssertExpectations(t)
	f.favorites.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
	f.images.AssertExpectations(t)
}

func TestSweep_LostClaim_SkippedWithoutCascade(t *testing.T) {
	// A concurrent sweep (or a last-second recovery) already changed the
	// status; the conditional claim loses and the account is left alone.
	now := time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC)
	f := newFixture(now)
	cutoff := now.Add(-grace)

	f.accounts.On("QueryPendingBefore", mock.Anything, cutoff).Return([]domain.Account{
		{AccountID: "a1", Status: domain.StatusPendingDeletion},
	}, nil)
	f.accounts.On("ClaimForPurge", mock.Anything, "a1", cutoff).Return(false, nil)

	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Purged)
	assert.Equal(t, 0, result.Failed)
	f.reviews.AssertNotCalled(t, "DeleteByAccount", mock.Anything, mock.Anything)
	f.accounts.AssertNotCalled(t, "ScrubPII", mock.Anything, mock.Anything)
}

func TestSweep_OneFailure_DoesNotAbortBatch(t *testing.T) {
	now := time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC)
	f := newFixture(now)
	cutoff := now.Add(-grace)

	f.accounts.On("QueryPendingBefore", mock.Anything, cutoff).Return([]domain.Account{
		{AccountID: "a1"}, {AccountID: "a2"},
	}, nil)
	f.accounts.On("ClaimForPurge", mock.Anything, "a1", cutoff).Return(true, nil)
	f.reviews.On("DeleteByAccount", mock.Anything, "a1").Return(errors.New("boom"))
	f.accounts.On("ClaimForPurge", mock.Anything, "a2", cutoff).Return(true, nil)
	f.expectCascade("a2")

	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Purged)
	assert.Equal(t, 1, result.Failed)
	f.accounts.AssertExpectations(t)
}

func TestSweep_QueryFailure_ReturnsError(t *testing.T) {
	// A failed pass is recovered by the next scheduled run.
	now := time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC)
	f := newFixture(now)
	f.accounts.On("QueryPendingBefore", mock.Anything, mock.Anything).Return(nil, domain.ErrUnavailable)

	_, err := f.sweeper.Sweep(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
}

func TestSweep_AvatarDeleteFailure_StillPurges(t *testing.T) {
	now := time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC)
	f := newFixture(now)
	cutoff := now.Add(-grace)

	f.accounts.On("QueryPendingBefore", mock.Anything, cutoff).Return([]domain.Account{
		{AccountID: "a1", AvatarKey: "avatars/a1.png"},
	}, nil)
	f.accounts.On("ClaimForPurge", mock.Anything, "a1", cutoff).Return(true, nil)
	f.expectCascade("a1")
	f.images.On("Delete", mock.Anything, "avatars/a1.png").Return(errors.New("s3 down"))

	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Purged)
}
