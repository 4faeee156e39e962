package adsession

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
	"github.com/mmuslimabdulj/persona-chat/internal/ledger"
	"github.com/mmuslimabdulj/persona-chat/internal/logging"
	"github.com/mmuslimabdulj/persona-chat/internal/storage"
)

var testRules = Rules{MinWatchSeconds: 13, BonusCredits: 10, RevenueMinCents: 1, RevenueMaxCents: 5}

func setupMachine(t *testing.T) (*Machine, *ledger.Ledger) {
	t.Helper()

	db, err := storage.Open(storage.MemoryPath, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })
	require.NoError(t, ledger.Migrate(db))
	require.NoError(t, Migrate(db))

	log := logging.Discard()
	l := ledger.New(db, ledger.Credits{InitialFree: 5, SignupBonus: 10, AdMinWatchSeconds: 13}, log)
	m := New(db, l, testRules, log)
	m.revenue = func(lo, hi int) int { return 3 }
	return m, l
}

func TestStart(t *testing.T) {
	m, _ := setupMachine(t)

	s, err := m.Start(context.Background(), domain.Identity{AnonID: "anon_a"}, Metadata{UserAgent: "test-agent", IP: "10.0.0.1"})
	require.NoError(t, err)
	require.Equal(t, domain.AdStarted, s.Status)
	require.Len(t, s.ID, len("ad_")+16)

	stored, err := m.Get(context.Background(), s.ID)
	require.NoError(t, err)
	require.Equal(t, "test-agent", stored.UserAgent)
	require.Equal(t, "10.0.0.1", stored.IP)
}

func TestStart_RequiresIdentity(t *testing.T) {
	m, _ := setupMachine(t)

	_, err := m.Start(context.Background(), domain.Identity{}, Metadata{})
	require.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestComplete_UnknownSession(t *testing.T) {
	m, _ := setupMachine(t)

	_, err := m.Complete(context.Background(), "ad_missing", 30)
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestComplete_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name    string
		watched int
		awarded bool
		credits int
		status  domain.AdStatus
	}{
		{"one second short", 12, false, 5, domain.AdCanceled},
		{"exactly threshold", 13, true, 15, domain.AdCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := setupMachine(t)
			ctx := context.Background()
			s, err := m.Start(ctx, domain.Identity{AnonID: "anon_b"}, Metadata{})
			require.NoError(t, err)

			out, err := m.Complete(ctx, s.ID, tt.watched)
			require.NoError(t, err)
			require.Equal(t, tt.awarded, out.Awarded)
			require.Equal(t, tt.credits, out.CreditsRemaining)

			stored, err := m.Get(ctx, s.ID)
			require.NoError(t, err)
			require.Equal(t, tt.status, stored.Status)
			require.Equal(t, tt.watched, stored.WatchedSeconds)
			require.NotNil(t, stored.CompletedAt)
		})
	}
}

func TestComplete_ReplayIsIdempotent(t *testing.T) {
	m, l := setupMachine(t)
	ctx := context.Background()
	s, err := m.Start(ctx, domain.Identity{AnonID: "anon_c"}, Metadata{})
	require.NoError(t, err)

	first, err := m.Complete(ctx, s.ID, 13)
	require.NoError(t, err)
	require.True(t, first.Awarded)
	require.Equal(t, 15, first.CreditsRemaining)
	require.InDelta(t, 0.03, first.RevenueUSD(), 1e-9)

	m.revenue = func(lo, hi int) int { return 5 }
	second, err := m.Complete(ctx, s.ID, 1)
	require.NoError(t, err)
	require.Equal(t, first, second)

	acc, _, err := l.GetOrCreate(ctx, domain.Identity{AnonID: "anon_c"})
	require.NoError(t, err)
	require.Equal(t, 15, acc.CreditsRemaining)
	require.Equal(t, 1, acc.TotalAdsViewed)
	require.Equal(t, 3, acc.TotalRevenueCents)
}

func TestComplete_CanceledStaysCanceled(t *testing.T) {
	m, _ := setupMachine(t)
	ctx := context.Background()
	s, err := m.Start(ctx, domain.Identity{AnonID: "anon_d"}, Metadata{})
	require.NoError(t, err)

	first, err := m.Complete(ctx, s.ID, 2)
	require.NoError(t, err)
	require.False(t, first.Awarded)

	second, err := m.Complete(ctx, s.ID, 60)
	require.NoError(t, err)
	require.False(t, second.Awarded)
	require.Equal(t, 5, second.CreditsRemaining)

	stored, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AdCanceled, stored.Status)
	require.Equal(t, 2, stored.WatchedSeconds)
}

func TestComplete_ConcurrentReplayAwardsOnce(t *testing.T) {
	m, l := setupMachine(t)
	ctx := context.Background()
	s, err := m.Start(ctx, domain.Identity{AnonID: "anon_e"}, Metadata{})
	require.NoError(t, err)

	const callers = 6
	outcomes := make([]Outcome, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := m.Complete(ctx, s.ID, 20)
			if err != nil {
				t.Errorf("complete failed: %v", err)
				return
			}
			outcomes[i] = out
		}()
	}
	wg.Wait()

	for _, out := range outcomes {
		require.True(t, out.Awarded)
		require.Equal(t, 15, out.CreditsRemaining)
	}

	acc, _, err := l.GetOrCreate(ctx, domain.Identity{AnonID: "anon_e"})
	require.NoError(t, err)
	require.Equal(t, 15, acc.CreditsRemaining)
	require.Equal(t, 1, acc.TotalAdsViewed)
}
