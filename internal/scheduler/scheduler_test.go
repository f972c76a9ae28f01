package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSweeper struct {
	calls int
	err   error
}

func (s *stubSweeper) ExpireSweep(context.Context) (int, error) {
	s.calls++
	return 2, s.err
}

type stubPurger struct{ calls int }

func (s *stubPurger) PurgeExpiredTokens(context.Context) (int64, error) {
	s.calls++
	return 5, nil
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantJobs int
		wantErr  bool
	}{
		{"both jobs", Config{AssociationExpiry: "5 0 * * *", TokenPurge: "30 3 * * *"}, 2, false},
		{"purge disabled", Config{AssociationExpiry: "5 0 * * *"}, 1, false},
		{"invalid spec", Config{AssociationExpiry: "every day"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, &stubSweeper{}, &stubPurger{}, zap.NewNop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, s.cron.Entries(), tt.wantJobs)
		})
	}
}

func TestJobsCallThrough(t *testing.T) {
	sweeper := &stubSweeper{}
	purger := &stubPurger{}
	s, err := New(Config{}, sweeper, purger, zap.NewNop())
	require.NoError(t, err)

	s.expireAssociationTypes()
	s.purgeRefreshTokens()
	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, 1, purger.calls)

	// failures are logged, never panic
	sweeper.err = errors.New("db down")
	assert.NotPanics(t, s.expireAssociationTypes)
}
