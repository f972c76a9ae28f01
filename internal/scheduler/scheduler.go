// Package scheduler runs the periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ExpirySweeper deactivates association types whose validity has lapsed.
type ExpirySweeper interface {
	ExpireSweep(ctx context.Context) (int, error)
}

// TokenPurger removes refresh tokens past their expiry.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

type Config struct {
	AssociationExpiry string
	TokenPurge        string
	JobTimeout        time.Duration
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper ExpirySweeper
	purger  TokenPurger
	timeout time.Duration
	logger  *zap.Logger
}

// New registers the jobs; an empty spec disables that job.
func New(cfg Config, sweeper ExpirySweeper, purger TokenPurger, logger *zap.Logger) (*Scheduler, error) {
	if cfg.JobTimeout == 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper: sweeper,
		purger:  purger,
		timeout: cfg.JobTimeout,
		logger:  logger,
	}

	if cfg.AssociationExpiry != "" {
		if _, err := s.cron.AddFunc(cfg.AssociationExpiry, s.expireAssociationTypes); err != nil {
			return nil, fmt.Errorf("invalid association expiry schedule %q: %w", cfg.AssociationExpiry, err)
		}
	}
	if cfg.TokenPurge != "" {
		if _, err := s.cron.AddFunc(cfg.TokenPurge, s.purgeRefreshTokens); err != nil {
			return nil, fmt.Errorf("invalid token purge schedule %q: %w", cfg.TokenPurge, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stopped before running jobs finished")
	}
}

func (s *Scheduler) expireAssociationTypes() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.sweeper.ExpireSweep(ctx)
	if err != nil {
		s.logger.Error("Association type expiry sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("Association type expiry sweep finished", zap.Int("deactivated", n))
}

func (s *Scheduler) purgeRefreshTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.purger.PurgeExpiredTokens(ctx)
	if err != nil {
		s.logger.Error("Refresh token purge failed", zap.Error(err))
		return
	}
	s.logger.Info("Expired refresh tokens purged", zap.Int64("deleted", n))
}
