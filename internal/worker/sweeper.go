/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tapx-earn-go/internal/models"

	"go.uber.org/zap"
)

// SweepFunc matches LedgerService.Sweep
type SweepFunc func(ctx context.Context) (*models.SweepResult, int, error)

// SweeperConfig contains configuration for Sweeper
type SweeperConfig struct {
	Sweep    SweepFunc
	Interval time.Duration
}

// Sweeper periodically downgrades expired VIPs and reconciles missed
// referral bonuses.
type Sweeper struct {
	sweep    SweepFunc
	interval time.Duration

	mutex   sync.Mutex
	lastRun time.Time
	runs    int

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func NewSweeper(cfg SweeperConfig) *Sweeper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		sweep:    cfg.Sweep,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs a recovery sweep and then keeps sweeping every interval until
// Stop is called or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.sweep == nil {
		return fmt.Errorf("sweeper has no sweep function")
	}
	zap.L().Info("Starting expiry sweeper", zap.Duration("interval", s.interval))

	// Catch up on anything that expired while we were down
	if err := s.RunOnce(ctx); err != nil {
		zap.L().Warn("Startup sweep failed", zap.Error(err))
	}

	go s.loop(ctx)
	return nil
}

// Stop gracefully stops the sweeper
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		zap.L().Info("Stopping expiry sweeper")
		close(s.stopChan)
		<-s.doneChan
		zap.L().Info("Expiry sweeper stopped")
	})
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				zap.L().Error("Sweep failed", zap.Error(err))
			}
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs a single sweep
func (s *Sweeper) RunOnce(ctx context.Context) error {
	start := time.Now()
	result, credited, err := s.sweep(ctx)

	s.mutex.Lock()
	s.lastRun = start
	s.runs++
	s.mutex.Unlock()

	if err != nil {
		return err
	}
	if result.Downgraded > 0 || result.Failed > 0 || credited > 0 {
		zap.L().Info("Sweep completed",
			zap.Int("scanned", result.Scanned),
			zap.Int("downgraded", result.Downgraded),
			zap.Int("failed", result.Failed),
			zap.Int("referrals_credited", credited),
			zap.Duration("took", time.Since(start)))
	}
	return nil
}

// Runs reports how many sweeps have been attempted and when the last began
func (s *Sweeper) Runs() (int, time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.runs, s.lastRun
}
