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

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"tapx-earn-go/internal/api"
	"tapx-earn-go/internal/bot"
	"tapx-earn-go/internal/common"
	"tapx-earn-go/internal/config"
	"tapx-earn-go/internal/worker"

	"go.uber.org/zap"
)

func main() {
	noBot := flag.Bool("no-bot", false, "Do not start the Telegram long-polling bot (notifications are still sent)")
	noSweeper := flag.Bool("no-sweeper", false, "Do not run the periodic VIP expiry sweep")
	flag.Parse()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting tap-to-earn server", zap.String("addr", cfg.Server.Addr))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if cfg.App.AdminKey == "" {
		zap.L().Warn("ADMIN_API_KEY is not set, admin routes are disabled")
	}

	handler := api.NewHandler(services.Ledger, api.HTTPConfig{
		AdminKey:       cfg.App.AdminKey,
		BotToken:       cfg.Bot.Token,
		InitDataMaxAge: cfg.Server.InitDataMaxAge,
	})
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var sweeper *worker.Sweeper
	if !*noSweeper {
		sweeper = worker.NewSweeper(worker.SweeperConfig{
			Sweep:    services.Ledger.Sweep,
			Interval: cfg.Worker.SweepInterval,
		})
		if err := sweeper.Start(ctx); err != nil {
			zap.L().Fatal("Failed to start sweeper", zap.Error(err))
		}
	}

	var tgBot *bot.Bot
	if services.Telegram != nil && !*noBot {
		tgBot = bot.NewBot(services.Telegram, cfg.Bot.WebAppURL, services.Ledger)
		if err := tgBot.Start(ctx); err != nil {
			zap.L().Error("Failed to start Telegram bot", zap.Error(err))
			tgBot = nil
		}
	}

	zap.L().Info("Server running", zap.Bool("bot", tgBot != nil), zap.Bool("sweeper", sweeper != nil))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		zap.L().Info("Shutdown signal received, stopping...")
	case err := <-serverErr:
		zap.L().Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("HTTP shutdown error", zap.Error(err))
			}
		}()
		if tgBot != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tgBot.Stop()
			}()
		}
		if sweeper != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sweeper.Stop()
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
