package services

import (
	"context"
	"log"
	"time"

	"libr-backend/internal/adapters/persistence/repositories"
)

// TokenCleanupService runs a background goroutine that purges expired
// refresh tokens. Revoked-but-unexpired tokens are kept so reuse of a
// rotated token can still be detected.
type TokenCleanupService struct {
	refreshTokenRepo repositories.RefreshTokenRepository
	interval         time.Duration
	stopChan         chan struct{}
}

// NewTokenCleanupService creates a new cleanup service
func NewTokenCleanupService(refreshTokenRepo repositories.RefreshTokenRepository) *TokenCleanupService {
	return &TokenCleanupService{
		refreshTokenRepo: refreshTokenRepo,
		interval:         6 * time.Hour,
		stopChan:         make(chan struct{}),
	}
}

// Start launches the cleanup loop
func (s *TokenCleanupService) Start() {
	log.Println("🚀 TokenCleanupService started")
	go s.runCleanupLoop()
}

// Stop gracefully stops the cleanup loop
func (s *TokenCleanupService) Stop() {
	close(s.stopChan)
	log.Println("🛑 TokenCleanupService stopped")
}

func (s *TokenCleanupService) runCleanupLoop() {
	// One pass at startup, then on the ticker
	s.cleanup()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *TokenCleanupService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.refreshTokenRepo.DeleteExpired(ctx); err != nil {
		log.Printf("❌ Expired token cleanup error: %v", err)
	}
}
