package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SMSService sends pick reminder texts before the weekly lock.
type SMSService interface {
	SendMessage(phoneNumber, message string) error
}

// MockSMSService for development: logs instead of sending.
type MockSMSService struct{}

func NewMockSMSService() *MockSMSService {
	return &MockSMSService{}
}

func (s *MockSMSService) SendMessage(phoneNumber, message string) error {
	logrus.Infof("MOCK SMS to %s: %s", phoneNumber, message)
	return nil
}

// SMSRateLimiter caps reminder volume per phone number so a cron misfire
// can't spam anyone.
type SMSRateLimiter struct {
	mu          sync.Mutex
	requests    map[string][]time.Time
	maxRequests int
	window      time.Duration
}

func NewSMSRateLimiter(maxRequests int, window time.Duration) *SMSRateLimiter {
	return &SMSRateLimiter{
		requests:    make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
	}
}

// Allow records a send attempt, rejecting it when the window is exhausted.
func (rl *SMSRateLimiter) Allow(phoneNumber string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	recent := rl.requests[phoneNumber][:0]
	for _, t := range rl.requests[phoneNumber] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rl.maxRequests {
		rl.requests[phoneNumber] = recent
		return fmt.Errorf("rate limit exceeded: maximum %d SMS per %v", rl.maxRequests, rl.window)
	}

	rl.requests[phoneNumber] = append(recent, now)
	return nil
}
