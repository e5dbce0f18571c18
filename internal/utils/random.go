package utils

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shift-tracker/backend/internal/domain"
)

// GenerateRandomOTP returns six digits from crypto/rand.
func GenerateRandomOTP() (string, error) {
	n, err := crand.Int(crand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// GenerateAPIToken returns a fresh random token for web and calendar access.
func GenerateAPIToken() string {
	return uuid.NewString()
}

func pick(options []string) *string {
	if len(options) == 0 || rand.Intn(5) == 0 {
		return nil
	}
	v := options[rand.Intn(len(options))]
	return &v
}

// GenerateRandomShift builds a plausible shift within the last 90 days. Every field has a
// small chance of being absent, like a real skipped prompt.
func GenerateRandomShift(userID int64, roles, programs []string, now time.Time) *domain.Shift {
	s := &domain.Shift{
		UserID:  userID,
		Role:    pick(roles),
		Program: pick(programs),
	}

	if rand.Intn(10) > 0 {
		d := domain.DateOf(now).AddDays(-rand.Intn(90))
		s.Date = &d
	}

	startHour := rand.Intn(20)
	start := fmt.Sprintf("%02d:%02d", startHour, rand.Intn(4)*15)
	end := fmt.Sprintf("%02d:%02d", startHour+rand.Intn(24-startHour), rand.Intn(4)*15)
	s.StartTime = &start
	s.EndTime = &end

	if rand.Intn(10) > 0 {
		salary := int64(rand.Intn(40)+1) * 500
		s.Salary = &salary
	}

	return s
}
