package service

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const minPasswordLength = 8

// BreachChecker reports whether a password appears in a known data leak.
type BreachChecker interface {
	IsBreached(ctx context.Context, password string) (bool, error)
}

// PwnedClient queries a k-anonymity range API: only the first five hex
// characters of the SHA-1 hash leave the process.
type PwnedClient struct {
	httpClient *resty.Client
}

// NewPwnedClient creates a client for the range API at baseURL.
func NewPwnedClient(baseURL string) *PwnedClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5*time.Second).
		SetRetryCount(1).
		SetHeader("Add-Padding", "true").
		SetHeader("User-Agent", "backoffice-password-policy")

	return &PwnedClient{httpClient: client}
}

func (c *PwnedClient) IsBreached(ctx context.Context, password string) (bool, error) {
	sum := sha1.Sum([]byte(password))
	hash := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := hash[:5], hash[5:]

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get("/range/" + prefix)
	if err != nil {
		return false, fmt.Errorf("failed to call range API: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("range API returned status %d", resp.StatusCode())
	}

	scanner := bufio.NewScanner(strings.NewReader(resp.String()))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		candidate, count, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(candidate, suffix) {
			continue
		}
		// padded responses carry fake suffixes with a zero count
		return strings.TrimSpace(count) != "0", nil
	}
	return false, scanner.Err()
}

// passwordPolicy enforces length, mixed case, digits, symbols and the breach check.
type passwordPolicy struct {
	checker BreachChecker
	logger  *zap.Logger
}

func newPasswordPolicy(checker BreachChecker, logger *zap.Logger) passwordPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return passwordPolicy{checker: checker, logger: logger}
}

// Check returns the broken rules of password under field. An unreachable
// breach service does not fail the check.
func (p passwordPolicy) Check(ctx context.Context, field, password string) *ValidationError {
	verr := NewValidationError()
	attr := attributeName(field)

	if password == "" {
		verr.Add(field, fmt.Sprintf("The %s field is required.", attr))
		return verr
	}
	if len([]rune(password)) < minPasswordLength {
		verr.Add(field, fmt.Sprintf("The %s field must be at least %d characters.", attr, minPasswordLength))
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			symbol = true
		}
	}
	if !upper || !lower {
		verr.Add(field, fmt.Sprintf("The %s field must contain at least one uppercase and one lowercase letter.", attr))
	}
	if !digit {
		verr.Add(field, fmt.Sprintf("The %s field must contain at least one number.", attr))
	}
	if !symbol {
		verr.Add(field, fmt.Sprintf("The %s field must contain at least one symbol.", attr))
	}
	if !verr.Empty() || p.checker == nil {
		return verr
	}

	breached, err := p.checker.IsBreached(ctx, password)
	if err != nil {
		p.logger.Warn("Password breach check unavailable, skipping", zap.Error(err))
		return verr
	}
	if breached {
		verr.Add(field, fmt.Sprintf("The given %s has appeared in a data leak. Please choose a different %s.", attr, attr))
	}
	return verr
}
