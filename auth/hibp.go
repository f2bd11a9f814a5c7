package auth

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultHIBPRangeURL is the public Pwned Passwords range endpoint.
	DefaultHIBPRangeURL = "https://api.pwnedpasswords.com/range/"
	hibpUserAgent       = "credvault-pm/0.2"
)

// HIBPResult captures whether a password hash suffix was found in the HIBP dataset.
type HIBPResult struct {
	Found bool
	Count int
}

// BreachChecker queries a Pwned Passwords range API using k-anonymity.
type BreachChecker struct {
	rangeURL string
	client   *http.Client
}

// NewBreachChecker returns a checker for rangeURL. An empty URL selects
// DefaultHIBPRangeURL; a non-positive timeout selects 4s.
func NewBreachChecker(rangeURL string, timeout time.Duration) *BreachChecker {
	if rangeURL == "" {
		rangeURL = DefaultHIBPRangeURL
	}
	if !strings.HasSuffix(rangeURL, "/") {
		rangeURL += "/"
	}
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &BreachChecker{
		rangeURL: rangeURL,
		client:   &http.Client{Timeout: timeout},
	}
}

// Check reports whether pw appears in the breach corpus.
// Only the first five hex characters of SHA-1(pw) are sent. Lines of the
// "SUFFIX:COUNT" response are matched case-insensitively against the rest.
func (c *BreachChecker) Check(ctx context.Context, pw string) (HIBPResult, error) {
	var result HIBPResult

	sum := sha1.Sum([]byte(pw))
	hashHex := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix := hashHex[:5]
	suffix := hashHex[5:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rangeURL+prefix, nil)
	if err != nil {
		return result, fmt.Errorf("hibp request: %w", err)
	}
	req.Header.Set("User-Agent", hibpUserAgent)
	req.Header.Set("Add-Padding", "true")

	resp, err := c.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("hibp query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("hibp query: unexpected status %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		lineSuffix, countStr, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok || !strings.EqualFold(lineSuffix, suffix) {
			continue
		}

		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil {
			return result, fmt.Errorf("hibp parse count: %w", err)
		}
		// Padding entries carry a zero count.
		if count == 0 {
			continue
		}

		result.Found = true
		result.Count = count
		return result, nil
	}

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("hibp read response: %w", err)
	}

	return result, nil
}
