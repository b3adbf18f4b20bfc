package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"
)

// ErrEmailTaken reports a roster insert colliding with an existing user's
// email address.
var ErrEmailTaken = errors.New("email already registered")

// User is a roster entry: who to report to and what to look for.
type User struct {
	ID        string
	Name      string
	Email     string
	Interests []string
	Sites     []string
	CreatedAt time.Time
}

// NewUser validates and normalizes roster input. Interests are lowercased and
// deduplicated; sites are deduplicated verbatim. Both must be non-empty.
func NewUser(name, email string, interests, sites []string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, fmt.Errorf("name is required")
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, fmt.Errorf("invalid email %q: %w", email, err)
	}

	normInterests := normalizeSet(interests, strings.ToLower)
	if len(normInterests) == 0 {
		return User{}, fmt.Errorf("at least one interest is required")
	}

	normSites := normalizeSet(sites, nil)
	if len(normSites) == 0 {
		return User{}, fmt.Errorf("at least one site is required")
	}

	return User{
		Name:      name,
		Email:     email,
		Interests: normInterests,
		Sites:     normSites,
	}, nil
}

func normalizeSet(values []string, transform func(string) string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if transform != nil {
			v = transform(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
