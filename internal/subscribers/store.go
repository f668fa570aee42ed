// Package subscribers keeps the storefront's marketing email list in a flat JSON file.
package subscribers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidEmail is returned for addresses that fail validation.
var ErrInvalidEmail = errors.New("invalid email address")

type Subscriber struct {
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// Store serialises access to the file. One Store per file per process.
type Store struct {
	mu       sync.Mutex
	path     string
	validate *validator.Validate
	now      func() time.Time
}

func NewStore(path string) *Store {
	return &Store{path: path, validate: validator.New(), now: time.Now}
}

// Add records email. It reports false when the address was already on the list.
func (s *Store) Add(email string) (Subscriber, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email,max=254"); err != nil {
		return Subscriber{}, false, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return Subscriber{}, false, err
	}
	for _, sub := range list {
		if sub.Email == email {
			return sub, false, nil
		}
	}

	sub := Subscriber{Email: email, SubscribedAt: s.now().UTC()}
	list = append(list, sub)
	if err := s.save(list); err != nil {
		return Subscriber{}, false, err
	}
	return sub, true, nil
}

// List returns every subscriber, oldest first.
func (s *Store) List() ([]Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].SubscribedAt.Before(list[j].SubscribedAt) })
	return list, nil
}

func (s *Store) load() ([]Subscriber, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Subscriber{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read subscriber file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []Subscriber{}, nil
	}
	var list []Subscriber
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse subscriber file %s: %w", s.path, err)
	}
	return list, nil
}

// save writes through a temp file and rename so a crash never leaves half a file.
func (s *Store) save(list []Subscriber) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create subscriber directory: %w", err)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode subscribers: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".subscribers-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write subscribers: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace subscriber file: %w", err)
	}
	return nil
}
