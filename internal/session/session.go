// Package session keeps each operator's configured hosts and folder
// selections. Nothing here is shared between sessions.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/user/thermaldash/internal/browse"
)

// ErrHostIndex means a host index outside the configured list.
var ErrHostIndex = errors.New("host index out of range")

// Session is the state of one browser session.
type Session struct {
	ID         string
	Hosts      []string
	Selections map[int]browse.Selection // keyed by host index
	LastSeen   time.Time
}

func newSession(id string, hosts []string, now time.Time) *Session {
	return &Session{
		ID:         id,
		Hosts:      append([]string(nil), hosts...),
		Selections: make(map[int]browse.Selection),
		LastSeen:   now,
	}
}

func (s *Session) checkIndex(i int) error {
	if i < 0 || i >= len(s.Hosts) {
		return fmt.Errorf("%w: %d (have %d)", ErrHostIndex, i, len(s.Hosts))
	}
	return nil
}

// AddHost appends a placeholder host entry and returns its index.
func (s *Session) AddHost() int {
	s.Hosts = append(s.Hosts, fmt.Sprintf("Address %d", len(s.Hosts)+1))
	return len(s.Hosts) - 1
}

// SetHost changes the address of host i. A different address drops its selection.
func (s *Session) SetHost(i int, addr string) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	addr = strings.TrimSpace(addr)
	if s.Hosts[i] != addr {
		delete(s.Selections, i)
	}
	s.Hosts[i] = addr
	return nil
}

// RemoveHost deletes host i. Selections of later hosts move down with them.
func (s *Session) RemoveHost(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.Hosts = append(s.Hosts[:i], s.Hosts[i+1:]...)

	shifted := make(map[int]browse.Selection, len(s.Selections))
	for idx, sel := range s.Selections {
		switch {
		case idx < i:
			shifted[idx] = sel
		case idx > i:
			shifted[idx-1] = sel
		}
	}
	s.Selections = shifted
	return nil
}

// Selection returns the stored choice for host i.
func (s *Session) Selection(i int) browse.Selection {
	return s.Selections[i]
}

// Select stores a new choice for host i. Changing an upper level clears the
// levels below it, so a device from another date never leaks through.
func (s *Session) Select(i int, next browse.Selection) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	prev := s.Selections[i]
	if next.Date != prev.Date {
		next.Device, next.Serial = "", ""
	} else if next.Device != prev.Device {
		next.Serial = ""
	}
	s.Selections[i] = next
	return nil
}

// Host returns the address of host i.
func (s *Session) Host(i int) (string, error) {
	if err := s.checkIndex(i); err != nil {
		return "", err
	}
	return s.Hosts[i], nil
}

// Snapshot copies the session so callers can read it without the store lock.
func (s *Session) Snapshot() *Session {
	cp := &Session{
		ID:         s.ID,
		Hosts:      append([]string(nil), s.Hosts...),
		Selections: make(map[int]browse.Selection, len(s.Selections)),
		LastSeen:   s.LastSeen,
	}
	for k, v := range s.Selections {
		cp.Selections[k] = v
	}
	return cp
}
