package store

import (
	"sort"
	"sync"
)

// InmemStore keeps descriptors in memory. Nothing survives the process.
type InmemStore struct {
	sync.RWMutex
	descriptors map[string]*Descriptor
	closed      bool
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		descriptors: make(map[string]*Descriptor),
	}
}

// Create implements the Store interface.
func (s *InmemStore) Create(desc *Descriptor) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return closed(desc.Name)
	}
	if _, ok := s.descriptors[desc.Name]; ok {
		return alreadyExists(desc.Name)
	}
	s.descriptors[desc.Name] = desc.Copy()
	return nil
}

// Get implements the Store interface.
func (s *InmemStore) Get(name string) (*Descriptor, error) {
	s.RLock()
	defer s.RUnlock()

	if s.closed {
		return nil, closed(name)
	}
	desc, ok := s.descriptors[name]
	if !ok {
		return nil, notFound(name)
	}
	return desc.Copy(), nil
}

// Delete implements the Store interface.
func (s *InmemStore) Delete(name string) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return closed(name)
	}
	if _, ok := s.descriptors[name]; !ok {
		return notFound(name)
	}
	delete(s.descriptors, name)
	return nil
}

// List implements the Store interface.
func (s *InmemStore) List() ([]string, error) {
	s.RLock()
	defer s.RUnlock()

	if s.closed {
		return nil, closed("")
	}
	names := make([]string, 0, len(s.descriptors))
	for name := range s.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	return nil
}
