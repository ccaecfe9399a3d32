// Package memkv keeps the store's keys in process memory only.
package memkv

import (
	"sync"

	"github.com/saber-pedagogico/saber/core/store"
)

type Storage struct {
	data  map[string]string
	mutex sync.RWMutex
}

func New() *Storage {
	return &Storage{data: make(map[string]string)}
}

func (s *Storage) Save(key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data[key] = value
	return nil
}

func (s *Storage) Load(key string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (s *Storage) Remove(key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.data, key)
	return nil
}
