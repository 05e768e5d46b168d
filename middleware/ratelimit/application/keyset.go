package application

import "sync/atomic"

// KeySet é o conjunto de API keys válidas. Replace troca o conjunto inteiro
// de forma atômica (recarga de config) sem bloquear quem está lendo.
type KeySet struct {
	keys atomic.Pointer[map[string]struct{}]
}

func NewKeySet(keys []string) *KeySet {
	s := &KeySet{}
	s.Replace(keys)
	return s
}

func (s *KeySet) Replace(keys []string) {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		m[k] = struct{}{}
	}
	s.keys.Store(&m)
}

// Contains compara por igualdade exata.
func (s *KeySet) Contains(key string) bool {
	m := s.keys.Load()
	if m == nil {
		return false
	}
	_, ok := (*m)[key]
	return ok
}

func (s *KeySet) Len() int {
	m := s.keys.Load()
	if m == nil {
		return 0
	}
	return len(*m)
}
