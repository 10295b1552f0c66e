package domain

import (
	"encoding/json"
	"slices"
)

// ReadSet: множество пользователей, прочитавших сообщение. Только растёт.
type ReadSet map[string]struct{}

func NewReadSet(ids ...string) ReadSet {
	s := make(ReadSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add возвращает true, если id добавлен впервые.
func (s *ReadSet) Add(id string) bool {
	if id == "" {
		return false
	}
	if *s == nil {
		*s = make(ReadSet)
	}
	if _, ok := (*s)[id]; ok {
		return false
	}
	(*s)[id] = struct{}{}
	return true
}

func (s ReadSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s ReadSet) Len() int { return len(s) }

func (s ReadSet) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s ReadSet) Clone() ReadSet {
	out := make(ReadSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

func (s ReadSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *ReadSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewReadSet(ids...)
	return nil
}
