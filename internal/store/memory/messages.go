package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

func (s *Store) CreateMessage(_ context.Context, m *domain.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[m.ID]; ok {
		return store.ErrAlreadyExists
	}
	s.seq++
	s.messages[m.ID] = &storedMessage{msg: cloneMessage(*m), seq: s.seq}
	return nil
}

func (s *Store) GetMessages(_ context.Context, ids []string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, 0, len(ids))
	for _, id := range lo.Uniq(ids) {
		if sm, ok := s.messages[id]; ok {
			out = append(out, cloneMessage(sm.msg))
		}
	}
	return out, nil
}

func (s *Store) AddReader(_ context.Context, readerID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		sm, ok := s.messages[id]
		if !ok {
			continue
		}
		sm.msg.ReadBy.Add(readerID)
		sm.msg.Status = domain.MessageRead
	}
	return nil
}

func (s *Store) ListMessages(_ context.Context, q store.MessageQuery) ([]domain.Message, error) {
	s.mu.RLock()
	page := s.filter(func(m *domain.Message) bool {
		if !q.Before.IsZero() && !m.CreatedAt.Before(q.Before) {
			return false
		}
		if q.GroupID != "" {
			return m.Target.Kind == domain.TargetGroup && m.Target.ID == q.GroupID
		}
		return isBetween(m, q.UserA, q.UserB)
	})
	s.mu.RUnlock()

	// newest first, обрезаем, затем разворачиваем в хронологический порядок
	slices.Reverse(page)
	page = capSlice(page, q.Limit)
	slices.Reverse(page)
	return page, nil
}

func (s *Store) CountUnread(_ context.Context, q store.UnreadQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sm := range s.messages {
		if sm.msg.ReadBy.Has(q.ReaderID) {
			continue
		}
		switch {
		case q.GroupID != "":
			if sm.msg.Target.Kind == domain.TargetGroup && sm.msg.Target.ID == q.GroupID {
				n++
			}
		case q.FromUserID != "":
			if sm.msg.IsDirect() && sm.msg.SenderID == q.FromUserID && sm.msg.Target.ID == q.ReaderID {
				n++
			}
		}
	}
	return n, nil
}

func (s *Store) CountUnreadByGroup(_ context.Context, readerID string, groupIDs []string) ([]domain.UnreadCount, error) {
	want := lo.SliceToMap(groupIDs, func(id string) (string, struct{}) { return id, struct{}{} })

	s.mu.RLock()
	counts := make(map[string]int)
	for _, sm := range s.messages {
		m := &sm.msg
		if m.Target.Kind != domain.TargetGroup {
			continue
		}
		if _, ok := want[m.Target.ID]; !ok {
			continue
		}
		if _, seen := counts[m.Target.ID]; !seen {
			counts[m.Target.ID] = 0
		}
		if !m.ReadBy.Has(readerID) {
			counts[m.Target.ID]++
		}
	}
	s.mu.RUnlock()

	return toUnreadCounts(counts), nil
}

func (s *Store) CountUnreadDirect(_ context.Context, readerID string) ([]domain.UnreadCount, error) {
	s.mu.RLock()
	counts := make(map[string]int)
	for _, sm := range s.messages {
		m := &sm.msg
		if m.IsDirect() && m.Target.ID == readerID && !m.ReadBy.Has(readerID) {
			counts[m.SenderID]++
		}
	}
	s.mu.RUnlock()

	return toUnreadCounts(counts), nil
}

func (s *Store) DirectPartners(_ context.Context, userID string, limit int) ([]store.Partner, error) {
	s.mu.RLock()
	byPartner := make(map[string]*store.Partner)
	for _, sm := range s.messages {
		m := &sm.msg
		if !m.IsDirect() || (m.SenderID != userID && m.Target.ID != userID) {
			continue
		}
		other := m.Counterpart(userID)
		p, ok := byPartner[other]
		if !ok {
			p = &store.Partner{UserID: other}
			byPartner[other] = p
		}
		p.MessageCount++
		if m.CreatedAt.After(p.LastMessageAt) {
			p.LastMessageAt = m.CreatedAt
		}
	}
	s.mu.RUnlock()

	out := make([]store.Partner, 0, len(byPartner))
	for _, p := range byPartner {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b store.Partner) int {
		return cmp.Or(b.LastMessageAt.Compare(a.LastMessageAt), cmp.Compare(a.UserID, b.UserID))
	})
	return capSlice(out, limit), nil
}

// filter возвращает копии сообщений в хронологическом порядке. Вызывать под s.mu.
func (s *Store) filter(keep func(m *domain.Message) bool) []domain.Message {
	matched := make([]*storedMessage, 0)
	for _, sm := range s.messages {
		if keep(&sm.msg) {
			matched = append(matched, sm)
		}
	}
	slices.SortFunc(matched, func(a, b *storedMessage) int {
		return cmp.Or(a.msg.CreatedAt.Compare(b.msg.CreatedAt), cmp.Compare(a.seq, b.seq))
	})

	out := make([]domain.Message, len(matched))
	for i, sm := range matched {
		out[i] = cloneMessage(sm.msg)
	}
	return out
}

func isBetween(m *domain.Message, a, b string) bool {
	if !m.IsDirect() {
		return false
	}
	return (m.SenderID == a && m.Target.ID == b) || (m.SenderID == b && m.Target.ID == a)
}

func toUnreadCounts(counts map[string]int) []domain.UnreadCount {
	out := make([]domain.UnreadCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, domain.UnreadCount{ID: id, Unread: n})
	}
	slices.SortFunc(out, func(a, b domain.UnreadCount) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func cloneMessage(m domain.Message) domain.Message {
	m.ReadBy = m.ReadBy.Clone()
	if m.Attachment != nil {
		a := *m.Attachment
		m.Attachment = &a
	}
	return m
}
