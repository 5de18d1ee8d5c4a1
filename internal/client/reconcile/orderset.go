package reconcile

import "github.com/Additional-Code/brigade/internal/dto"

// orderSet is an ordered order collection with an id index. Insertion order
// is preserved; filters and sorters downstream rely on it being stable.
type orderSet struct {
	orders []dto.Order
	index  map[int64]int
}

func newOrderSet(seed []dto.Order) *orderSet {
	s := &orderSet{index: make(map[int64]int, len(seed))}
	for _, o := range seed {
		if _, dup := s.index[o.ID]; dup {
			continue
		}
		s.index[o.ID] = len(s.orders)
		s.orders = append(s.orders, o)
	}
	return s
}

func (s *orderSet) get(id int64) (dto.Order, bool) {
	i, ok := s.index[id]
	if !ok {
		return dto.Order{}, false
	}
	return s.orders[i], true
}

func (s *orderSet) add(o dto.Order) bool {
	if _, dup := s.index[o.ID]; dup {
		return false
	}
	s.index[o.ID] = len(s.orders)
	s.orders = append(s.orders, o)
	return true
}

func (s *orderSet) replace(o dto.Order) bool {
	i, ok := s.index[o.ID]
	if !ok {
		return false
	}
	s.orders[i] = o
	return true
}

func (s *orderSet) remove(id int64) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.orders = append(s.orders[:i], s.orders[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.orders); j++ {
		s.index[s.orders[j].ID] = j
	}
	return true
}

// snapshot returns a copy; item slices are cloned so callers can't mutate the
// set behind its back.
func (s *orderSet) snapshot() []dto.Order {
	out := make([]dto.Order, len(s.orders))
	for i, o := range s.orders {
		items := make([]dto.OrderItem, len(o.Items))
		copy(items, o.Items)
		o.Items = items
		out[i] = o
	}
	return out
}
