package id

// Sequence hands out strictly increasing integer ids.
//
// The zero value starts at 0. A Sequence is not safe for concurrent use; the
// owner serializes access.
type Sequence struct {
	next int
}

// Next returns the next id and advances the sequence.
func (s *Sequence) Next() int {
	n := s.next
	s.next++
	return n
}

// Peek returns the id Next would return, without advancing.
func (s *Sequence) Peek() int {
	return s.next
}

// Observe moves the sequence past id so that id is never handed out.
// The sequence never moves backwards.
func (s *Sequence) Observe(id int) {
	if id >= s.next {
		s.next = id + 1
	}
}

// Seed returns the id that follows the largest of ids: max+1, or 0 when ids is empty.
func Seed(ids []int) int {
	if len(ids) == 0 {
		return 0
	}
	maxID := ids[0]
	for _, id := range ids[1:] {
		if id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}
