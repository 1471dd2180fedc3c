package ledger

import "github.com/google/uuid"

// UndoCapacity is the number of compensating actions the engine remembers.
const UndoCapacity = 10

// Compensation reverses one committed add by deleting the transaction it created.
type Compensation struct {
	TransactionID uuid.UUID
	Description   string
}

// UndoStack is a bounded LIFO. Pushing onto a full stack evicts the oldest entry.
type UndoStack struct {
	buf  []Compensation
	head int // next write slot
	size int
}

func NewUndoStack(capacity int) *UndoStack {
	if capacity < 1 {
		capacity = 1
	}
	return &UndoStack{buf: make([]Compensation, capacity)}
}

func (s *UndoStack) Push(c Compensation) {
	s.buf[s.head] = c
	s.head = (s.head + 1) % len(s.buf)
	if s.size < len(s.buf) {
		s.size++
	}
}

// Pop removes and returns the newest entry.
func (s *UndoStack) Pop() (Compensation, bool) {
	if s.size == 0 {
		return Compensation{}, false
	}
	s.head = (s.head - 1 + len(s.buf)) % len(s.buf)
	c := s.buf[s.head]
	s.buf[s.head] = Compensation{}
	s.size--
	return c, true
}

// Peek returns the newest entry without removing it.
func (s *UndoStack) Peek() (Compensation, bool) {
	if s.size == 0 {
		return Compensation{}, false
	}
	return s.buf[(s.head-1+len(s.buf))%len(s.buf)], true
}

func (s *UndoStack) Len() int { return s.size }

func (s *UndoStack) Cap() int { return len(s.buf) }

func (s *UndoStack) Clear() {
	clear(s.buf)
	s.head, s.size = 0, 0
}
