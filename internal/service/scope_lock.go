package service

import (
	"fmt"
	"sync"
)

// scopeLock serialises operations keyed by an (exam, class) pair. It closes
// the delete/insert interleaving window between two concurrent report-card
// generations for the same scope; transactions alone do not order them.
type scopeLock struct {
	locks sync.Map
}

func (s *scopeLock) key(examID, classID uint) string {
	return fmt.Sprintf("%d:%d", examID, classID)
}

// Lock acquires the mutex for the pair and returns its unlock function.
func (s *scopeLock) Lock(examID, classID uint) func() {
	value, _ := s.locks.LoadOrStore(s.key(examID, classID), &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
