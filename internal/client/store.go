package client

import (
	"sync"

	"moodboard-backend/internal/presence"
)

// Entity a normalized entity: flat fields keyed by wire name
type Entity map[string]interface{}

func (e Entity) clone() Entity {
	cp := make(Entity, len(e))
	for k, v := range e {
		cp[k] = v
	}
	return cp
}

// ID reads the entity id; 0 when absent.
func (e Entity) ID() int64 {
	return asID(e["id"])
}

func asID(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// Store the client-side normalized state for one board plus its room.
// Both optimistic local mutations and inbound broadcasts funnel through
// the same Apply methods, so a field another client changed concurrently
// survives as long as this client's change set does not name it.
type Store struct {
	mu sync.RWMutex

	boardScope int64 // 0 accepts everything

	boards   map[int64]Entity
	images   map[int64]Entity
	keywords map[int64]Entity
	threads  map[int64]Entity

	parentOf   map[int64]int64
	childrenOf map[int64][]int64

	participants []presence.Participant

	selectedImageID   int64
	selectedKeywordID int64
	selectedThreadID  int64
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		boards:     make(map[int64]Entity),
		images:     make(map[int64]Entity),
		keywords:   make(map[int64]Entity),
		threads:    make(map[int64]Entity),
		parentOf:   make(map[int64]int64),
		childrenOf: make(map[int64][]int64),
	}
}

// SetBoardScope limits what image/keyword/thread events apply. Events for
// another board are dropped, not queued.
func (s *Store) SetBoardScope(boardID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boardScope = boardID
}

func (s *Store) inScope(e Entity) bool {
	if s.boardScope == 0 {
		return true
	}
	boardID := asID(e["boardId"])
	return boardID == 0 || boardID == s.boardScope
}

// --- boards ---

// UpsertBoard stores a board entity wholesale.
func (s *Store) UpsertBoard(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id := e.ID(); id != 0 {
		s.boards[id] = e.clone()
	}
}

// MergeBoard applies a partial-field change set to a board.
func (s *Store) MergeBoard(id int64, changes map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mergeInto(s.boards, id, changes)
}

// DeleteBoard drops a board and everything scoped to it.
func (s *Store) DeleteBoard(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.boards, id)
	for imgID, e := range s.images {
		if asID(e["boardId"]) == id {
			s.deleteImageLocked(imgID)
		}
	}
	for kwID, e := range s.keywords {
		if asID(e["boardId"]) == id {
			s.deleteKeywordLocked(kwID)
		}
	}
	for thID, e := range s.threads {
		if asID(e["boardId"]) == id {
			s.deleteThreadLocked(thID)
		}
	}
}

// Board reads a board snapshot.
func (s *Store) Board(id int64) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.boards[id]
	if !ok {
		return nil, false
	}
	return e.clone(), true
}

// --- images ---

// UpsertImage stores an image entity; out-of-scope entities are dropped.
func (s *Store) UpsertImage(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inScope(e) {
		return
	}
	if id := e.ID(); id != 0 {
		s.images[id] = e.clone()
	}
}

// MergeImage applies a partial-field change set to an image. Fields the
// change set does not name keep their current values, whichever side of
// the wire last wrote them.
func (s *Store) MergeImage(id int64, changes map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mergeInto(s.images, id, changes)
}

// DeleteImage drops an image and its cascade of keyword ids.
func (s *Store) DeleteImage(id int64, keywordIDs []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteImageLocked(id)
	for _, kwID := range keywordIDs {
		s.deleteKeywordLocked(kwID)
	}
}

func (s *Store) deleteImageLocked(id int64) {
	delete(s.images, id)
	if s.selectedImageID == id {
		// the selected entity vanished under us; drop the reference
		s.selectedImageID = 0
	}
}

// Image reads an image snapshot.
func (s *Store) Image(id int64) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.images[id]
	if !ok {
		return nil, false
	}
	return e.clone(), true
}

// --- keywords ---

// UpsertKeyword stores a keyword entity; out-of-scope entities are dropped.
func (s *Store) UpsertKeyword(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inScope(e) {
		return
	}
	if id := e.ID(); id != 0 {
		s.keywords[id] = e.clone()
	}
}

// MergeKeyword applies a partial-field change set to a keyword.
func (s *Store) MergeKeyword(id int64, changes map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mergeInto(s.keywords, id, changes)
}

// RemoveKeywordOffset unplaces a keyword: offsets nil, deselected, votes
// cleared, mirroring the server's removeKeywordFromBoard.
func (s *Store) RemoveKeywordOffset(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mergeInto(s.keywords, id, map[string]interface{}{
		"offsetX":    nil,
		"offsetY":    nil,
		"isSelected": false,
		"votes":      []int64{},
		"downvotes":  []int64{},
	})
}

// DeleteKeyword drops a keyword.
func (s *Store) DeleteKeyword(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteKeywordLocked(id)
}

func (s *Store) deleteKeywordLocked(id int64) {
	delete(s.keywords, id)
	if s.selectedKeywordID == id {
		s.selectedKeywordID = 0
	}
}

// Keyword reads a keyword snapshot.
func (s *Store) Keyword(id int64) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.keywords[id]
	if !ok {
		return nil, false
	}
	return e.clone(), true
}

// --- threads ---

// UpsertThread stores a thread and maintains the parent/children indexes.
func (s *Store) UpsertThread(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inScope(e) {
		return
	}
	id := e.ID()
	if id == 0 {
		return
	}
	s.threads[id] = e.clone()

	if parentID := asID(e["parentId"]); parentID != 0 {
		if s.parentOf[id] == 0 {
			s.parentOf[id] = parentID
			s.childrenOf[parentID] = append(s.childrenOf[parentID], id)
		}
	}
}

// MergeThread applies a partial-field change set to a thread.
func (s *Store) MergeThread(id int64, changes map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mergeInto(s.threads, id, changes)
}

// DeleteThreads drops a deleted subtree by its id list.
func (s *Store) DeleteThreads(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.deleteThreadLocked(id)
	}
}

func (s *Store) deleteThreadLocked(id int64) {
	delete(s.threads, id)
	if parentID, ok := s.parentOf[id]; ok {
		delete(s.parentOf, id)
		children := s.childrenOf[parentID]
		for i, childID := range children {
			if childID == id {
				s.childrenOf[parentID] = append(children[:i], children[i+1:]...)
				break
			}
		}
	}
	delete(s.childrenOf, id)
	if s.selectedThreadID == id {
		s.selectedThreadID = 0
	}
}

// Thread reads a thread snapshot.
func (s *Store) Thread(id int64) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.threads[id]
	if !ok {
		return nil, false
	}
	return e.clone(), true
}

// Children lists a thread's direct replies.
func (s *Store) Children(id int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64(nil), s.childrenOf[id]...)
}

// --- presence ---

// ReplaceParticipants swaps in the authoritative list. Never merged:
// whatever was known before is discarded.
func (s *Store) ReplaceParticipants(list []presence.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = append([]presence.Participant(nil), list...)
}

// Participants reads the current participant list.
func (s *Store) Participants() []presence.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]presence.Participant(nil), s.participants...)
}

// --- selection ---

// SelectImage marks an image as locally selected.
func (s *Store) SelectImage(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedImageID = id
}

// SelectKeyword marks a keyword as locally selected.
func (s *Store) SelectKeyword(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedKeywordID = id
}

// SelectThread marks a thread as locally selected.
func (s *Store) SelectThread(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedThreadID = id
}

// Selection reports the current selection ids (0 = none).
func (s *Store) Selection() (imageID, keywordID, threadID int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedImageID, s.selectedKeywordID, s.selectedThreadID
}

// mergeInto writes only the named fields. A merge for an entity the
// store has never seen creates it from the changes, id included.
func mergeInto(entities map[int64]Entity, id int64, changes map[string]interface{}) {
	e, ok := entities[id]
	if !ok {
		e = Entity{"id": id}
		entities[id] = e
	}
	for field, value := range changes {
		if value == nil {
			e[field] = nil
			continue
		}
		e[field] = value
	}
}
