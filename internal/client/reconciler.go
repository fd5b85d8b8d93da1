package client

import (
	"encoding/json"
	"fmt"

	"moodboard-backend/internal/presence"
	"moodboard-backend/internal/relay"
)

// attribution the lastEditedBy tag mirrored onto entities an actor touched
func attribution(actor *relay.Actor) map[string]interface{} {
	if actor == nil {
		return nil
	}
	return map[string]interface{}{"id": actor.ID, "name": actor.Name}
}

func tagEntity(e Entity, actor *relay.Actor) {
	if tag := attribution(actor); tag != nil {
		e["lastEditedBy"] = tag
	}
}

func tagChanges(p *relay.UpdatePayload, actor *relay.Actor) {
	tag := attribution(actor)
	if tag == nil {
		return
	}
	if p.Changes == nil {
		p.Changes = map[string]interface{}{}
	}
	p.Changes["lastEditedBy"] = tag
}

// Apply feeds one inbound envelope into the store, tagging mutated
// entities with the acting user for attribution. The same paths serve
// optimistic local application: send the intent, then Apply the event you
// expect the server to broadcast.
func Apply(store *Store, event string, payload json.RawMessage, actor *relay.Actor) error {
	switch event {
	case relay.EventUpdateRoomUsers:
		var list []presence.Participant
		if err := json.Unmarshal(payload, &list); err != nil {
			return fmt.Errorf("bad participant list: %w", err)
		}
		store.ReplaceParticipants(list)

	case relay.EventNewImage:
		var e Entity
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("bad image: %w", err)
		}
		tagEntity(e, actor)
		store.UpsertImage(e)

	case relay.EventUpdateImage:
		var p relay.UpdatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad image update: %w", err)
		}
		tagChanges(&p, actor)
		store.MergeImage(p.ID, p.Changes)

	case relay.EventDeleteImage:
		var p struct {
			ImageID    int64   `json:"imageId"`
			KeywordIDs []int64 `json:"keywordIds"`
			ThreadIDs  []int64 `json:"threadIds"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad image delete: %w", err)
		}
		store.DeleteImage(p.ImageID, p.KeywordIDs)
		store.DeleteThreads(p.ThreadIDs)

	case relay.EventNewKeyword:
		var e Entity
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("bad keyword: %w", err)
		}
		tagEntity(e, actor)
		store.UpsertKeyword(e)

	case relay.EventUpdateKeyword:
		var p relay.UpdatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad keyword update: %w", err)
		}
		tagChanges(&p, actor)
		store.MergeKeyword(p.ID, p.Changes)

	case relay.EventRemoveKeywordOffset:
		var p struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad keyword removal: %w", err)
		}
		store.RemoveKeywordOffset(p.ID)

	case relay.EventDeleteKeyword:
		var p struct {
			ID        int64   `json:"id"`
			ThreadIDs []int64 `json:"threadIds"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad keyword delete: %w", err)
		}
		store.DeleteKeyword(p.ID)
		store.DeleteThreads(p.ThreadIDs)

	case relay.EventClearKeywordVotes:
		var p struct {
			KeywordIDs []int64 `json:"keywordIds"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad vote clear: %w", err)
		}
		for _, id := range p.KeywordIDs {
			store.MergeKeyword(id, map[string]interface{}{
				"votes":     []int64{},
				"downvotes": []int64{},
			})
		}

	case relay.EventNewBoard:
		var e Entity
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("bad board: %w", err)
		}
		tagEntity(e, actor)
		store.UpsertBoard(e)

	case relay.EventUpdateBoard:
		var p relay.UpdatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad board update: %w", err)
		}
		tagChanges(&p, actor)
		store.MergeBoard(p.ID, p.Changes)

	case relay.EventDeleteBoard:
		var p struct {
			BoardID int64 `json:"boardId"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad board delete: %w", err)
		}
		store.DeleteBoard(p.BoardID)

	case relay.EventAddThread:
		var e Entity
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("bad thread: %w", err)
		}
		tagEntity(e, actor)
		store.UpsertThread(e)

	case relay.EventUpdateThread:
		var p relay.UpdatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad thread update: %w", err)
		}
		tagChanges(&p, actor)
		store.MergeThread(p.ID, p.Changes)

	case relay.EventDeleteThread:
		var p struct {
			ThreadIDs []int64 `json:"threadIds"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad thread delete: %w", err)
		}
		store.DeleteThreads(p.ThreadIDs)

	case relay.EventImageMoving, relay.EventImageTransform, relay.EventKeywordMoving:
		// transient: apply the inline fields but never treat them as
		// canonical; the closing updateImage/updateKeyword settles it
		var p relay.UpdatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad transient update: %w", err)
		}
		if event == relay.EventKeywordMoving {
			store.MergeKeyword(p.ID, p.Changes)
		} else {
			store.MergeImage(p.ID, p.Changes)
		}
	}

	return nil
}
