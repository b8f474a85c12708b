package block

import (
	"fmt"
	"slices"
)

// Reparent moves child from oldParent to newParent, keeping parentID and
// contentIDs in step. Either parent may be nil (root level or a missing
// block). Removing an absent id and adding a present one are no-ops.
// Everything that changes the hierarchy goes through here or Inherit.
func Reparent(child, oldParent, newParent *Block) {
	if oldParent != nil && oldParent != newParent {
		oldParent.mu.Lock()
		oldParent.contentIDs = slices.DeleteFunc(oldParent.contentIDs, func(id string) bool {
			return id == child.id
		})
		oldParent.mu.Unlock()
	}
	parentID := ""
	if newParent != nil {
		parentID = newParent.id
		newParent.mu.Lock()
		if !slices.Contains(newParent.contentIDs, child.id) {
			newParent.contentIDs = append(newParent.contentIDs, child.id)
		}
		newParent.mu.Unlock()
	}
	child.mu.Lock()
	child.parentID = parentID
	child.mu.Unlock()
}

// Inherit copies the hierarchy fields of old onto its same-id successor.
func Inherit(successor, old *Block) error {
	if successor.id != old.id {
		return fmt.Errorf("inherit hierarchy: id %q != %q", successor.id, old.id)
	}
	old.mu.RLock()
	parentID, content := old.parentID, slices.Clone(old.contentIDs)
	old.mu.RUnlock()

	successor.mu.Lock()
	successor.parentID = parentID
	successor.contentIDs = content
	successor.mu.Unlock()
	return nil
}
