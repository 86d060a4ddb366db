package plan

import (
	"github.com/google/uuid"
)

// InventoryItem is a template that can be placed into any day. It carries no
// instance binding; DefaultTime comes from the item's slot type.
type InventoryItem struct {
	Key         string    `json:"key"`
	ID          CatalogID `json:"id"`
	Title       string    `json:"title"`
	Kind        Kind      `json:"type"`
	Calories    int       `json:"cal"`
	DefaultTime string    `json:"time"`
	Duration    string    `json:"duration,omitempty"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon"`
}

// Inventory is the deduplicated list of items, in first-seen order.
type Inventory []InventoryItem

// Find looks up an item by its key ("inv_12") or its catalog id ("12").
func (inv Inventory) Find(key string) (InventoryItem, bool) {
	for _, it := range inv {
		if it.Key == key || string(it.ID) == key {
			return it, true
		}
	}
	return InventoryItem{}, false
}

// Place returns a new entry for the item with a fresh instance id.
func (it InventoryItem) Place() ScheduleEntry {
	return ScheduleEntry{
		ID:          it.ID,
		InstanceID:  uuid.NewString(),
		Title:       it.Title,
		Kind:        it.Kind,
		Calories:    it.Calories,
		Time:        it.DefaultTime,
		Duration:    it.Duration,
		Description: it.Description,
		Icon:        it.Icon,
	}
}

func inventoryKey(id CatalogID) string {
	return "inv_" + string(id)
}

// inventoryBuilder keeps the first item seen per catalog id.
type inventoryBuilder struct {
	seen  map[CatalogID]bool
	items Inventory
}

func newInventoryBuilder() *inventoryBuilder {
	return &inventoryBuilder{seen: make(map[CatalogID]bool), items: Inventory{}}
}

func (b *inventoryBuilder) add(it InventoryItem) {
	if b.seen[it.ID] {
		return
	}
	b.seen[it.ID] = true
	b.items = append(b.items, it)
}
