// Package batch holds the in-memory list of products a station is assembling before submission.
package batch

import (
	"sort"
	"sync"
)

// Item statuses shown next to a product.
const (
	StatusAvailable         = "AVAILABLE"
	StatusQuarantined       = "QUARANTINED"
	StatusExpired           = "EXPIRED"
	StatusUnsuitable        = "UNSUITABLE"
	StatusDiscarded         = "DISCARDED"
	StatusPendingInspection = "PENDING INSPECTION"
	StatusIrradiated        = "IRRADIATED"
	StatusNotIrradiated     = "NOT IRRADIATED"
	StatusVerified          = "VERIFIED"
)

// Key identifies an item by unit number and product code.
type Key struct {
	UnitNumber  string
	ProductCode string
}

func (k Key) String() string { return k.UnitNumber + "|" + k.ProductCode }

// Item is one product line in a batch.
type Item struct {
	UnitNumber         string
	ProductCode        string
	ProductDescription string
	ProductFamily      string
	Location           string
	LotNumber          string
	Statuses           []string
	Order              int
	Disabled           bool
	Quarantined        bool
	Expired            bool
	// Inspected and Irradiated are only used when closing an irradiation batch.
	Inspected  bool
	Irradiated bool
}

// Key returns the identity of the item.
func (i Item) Key() Key { return Key{UnitNumber: i.UnitNumber, ProductCode: i.ProductCode} }

// Accumulator is the ordered list of items plus the parallel selection list.
type Accumulator struct {
	mu        sync.RWMutex
	items     []Item
	selected  []Key
	nextOrder int
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Add appends item unless one with the same key exists. A zero Order is assigned
// the next sequence number so newer scans sort first.
func (a *Accumulator) Add(item Item) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.indexOf(item.Key()) >= 0 {
		return false
	}
	a.nextOrder++
	if item.Order == 0 {
		item.Order = a.nextOrder
	} else if item.Order > a.nextOrder {
		a.nextOrder = item.Order
	}
	item.Statuses = append([]string(nil), item.Statuses...)
	a.items = append(a.items, item)
	return true
}

// Contains reports whether an item with key exists.
func (a *Accumulator) Contains(key Key) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.indexOf(key) >= 0
}

// ContainsUnit reports whether any item belongs to unitNumber.
func (a *Accumulator) ContainsUnit(unitNumber string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, item := range a.items {
		if item.UnitNumber == unitNumber {
			return true
		}
	}
	return false
}

// Get returns the item with key.
func (a *Accumulator) Get(key Key) (Item, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i := a.indexOf(key); i >= 0 {
		return cloneItem(a.items[i]), true
	}
	return Item{}, false
}

// Update applies fn to the item with key.
func (a *Accumulator) Update(key Key, fn func(*Item)) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.indexOf(key)
	if i < 0 {
		return false
	}
	fn(&a.items[i])
	return true
}

// Toggle adds key to the selection or removes it when already selected.
// Disabled and unknown items cannot be selected.
func (a *Accumulator) Toggle(key Key) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s := a.selectedIndex(key); s >= 0 {
		a.selected = append(a.selected[:s], a.selected[s+1:]...)
		return true
	}
	i := a.indexOf(key)
	if i < 0 || a.items[i].Disabled {
		return false
	}
	a.selected = append(a.selected, key)
	return true
}

// SelectAll selects every enabled item, or clears the selection when all of them already are.
func (a *Accumulator) SelectAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	enabled := make([]Key, 0, len(a.items))
	for _, item := range a.items {
		if !item.Disabled {
			enabled = append(enabled, item.Key())
		}
	}
	allSelected := len(enabled) > 0
	for _, key := range enabled {
		if a.selectedIndex(key) < 0 {
			allSelected = false
			break
		}
	}
	if allSelected {
		a.selected = nil
		return
	}
	a.selected = enabled
}

// ClearSelection empties the selection list.
func (a *Accumulator) ClearSelection() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selected = nil
}

// RemoveSelected removes the selected items from both lists and returns them.
func (a *Accumulator) RemoveSelected() []Item {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := make([]Item, 0, len(a.selected))
	kept := a.items[:0]
	for _, item := range a.items {
		if a.selectedIndex(item.Key()) >= 0 {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	a.items = kept
	a.selected = nil
	return removed
}

// Remove deletes the item with key from both lists.
func (a *Accumulator) Remove(key Key) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.indexOf(key)
	if i < 0 {
		return false
	}
	a.items = append(a.items[:i], a.items[i+1:]...)
	if s := a.selectedIndex(key); s >= 0 {
		a.selected = append(a.selected[:s], a.selected[s+1:]...)
	}
	return true
}

// Enable enables every item of unitNumber and returns how many changed.
func (a *Accumulator) Enable(unitNumber string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	changed := 0
	for i := range a.items {
		if a.items[i].UnitNumber == unitNumber && a.items[i].Disabled {
			a.items[i].Disabled = false
			changed++
		}
	}
	return changed
}

// Items returns a copy of the items sorted by Order, newest first.
func (a *Accumulator) Items() []Item {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Item, len(a.items))
	for i, item := range a.items {
		out[i] = cloneItem(item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order > out[j].Order })
	return out
}

// Selected returns a copy of the selection in selection order.
func (a *Accumulator) Selected() []Key {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Key(nil), a.selected...)
}

// SelectedItems returns the selected items in display order.
func (a *Accumulator) SelectedItems() []Item {
	selected := make(map[Key]struct{})
	for _, key := range a.Selected() {
		selected[key] = struct{}{}
	}
	items := a.Items()
	out := items[:0]
	for _, item := range items {
		if _, ok := selected[item.Key()]; ok {
			out = append(out, item)
		}
	}
	return out
}

// IsSelected reports whether key is selected.
func (a *Accumulator) IsSelected(key Key) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.selectedIndex(key) >= 0
}

// Count returns the number of enabled items.
func (a *Accumulator) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, item := range a.items {
		if !item.Disabled {
			n++
		}
	}
	return n
}

// Len returns the number of items, enabled or not.
func (a *Accumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// Reset empties the accumulator.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = nil
	a.selected = nil
	a.nextOrder = 0
}

func (a *Accumulator) indexOf(key Key) int {
	for i, item := range a.items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

func (a *Accumulator) selectedIndex(key Key) int {
	for i, k := range a.selected {
		if k == key {
			return i
		}
	}
	return -1
}

func cloneItem(item Item) Item {
	item.Statuses = append([]string(nil), item.Statuses...)
	return item
}
