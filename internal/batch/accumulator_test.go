package batch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(unit, product string) Item {
	return Item{UnitNumber: unit, ProductCode: product, Statuses: []string{StatusAvailable}}
}

func TestAccumulator_AddDedupes(t *testing.T) {
	acc := New()

	assert.True(t, acc.Add(item("W036824123456", "E0713V00")))
	assert.True(t, acc.Add(item("W036824123456", "E0714V00")))
	assert.False(t, acc.Add(item("W036824123456", "E0713V00")))
	assert.Equal(t, 2, acc.Len())
	assert.True(t, acc.ContainsUnit("W036824123456"))
	assert.False(t, acc.ContainsUnit("W036824999999"))
}

func TestAccumulator_ItemsSortedNewestFirst(t *testing.T) {
	acc := New()
	acc.Add(item("W000000000001", "E0713V00"))
	acc.Add(item("W000000000002", "E0713V00"))
	acc.Add(item("W000000000003", "E0713V00"))

	var units []string
	for _, it := range acc.Items() {
		units = append(units, it.UnitNumber)
	}
	if diff := cmp.Diff([]string{"W000000000003", "W000000000002", "W000000000001"}, units); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestAccumulator_ExplicitOrder(t *testing.T) {
	acc := New()
	acc.Add(Item{UnitNumber: "A", ProductCode: "P", Order: 10})
	acc.Add(Item{UnitNumber: "B", ProductCode: "P"})

	items := acc.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "B", items[0].UnitNumber)
	assert.Equal(t, 11, items[0].Order)
}

func TestAccumulator_DoubleToggleRestoresSelection(t *testing.T) {
	keys := []Key{
		{UnitNumber: "W000000000001", ProductCode: "E0713V00"},
		{UnitNumber: "W000000000002", ProductCode: "E0713V00"},
		{UnitNumber: "W000000000003", ProductCode: "E0713V00"},
		{UnitNumber: "W999999999999", ProductCode: "E0713V00"},
	}

	for _, preselected := range [][]int{{}, {0}, {1, 2}, {0, 1, 2}} {
		for _, target := range keys {
			acc := New()
			for _, k := range keys[:3] {
				acc.Add(Item{UnitNumber: k.UnitNumber, ProductCode: k.ProductCode})
			}
			for _, idx := range preselected {
				acc.Toggle(keys[idx])
			}
			before := acc.Selected()

			acc.Toggle(target)
			acc.Toggle(target)

			assert.ElementsMatch(t, before, acc.Selected(), "target %s", target)
		}
	}
}

func TestAccumulator_ToggleDisabled(t *testing.T) {
	acc := New()
	disabled := item("W000000000001", "E0713V00")
	disabled.Disabled = true
	acc.Add(disabled)

	assert.False(t, acc.Toggle(disabled.Key()))
	assert.Empty(t, acc.Selected())

	acc.Enable("W000000000001")
	assert.True(t, acc.Toggle(disabled.Key()))
	assert.True(t, acc.IsSelected(disabled.Key()))
}

func TestAccumulator_SelectAll(t *testing.T) {
	acc := New()
	acc.Add(item("W000000000001", "E0713V00"))
	acc.Add(item("W000000000002", "E0713V00"))
	off := item("W000000000003", "E0713V00")
	off.Disabled = true
	acc.Add(off)

	acc.SelectAll()
	assert.Len(t, acc.Selected(), 2)
	assert.False(t, acc.IsSelected(off.Key()))

	acc.SelectAll()
	assert.Empty(t, acc.Selected())

	acc.Toggle(Key{UnitNumber: "W000000000001", ProductCode: "E0713V00"})
	acc.SelectAll()
	assert.Len(t, acc.Selected(), 2)
}

func TestAccumulator_SelectAllEmpty(t *testing.T) {
	acc := New()
	acc.SelectAll()
	assert.Empty(t, acc.Selected())
}

func TestAccumulator_RemoveSelected(t *testing.T) {
	acc := New()
	acc.Add(item("W000000000001", "E0713V00"))
	acc.Add(item("W000000000002", "E0713V00"))
	acc.Add(item("W000000000003", "E0713V00"))

	acc.Toggle(Key{UnitNumber: "W000000000001", ProductCode: "E0713V00"})
	acc.Toggle(Key{UnitNumber: "W000000000003", ProductCode: "E0713V00"})

	removed := acc.RemoveSelected()
	assert.Len(t, removed, 2)
	assert.Empty(t, acc.Selected())

	items := acc.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "W000000000002", items[0].UnitNumber)
}

func TestAccumulator_CountIgnoresDisabled(t *testing.T) {
	acc := New()
	assert.Equal(t, 0, acc.Count())

	a := item("W000000000001", "E0713V00")
	b := item("W000000000001", "E0714V00")
	b.Disabled = true
	c := item("W000000000002", "E0713V00")
	c.Disabled = true
	acc.Add(a)
	acc.Add(b)
	acc.Add(c)
	assert.Equal(t, 1, acc.Count())

	assert.Equal(t, 1, acc.Enable("W000000000001"))
	assert.Equal(t, 2, acc.Count())
	assert.Equal(t, 0, acc.Enable("W000000000001"))
}

func TestAccumulator_UpdateAndReset(t *testing.T) {
	acc := New()
	acc.Add(item("W000000000001", "E0713V00"))
	key := Key{UnitNumber: "W000000000001", ProductCode: "E0713V00"}

	assert.True(t, acc.Update(key, func(it *Item) {
		it.Inspected = true
		it.Statuses = append(it.Statuses, StatusIrradiated)
	}))
	got, ok := acc.Get(key)
	require.True(t, ok)
	assert.True(t, got.Inspected)
	assert.Equal(t, []string{StatusAvailable, StatusIrradiated}, got.Statuses)

	assert.False(t, acc.Update(Key{UnitNumber: "X"}, func(*Item) {}))

	acc.Toggle(key)
	acc.Reset()
	assert.Equal(t, 0, acc.Len())
	assert.Empty(t, acc.Selected())
}

func TestAccumulator_ItemsAreCopies(t *testing.T) {
	acc := New()
	acc.Add(item("W000000000001", "E0713V00"))

	items := acc.Items()
	items[0].Statuses[0] = "CHANGED"

	got, _ := acc.Get(items[0].Key())
	assert.Equal(t, StatusAvailable, got.Statuses[0])
}
