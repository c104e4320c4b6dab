package ordermap

import (
	"errors"
	"testing"
)

func TestInsertSearchDelete(t *testing.T) {
	m := New(nil, nil)
	if !m.Insert("b", 2) {
		t.Fatal("first insert of b failed")
	}
	if !m.Insert("a", 1) {
		t.Fatal("first insert of a failed")
	}
	if m.Insert("a", 99) {
		t.Fatal("duplicate insert of a should fail")
	}

	if v, ok := m.Search("a"); !ok || v != 1 {
		t.Fatalf("Search(a) = %v, %v, want 1, true", v, ok)
	}
	if _, ok := m.Search("missing"); ok {
		t.Fatal("Search(missing) should fail")
	}

	if !m.Delete("a") {
		t.Fatal("Delete(a) should succeed")
	}
	if m.Delete("a") {
		t.Fatal("second Delete(a) should fail")
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
}

func TestForEachOrdersLexicographically(t *testing.T) {
	m := New(nil, nil)
	for _, k := range []string{"banana", "apple", "cherry", "avocado"} {
		m.Insert(k, nil)
	}

	var order []string
	m.ForEach(func(key string, _ interface{}) error {
		order = append(order, key)
		return nil
	})

	want := []string{"apple", "avocado", "banana", "cherry"}
	if len(order) != len(want) {
		t.Fatalf("ForEach visited %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("ForEach visited %v, want %v", order, want)
		}
	}
}

func TestForEachStopsOnError(t *testing.T) {
	m := New(nil, nil)
	m.Insert("a", nil)
	m.Insert("b", nil)
	m.Insert("c", nil)

	sentinel := errors.New("stop")
	var visited int
	err := m.ForEach(func(_ string, _ interface{}) error {
		visited++
		if visited == 2 {
			return sentinel
		}
		return nil
	})
	if err != sentinel {
		t.Fatalf("ForEach returned %v, want sentinel", err)
	}
	if visited != 2 {
		t.Fatalf("ForEach visited %d entries, want 2", visited)
	}
}

func TestDeleteDisposesValue(t *testing.T) {
	var disposed []int
	m := New(nil, func(value interface{}) {
		disposed = append(disposed, value.(int))
	})
	m.Insert("a", 7)
	m.Delete("a")
	if len(disposed) != 1 || disposed[0] != 7 {
		t.Fatalf("disposed = %v, want [7]", disposed)
	}
}

func TestDeleteNodeWithTwoChildren(t *testing.T) {
	m := New(nil, nil)
	for _, k := range []string{"d", "b", "f", "a", "c", "e", "g"} {
		m.Insert(k, nil)
	}
	if !m.Delete("d") {
		t.Fatal("Delete(d) should succeed")
	}

	var order []string
	m.ForEach(func(key string, _ interface{}) error {
		order = append(order, key)
		return nil
	})
	want := []string{"a", "b", "c", "e", "f", "g"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("ForEach after delete = %v, want %v", order, want)
		}
	}
}

func TestKeysMatchesForEachOrder(t *testing.T) {
	m := New(nil, nil)
	m.Insert("z", nil)
	m.Insert("m", nil)
	m.Insert("a", nil)

	keys := m.Keys()
	want := []string{"a", "m", "z"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
	}
}
