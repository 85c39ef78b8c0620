package trie

import "testing"

func TestPutGetRoundTrip(t *testing.T) {
	var tr Trie
	tr = tr.Put("key", 42)

	got, ok := Get[int](tr, "key")
	if !ok || got != 42 {
		t.Fatalf("Get(%q) = %v, %v; want 42, true", "key", got, ok)
	}
}

func TestGetMissingKey(t *testing.T) {
	var tr Trie
	tr = tr.Put("abc", "value")
	if _, ok := Get[string](tr, "xyz"); ok {
		t.Fatal("expected miss for an absent key")
	}
}

func TestGetTypeMismatchReturnsFalse(t *testing.T) {
	var tr Trie
	tr = tr.Put("k", "a string")
	if _, ok := Get[int](tr, "k"); ok {
		t.Fatal("expected type-mismatched Get to return false")
	}
}

func TestRemoveThenGet(t *testing.T) {
	var tr Trie
	tr = tr.Put("k", 7)
	tr = tr.Remove("k")
	if _, ok := Get[int](tr, "k"); ok {
		t.Fatal("expected Get after Remove to return false")
	}
}

func TestPersistenceAcrossVersions(t *testing.T) {
	var t0 Trie
	t1 := t0.Put("k", 1)
	t2 := t1.Put("k", 2)

	v1, ok1 := Get[int](t1, "k")
	v2, ok2 := Get[int](t2, "k")
	if !ok1 || v1 != 1 {
		t.Fatalf("t1.Get(k) = %v, %v; want 1, true", v1, ok1)
	}
	if !ok2 || v2 != 2 {
		t.Fatalf("t2.Get(k) = %v, %v; want 2, true", v2, ok2)
	}
}

// TestStructuralSharingAtBranch: t2 clones the root and the node at "a"
// on its way to "ac" and aliases t1's "b" subtree below the branch point;
// that subtree must still answer correctly once t2 has added "ac".
func TestStructuralSharingAtBranch(t *testing.T) {
	var t0 Trie
	t1 := t0.Put("ab", 1)
	t2 := t1.Put("ac", 2)

	if _, ok := Get[int](t1, "ac"); ok {
		t.Fatal("t1 should not see a key added only to t2")
	}
	if v, ok := Get[int](t2, "ab"); !ok || v != 1 {
		t.Fatalf("t2.Get(ab) = %v, %v; want 1, true", v, ok)
	}
	if v, ok := Get[int](t2, "ac"); !ok || v != 2 {
		t.Fatalf("t2.Get(ac) = %v, %v; want 2, true", v, ok)
	}
}

// TestRemoveWithPruning: removing the only key
// in the trie collapses every interior node, leaving an empty trie.
func TestRemoveWithPruning(t *testing.T) {
	var t0 Trie
	t1 := t0.Put("abc", 1)
	t2 := t1.Remove("abc")

	if t2.root != nil {
		t.Fatal("expected an empty trie after removing its only key")
	}
	if _, ok := Get[int](t2, "abc"); ok {
		t.Fatal("expected Get to miss on the pruned trie")
	}
}

func TestRemovePrunesOnlyDeadBranch(t *testing.T) {
	var t0 Trie
	t1 := t0.Put("ab", 1).Put("ac", 2)
	t2 := t1.Remove("ab")

	if _, ok := Get[int](t2, "ab"); ok {
		t.Fatal("expected ab to be gone")
	}
	if v, ok := Get[int](t2, "ac"); !ok || v != 2 {
		t.Fatalf("ac should survive pruning of the ab branch, got %v, %v", v, ok)
	}
}

func TestRemoveAbsentKeyIsNoOp(t *testing.T) {
	var t0 Trie
	t1 := t0.Put("k", 1)
	t2 := t1.Remove("nope")

	if v, ok := Get[int](t2, "k"); !ok || v != 1 {
		t.Fatalf("unrelated Remove should not disturb existing keys, got %v, %v", v, ok)
	}
}

func TestEmptyKeyPutGetRemove(t *testing.T) {
	var t0 Trie
	t1 := t0.Put("", 99)

	if v, ok := Get[int](t1, ""); !ok || v != 99 {
		t.Fatalf("Get(\"\") = %v, %v; want 99, true", v, ok)
	}

	// Put at a non-empty key must preserve the root's empty-key value.
	t2 := t1.Put("x", 1)
	if v, ok := Get[int](t2, ""); !ok || v != 99 {
		t.Fatalf("empty-key value lost after Put(x): got %v, %v", v, ok)
	}

	t3 := t2.Remove("")
	if _, ok := Get[int](t3, ""); ok {
		t.Fatal("expected empty-key value cleared after Remove(\"\")")
	}
	// "x" must survive since the root still has children.
	if v, ok := Get[int](t3, "x"); !ok || v != 1 {
		t.Fatalf("Remove(\"\") should not disturb sibling key x: got %v, %v", v, ok)
	}
}

func TestPutEmptyTrieThenGetOnOriginalUnaffected(t *testing.T) {
	var t0 Trie
	t1 := t0.Put("k", 1)

	if _, ok := Get[int](t0, "k"); ok {
		t.Fatal("original empty trie must not see keys added by Put's result")
	}
	if v, ok := Get[int](t1, "k"); !ok || v != 1 {
		t.Fatalf("Get(t1, k) = %v, %v; want 1, true", v, ok)
	}
}
