package fdb

import (
	"errors"
	"testing"
)

func newTestFDB(t *testing.T) (*FDB, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewFDB(store, nil, nil, RetrieveOptions{}), store
}

func archiveAll(t *testing.T, f *FDB, fields map[string]string) {
	t.Helper()
	for text, data := range fields {
		req := mustRequest(t, text)
		if err := f.ArchiveRequest(req, []byte(data)); err != nil {
			t.Fatalf("ArchiveRequest(%s) error = %v", text, err)
		}
	}
}

func drain(t *testing.T, it *ListIterator) []*ListElement {
	t.Helper()
	var out []*ListElement
	for {
		el, err := it.Next()
		if err == ErrIterationComplete {
			return out
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		out = append(out, el)
	}
}

func TestListIterator_ArchiveThenList(t *testing.T) {
	f, _ := newTestFDB(t)
	key := mustKey(t, "class", "od", "step", "0", "param", "t")
	if err := f.Archive(key, []byte("payload")); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if err := f.Archive(mustKey(t, "class", "od", "step", "6", "param", "t"), []byte("other")); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	it, err := f.List(mustRequest(t, "param=t,step=0,class=od"), ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	got := drain(t, it)

	if len(got) != 1 {
		t.Fatalf("got %d elements, want 1", len(got))
	}
	if !got[0].Key.Equal(key) {
		t.Errorf("element key = %s, want %s", got[0].Key, key)
	}
	if got[0].Location.Length != int64(len("payload")) {
		t.Errorf("Length = %d", got[0].Location.Length)
	}
}

func TestListIterator_VisitsEveryCombination(t *testing.T) {
	f, _ := newTestFDB(t)
	archiveAll(t, f, map[string]string{"a=1,b=x": "1x"})

	it, _ := f.List(mustRequest(t, "a=1/2/3,b=x/y"), ListOptions{})
	drain(t, it)

	if it.Visited() != 6 {
		t.Errorf("Visited() = %d, want 6", it.Visited())
	}
	if it.Emitted() != 1 {
		t.Errorf("Emitted() = %d, want 1", it.Emitted())
	}
}

func TestListIterator_OrderIsDeterministic(t *testing.T) {
	f, _ := newTestFDB(t)
	archiveAll(t, f, map[string]string{
		"a=2,b=y": "",
		"a=1,b=x": "",
		"a=2,b=x": "",
		"a=1,b=y": "",
	})
	req := mustRequest(t, "a=2/1,b=x/y")

	var runs [2][]string
	for i := range runs {
		it, _ := f.List(req, ListOptions{})
		for _, el := range drain(t, it) {
			runs[i] = append(runs[i], el.Key.Canonical())
		}
	}

	want := []string{"a=2,b=x", "a=2,b=y", "a=1,b=x", "a=1,b=y"}
	for i := range runs {
		if len(runs[i]) != len(want) {
			t.Fatalf("run %d: got %v, want %v", i, runs[i], want)
		}
		for j := range want {
			if runs[i][j] != want[j] {
				t.Errorf("run %d[%d] = %s, want %s", i, j, runs[i][j], want[j])
			}
		}
	}
}

func TestListIterator_StopEarly(t *testing.T) {
	f, store := newTestFDB(t)
	archiveAll(t, f, map[string]string{"a=1": "one", "a=2": "two", "a=3": "three"})

	it, _ := f.List(mustRequest(t, "a=1/2/3"), ListOptions{})
	if _, err := it.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if it.Visited() != 1 {
		t.Errorf("Visited() = %d, want 1 after one element", it.Visited())
	}
	if store.matchCalls != 1 {
		t.Errorf("store saw %d lookups, want 1", store.matchCalls)
	}

	// Abandoning the iterator leaves the handle usable.
	n, err := f.RetrieveToBuffer(mustRequest(t, "a=1/2/3"), make([]byte, 64))
	if err != nil {
		t.Fatalf("RetrieveToBuffer() error = %v", err)
	}
	if n != int64(len("onetwothree")) {
		t.Errorf("retrieved %d bytes", n)
	}
}

func TestListIterator_TerminalStates(t *testing.T) {
	t.Run("exhausted", func(t *testing.T) {
		f, _ := newTestFDB(t)
		it, _ := f.List(mustRequest(t, "a=1"), ListOptions{})

		if _, err := it.Next(); err != ErrIterationComplete {
			t.Fatalf("Next() error = %v, want ErrIterationComplete", err)
		}
		if !it.Done() {
			t.Error("Done() = false after exhaustion")
		}
		_, err := it.Next()
		if !errors.Is(err, ErrIteratorTerminated) || CodeOf(err) != InvalidArgument {
			t.Errorf("Next() after exhaustion error = %v", err)
		}
	})

	t.Run("store failure mid enumeration", func(t *testing.T) {
		f, store := newTestFDB(t)
		archiveAll(t, f, map[string]string{"a=1": "one", "a=2": "two"})
		boom := errors.New("index unavailable")
		store.failMatchAt = 2
		store.matchErr = boom

		it, _ := f.List(mustRequest(t, "a=1/2"), ListOptions{})
		first, err := it.Next()
		if err != nil {
			t.Fatalf("first Next() error = %v", err)
		}

		_, err = it.Next()
		if !errors.Is(err, ErrBackingStore) || !errors.Is(err, boom) {
			t.Fatalf("second Next() error = %v, want BackingStoreError wrapping cause", err)
		}
		if it.Err() == nil {
			t.Error("Err() = nil after failure")
		}
		if v, _ := first.Key.Value("a"); v != "1" {
			t.Errorf("earlier element changed: %s", first.Key)
		}

		_, err = it.Next()
		if !errors.Is(err, ErrIteratorTerminated) || !errors.Is(err, boom) {
			t.Errorf("Next() after failure error = %v", err)
		}
	})
}

func TestListIterator_Duplicates(t *testing.T) {
	f, _ := newTestFDB(t)
	key := mustKey(t, "a", "1")
	f.Archive(key, []byte("old"))
	f.Archive(key, []byte("new!"))

	it, _ := f.List(mustRequest(t, "a=1"), ListOptions{})
	visible := drain(t, it)
	if len(visible) != 1 || visible[0].Location.Length != 4 {
		t.Fatalf("visible = %v", visible)
	}

	it, _ = f.List(mustRequest(t, "a=1"), ListOptions{Duplicates: true})
	all := drain(t, it)
	if len(all) != 2 {
		t.Fatalf("with duplicates got %d, want 2", len(all))
	}
	if !all[0].Masked || all[1].Masked {
		t.Errorf("masked flags = %v, %v; want true, false", all[0].Masked, all[1].Masked)
	}
}

func TestListIterator_OmittedAxesMatchAny(t *testing.T) {
	f, _ := newTestFDB(t)
	archiveAll(t, f, map[string]string{
		"class=od,step=0": "",
		"class=od,step=6": "",
		"class=rd,step=0": "",
	})

	it, _ := f.List(mustRequest(t, "class=od"), ListOptions{})
	if got := len(drain(t, it)); got != 2 {
		t.Errorf("class=od matched %d, want 2", got)
	}

	it, _ = f.List(nil, ListOptions{})
	if got := len(drain(t, it)); got != 3 {
		t.Errorf("nil request matched %d, want 3", got)
	}
}

func TestListIterator_All(t *testing.T) {
	f, _ := newTestFDB(t)
	archiveAll(t, f, map[string]string{"a=1": "", "a=2": "", "a=3": ""})

	it, _ := f.List(mustRequest(t, "a=1/2/3"), ListOptions{})
	n := 0
	for el, err := range it.All() {
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		n++
		if v, _ := el.Key.Value("a"); v == "2" {
			break
		}
	}
	if n != 2 {
		t.Errorf("visited %d, want 2", n)
	}
	if it.Done() {
		t.Error("Done() = true after break")
	}
}
