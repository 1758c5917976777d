package fdb

import (
	"errors"
	"testing"
)

func TestKey_Add(t *testing.T) {
	t.Run("overwrites in place", func(t *testing.T) {
		k := NewKey()
		k.Add("class", "od")
		k.Add("date", "20240101")
		if err := k.Add("CLASS", "rd"); err != nil {
			t.Fatalf("Add() error = %v", err)
		}

		if got := k.String(); got != "{class=rd,date=20240101}" {
			t.Errorf("String() = %q, want %q", got, "{class=rd,date=20240101}")
		}
		if k.Len() != 2 {
			t.Errorf("Len() = %d, want 2", k.Len())
		}
	})

	t.Run("rejects empty axis and value", func(t *testing.T) {
		k := NewKey()
		if err := k.Add("", "x"); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Add(\"\", x) error = %v, want InvalidArgument", err)
		}
		if err := k.Add("a", ""); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Add(a, \"\") error = %v, want InvalidArgument", err)
		}
	})

	t.Run("odd pairs", func(t *testing.T) {
		if _, err := KeyFromPairs("a", "1", "b"); CodeOf(err) != InvalidArgument {
			t.Errorf("KeyFromPairs() code = %v, want InvalidArgument", CodeOf(err))
		}
	})
}

func TestKey_EqualAndCanonical(t *testing.T) {
	a := mustKey(t, "step", "0", "param", "t")
	b := mustKey(t, "param", "t", "step", "0")
	c := mustKey(t, "param", "t", "step", "6")

	if !a.Equal(b) {
		t.Errorf("%s should equal %s", a, b)
	}
	if a.Equal(c) {
		t.Errorf("%s should not equal %s", a, c)
	}
	if a.Canonical() != "param=t,step=0" {
		t.Errorf("Canonical() = %q", a.Canonical())
	}
	if a.Canonical() != b.Canonical() {
		t.Errorf("canonical forms differ: %q vs %q", a.Canonical(), b.Canonical())
	}
}

func TestKey_Matches(t *testing.T) {
	k := mustKey(t, "class", "od", "step", "0", "param", "t")

	tests := []struct {
		name    string
		partial *Key
		want    bool
	}{
		{"empty partial", NewKey(), true},
		{"subset", mustKey(t, "param", "t"), true},
		{"full", mustKey(t, "param", "t", "step", "0", "class", "od"), true},
		{"wrong value", mustKey(t, "param", "u"), false},
		{"unknown axis", mustKey(t, "levtype", "sfc"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := k.Matches(tt.partial); got != tt.want {
				t.Errorf("Matches(%s) = %v, want %v", tt.partial, got, tt.want)
			}
		})
	}
}

func TestKey_CloneIsIndependent(t *testing.T) {
	k := mustKey(t, "a", "1")
	c := k.Clone()
	c.Add("a", "2")
	c.Add("b", "3")

	if v, _ := k.Value("a"); v != "1" {
		t.Errorf("original changed: a=%s", v)
	}
	if k.Len() != 1 {
		t.Errorf("original Len() = %d, want 1", k.Len())
	}
}

func TestKeySet(t *testing.T) {
	ks := NewKeySet("Class", "date", "class", "")
	if ks.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", ks.Len())
	}
	if !ks.Contains("CLASS") {
		t.Error("Contains(CLASS) = false")
	}
	if ks.Contains("step") {
		t.Error("Contains(step) = true")
	}
	if got := ks.Names(); got[0] != "class" || got[1] != "date" {
		t.Errorf("Names() = %v", got)
	}
	ks.Clean()
	if ks.Len() != 0 {
		t.Errorf("Len() after Clean = %d", ks.Len())
	}
}

func TestKey_CanonicalEscapesDelimiters(t *testing.T) {
	tests := []struct {
		name string
		a, b *Key
	}{
		{"comma and equals in value", mustKey(t, "a", "1", "b", "2"), mustKey(t, "a", "1,b=2")},
		{"equals in value", mustKey(t, "a", "b=c"), mustKey(t, "a=b", "c")},
		{"trailing backslash", mustKey(t, "a", `1\`, "b", "2"), mustKey(t, "a", `1\,b=2`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a.Canonical() == tt.b.Canonical() {
				t.Errorf("%s and %s share canonical form %q", tt.a, tt.b, tt.a.Canonical())
			}
		})
	}

	if got := mustKey(t, "a", `1,b=2\`).Canonical(); got != `a=1\,b\=2\\` {
		t.Errorf("Canonical() = %q, want %q", got, `a=1\,b\=2\\`)
	}
}
