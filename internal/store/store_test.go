package store_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"fdb-go/internal/fdb"
	"fdb-go/internal/store"
	"fdb-go/internal/testutil"
)

func key(t *testing.T, pairs ...string) *fdb.Key {
	t.Helper()

	k, err := fdb.KeyFromPairs(pairs...)
	if err != nil {
		t.Fatalf("KeyFromPairs(%v) error = %v", pairs, err)
	}
	return k
}

func put(t *testing.T, s *testutil.TestStore, k *fdb.Key, data string) {
	t.Helper()

	if err := s.Put(k, strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put(%s) error = %v", k, err)
	}
}

func readAll(t *testing.T, s *testutil.TestStore, k *fdb.Key) string {
	t.Helper()

	rc, err := s.Open(k)
	if err != nil {
		t.Fatalf("Open(%s) error = %v", k, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading %s: %v", k, err)
	}
	return string(data)
}

func TestFieldStore_RoundTrip(t *testing.T) {
	payloads := map[string]string{
		"empty":      "",
		"small":      "GRIB....7777",
		"repetitive": strings.Repeat("0123456789", 20000),
	}

	for _, comp := range []store.Compression{store.CompressionNone, store.CompressionZstd, store.CompressionLZ4} {
		for _, encrypted := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/encrypted=%v", comp, encrypted), func(t *testing.T) {
				opts := store.Options{Compression: comp}
				var dc store.DecryptionContext
				if encrypted {
					opts.Encryptor, dc = testutil.NewTestEncryptor()
				}
				s := testutil.NewTestStore(t, opts)
				s.SetDecryptionContext(dc)

				for name, data := range payloads {
					k := key(t, "class", "od", "param", name)
					put(t, s, k, data)

					if got := readAll(t, s, k); got != data {
						t.Errorf("%s: read %d bytes, want %d", name, len(got), len(data))
					}
				}
			})
		}
	}
}

func TestFieldStore_StoredEncoding(t *testing.T) {
	data := strings.Repeat("abcdefgh", 4096)

	t.Run("compressed object is smaller", func(t *testing.T) {
		s := testutil.NewTestStore(t, store.Options{Compression: store.CompressionZstd})
		put(t, s, key(t, "class", "od"), data)

		f, err := s.DB.FindCurrentField("class=od")
		if err != nil || f == nil {
			t.Fatalf("FindCurrentField() = %v, %v", f, err)
		}
		if f.Codec != "zstd" {
			t.Errorf("Codec = %q, want zstd", f.Codec)
		}
		if f.StoredSize >= f.Length {
			t.Errorf("StoredSize = %d, want < Length %d", f.StoredSize, f.Length)
		}
		if f.Checksum != testutil.Blake3Hex([]byte(data)) {
			t.Errorf("Checksum = %s, want blake3 of plaintext", f.Checksum)
		}
	})

	t.Run("encrypted object differs from plaintext", func(t *testing.T) {
		enc, _ := testutil.NewTestEncryptor()
		s := testutil.NewTestStore(t, store.Options{Encryptor: enc})
		put(t, s, key(t, "class", "od"), data)

		rc, err := s.Vault.OpenContent("object-0001")
		if err != nil {
			t.Fatalf("OpenContent() error = %v", err)
		}
		raw, _ := io.ReadAll(rc)
		rc.Close()
		if bytes.Equal(raw, []byte(data)) {
			t.Error("vault object is the plaintext")
		}

		f, _ := s.DB.FindCurrentField("class=od")
		if !f.Encrypted {
			t.Error("field not marked encrypted")
		}
	})
}

func TestFieldStore_Masking(t *testing.T) {
	s := testutil.NewTestStore(t, store.Options{})

	k := key(t, "class", "od", "step", "0")
	put(t, s, k, "first")
	s.Clock.Advance(time.Minute)
	put(t, s, k, "second")

	if got := readAll(t, s, k); got != "second" {
		t.Errorf("Open() = %q, want newest version", got)
	}

	visible, err := s.Match(key(t, "class", "od"), fdb.MatchOptions{})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(visible) != 1 || visible[0].Location.Object != "object-0002" {
		t.Fatalf("Match() = %v, want only the newest entry", visible)
	}

	all, err := s.Match(key(t, "class", "od"), fdb.MatchOptions{Duplicates: true})
	if err != nil {
		t.Fatalf("Match(duplicates) error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Match(duplicates) returned %d entries, want 2", len(all))
	}
	if !all[0].Masked || all[1].Masked {
		t.Errorf("masked flags = [%v %v], want [true false]", all[0].Masked, all[1].Masked)
	}
}

func TestFieldStore_Match(t *testing.T) {
	s := testutil.NewTestStore(t, store.Options{})

	put(t, s, key(t, "class", "od", "step", "0", "param", "t"), "a")
	put(t, s, key(t, "class", "od", "step", "6", "param", "t"), "b")
	put(t, s, key(t, "class", "rd", "step", "0", "param", "t"), "c")

	tests := []struct {
		name    string
		partial *fdb.Key
		want    int
	}{
		{"empty key matches all", fdb.NewKey(), 3},
		{"one axis", key(t, "class", "od"), 2},
		{"two axes", key(t, "class", "od", "step", "6"), 1},
		{"first axis narrows, second rejects", key(t, "step", "0", "class", "zz"), 0},
		{"unknown axis", key(t, "levtype", "sfc"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Match(tt.partial, fdb.MatchOptions{})
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Match(%s) returned %d entries, want %d", tt.partial, len(got), tt.want)
			}
			for _, e := range got {
				if !e.Key.Matches(tt.partial) {
					t.Errorf("entry %s does not match %s", e.Key, tt.partial)
				}
			}
		})
	}
}

func TestFieldStore_Exists(t *testing.T) {
	s := testutil.NewTestStore(t, store.Options{})
	put(t, s, key(t, "class", "od", "step", "0"), "x")

	tests := []struct {
		k    *fdb.Key
		want bool
	}{
		{key(t, "step", "0", "class", "od"), true},
		{key(t, "class", "od"), false},
		{key(t, "class", "od", "step", "0", "param", "t"), false},
	}
	for _, tt := range tests {
		got, err := s.Exists(tt.k)
		if err != nil {
			t.Fatalf("Exists(%s) error = %v", tt.k, err)
		}
		if got != tt.want {
			t.Errorf("Exists(%s) = %v, want %v", tt.k, got, tt.want)
		}
	}
}

func TestFieldStore_OpenErrors(t *testing.T) {
	t.Run("unknown key", func(t *testing.T) {
		s := testutil.NewTestStore(t, store.Options{})

		_, err := s.Open(key(t, "class", "od"))
		if fdb.CodeOf(err) != fdb.NotFound {
			t.Errorf("Open() error = %v, want NotFound", err)
		}
	})

	t.Run("payload missing from vault", func(t *testing.T) {
		s := testutil.NewTestStore(t, store.Options{})
		k := key(t, "class", "od")
		put(t, s, k, "data")
		if err := s.Vault.DeleteContent("object-0001"); err != nil {
			t.Fatalf("DeleteContent() error = %v", err)
		}

		_, err := s.Open(k)
		if fdb.CodeOf(err) != fdb.NotFound {
			t.Errorf("Open() error = %v, want NotFound", err)
		}
	})

	t.Run("encrypted without passphrase", func(t *testing.T) {
		enc, _ := testutil.NewTestEncryptor()
		s := testutil.NewTestStore(t, store.Options{Encryptor: enc})
		k := key(t, "class", "od")
		put(t, s, k, "secret")

		if _, err := s.Open(k); err == nil {
			t.Error("Open() of encrypted field without decryption context should fail")
		}
	})

	t.Run("corrupted payload", func(t *testing.T) {
		s := testutil.NewTestStore(t, store.Options{})
		k := key(t, "class", "od")
		put(t, s, k, "original")
		if err := s.Vault.PutContent("object-0001", strings.NewReader("tampered"), 8); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}

		rc, err := s.Open(k)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer rc.Close()
		if _, err := io.ReadAll(rc); !errors.Is(err, store.ErrChecksumMismatch) {
			t.Errorf("ReadAll() error = %v, want ErrChecksumMismatch", err)
		}
	})

	t.Run("truncated payload", func(t *testing.T) {
		s := testutil.NewTestStore(t, store.Options{})
		k := key(t, "class", "od")
		put(t, s, k, "original")
		if err := s.Vault.PutContent("object-0001", strings.NewReader("orig"), 4); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}

		rc, err := s.Open(k)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer rc.Close()
		if _, err := io.ReadAll(rc); err == nil {
			t.Error("ReadAll() of truncated payload should fail")
		}
	})
}

func TestFieldStore_PutSizeMismatch(t *testing.T) {
	s := testutil.NewTestStore(t, store.Options{})

	k := key(t, "class", "od")
	if err := s.Put(k, strings.NewReader("abc"), 10); err == nil {
		t.Fatal("Put() expected size mismatch error")
	}

	if n := s.Vault.ObjectCount(); n != 0 {
		t.Errorf("vault holds %d objects after failed put, want 0", n)
	}
	ok, err := s.Exists(k)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if ok {
		t.Error("failed put left an index entry")
	}
}

func TestFieldStore_Remove(t *testing.T) {
	s := testutil.NewTestStore(t, store.Options{})

	k := key(t, "class", "od")
	put(t, s, k, "v1")
	put(t, s, k, "v2")

	entries, err := s.Match(k, fdb.MatchOptions{})
	if err != nil || len(entries) != 1 {
		t.Fatalf("Match() = %v, %v", entries, err)
	}

	if err := s.Remove(entries[0]); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := s.Vault.OpenContent("object-0002"); err == nil {
		t.Error("payload of removed field still in vault")
	}

	// The older version becomes visible again.
	if got := readAll(t, s, k); got != "v1" {
		t.Errorf("Open() after remove = %q, want v1", got)
	}
}

func TestFieldStore_ThroughFDB(t *testing.T) {
	enc, dec := testutil.NewTestEncryptor()
	f, ts := testutil.NewTestFDB(t, store.Options{Encryptor: enc, Compression: store.CompressionZstd})
	ts.SetDecryptionContext(dec)

	if err := f.Archive(key(t, "class", "od", "step", "0"), []byte("old")); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	ts.Clock.Advance(time.Minute)
	if err := f.Archive(key(t, "class", "od", "step", "0"), []byte("new")); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if err := f.Archive(key(t, "class", "od", "step", "6"), []byte("six")); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	req, err := fdb.ParseRequest("class=od,step=0/6")
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}

	r, err := f.Retrieve(req)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if r.Size() != 6 {
		t.Errorf("Size() = %d, want 6", r.Size())
	}
	if _, err := r.Seek(2, io.SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	rest, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	r.Close()
	if string(rest) != "wsix" {
		t.Errorf("read after seek = %q, want %q", rest, "wsix")
	}

	wipeReq, err := fdb.ParseRequest("class=od")
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	wiped, err := f.Wipe(wipeReq, true)
	if err != nil {
		t.Fatalf("Wipe() error = %v", err)
	}
	if len(wiped) != 3 {
		t.Errorf("Wipe() removed %d fields, want 3 including the masked one", len(wiped))
	}
	if n := ts.Vault.ObjectCount(); n != 0 {
		t.Errorf("vault still holds %d objects after wipe", n)
	}
}

func TestFieldStore_DelimitersInValues(t *testing.T) {
	s := testutil.NewTestStore(t, store.Options{})

	plain := key(t, "a", "1", "b", "2")
	joined := key(t, "a", "1,b=2")
	put(t, s, plain, "first")
	put(t, s, joined, "second")

	for _, tt := range []struct {
		k    *fdb.Key
		want string
	}{
		{plain, "first"},
		{joined, "second"},
	} {
		ok, err := s.Exists(tt.k)
		if err != nil {
			t.Fatalf("Exists(%s) error = %v", tt.k, err)
		}
		if !ok {
			t.Errorf("Exists(%s) = false", tt.k)
		}
		if got := readAll(t, s, tt.k); got != tt.want {
			t.Errorf("Open(%s) = %q, want %q", tt.k, got, tt.want)
		}
	}

	entries, err := s.Match(fdb.NewKey(), fdb.MatchOptions{Duplicates: true})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	for _, e := range entries {
		if e.Masked {
			t.Errorf("%s masked by a different key", e.Key)
		}
	}
}

func TestFieldStore_RetrieveDetectsTampering(t *testing.T) {
	f, ts := testutil.NewTestFDB(t, store.Options{})
	k := key(t, "class", "od")
	if err := f.Archive(k, []byte("HELLO WORLD")); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if err := ts.Vault.PutContent("object-0001", strings.NewReader("HELLO WORLF"), 11); err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}

	req, err := fdb.ParseRequest("class=od")
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	r, err := f.Retrieve(req)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	defer r.Close()

	_, err = io.ReadAll(r)
	if !errors.Is(err, store.ErrChecksumMismatch) {
		t.Errorf("ReadAll() error = %v, want ErrChecksumMismatch", err)
	}
	if fdb.CodeOf(err) != fdb.BackingStoreError {
		t.Errorf("CodeOf() = %v, want %v", fdb.CodeOf(err), fdb.BackingStoreError)
	}
}
