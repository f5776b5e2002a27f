package storage

import (
	"bytes"
	"errors"
	"testing"
)

// backendTestSuite runs the same checks against any Backend implementation.
func backendTestSuite(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Run("CreateBucket", func(t *testing.T) {
		backend := newBackend(t)

		if err := backend.CreateBucket("test"); err != nil {
			t.Fatalf("CreateBucket failed: %v", err)
		}
		if err := backend.Put("test", "k", []byte("v")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		// Idempotent and non-destructive.
		if err := backend.CreateBucket("test"); err != nil {
			t.Errorf("CreateBucket should be idempotent: %v", err)
		}
		if got, err := backend.Get("test", "k"); err != nil || string(got) != "v" {
			t.Errorf("Get after second CreateBucket = %q, %v; want v", got, err)
		}
	})

	t.Run("MissingBucket", func(t *testing.T) {
		backend := newBackend(t)

		if _, err := backend.Get("nope", "k"); !errors.Is(err, ErrBucketNotFound) {
			t.Errorf("Get error = %v, want ErrBucketNotFound", err)
		}
		if err := backend.Put("nope", "k", nil); !errors.Is(err, ErrBucketNotFound) {
			t.Errorf("Put error = %v, want ErrBucketNotFound", err)
		}
		err := backend.ForEach("nope", func(string, []byte) error { return nil })
		if !errors.Is(err, ErrBucketNotFound) {
			t.Errorf("ForEach error = %v, want ErrBucketNotFound", err)
		}
	})

	t.Run("PutAndGet", func(t *testing.T) {
		backend := newBackend(t)
		backend.CreateBucket("test")

		value := []byte("value1")
		if err := backend.Put("test", "key1", value); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := backend.Get("test", "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, value) {
			t.Errorf("Get returned %s, want %s", got, value)
		}

		// The stored value does not alias the caller's slice.
		got[0] = 'X'
		again, _ := backend.Get("test", "key1")
		if !bytes.Equal(again, value) {
			t.Errorf("stored value changed to %s", again)
		}

		if _, err := backend.Get("test", "nonexistent"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get of missing key error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		backend := newBackend(t)
		backend.CreateBucket("test")
		backend.Put("test", "key1", []byte("value1"))

		if err := backend.Delete("test", "key1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := backend.Get("test", "key1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("key still present after Delete: %v", err)
		}
		if err := backend.Delete("test", "key1"); err != nil {
			t.Errorf("Delete of missing key failed: %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		backend := newBackend(t)
		backend.CreateBucket("test")

		appendByte := func(old []byte) ([]byte, error) {
			return append(old, 'a'), nil
		}
		for range 3 {
			if err := backend.Update("test", "k", appendByte); err != nil {
				t.Fatalf("Update failed: %v", err)
			}
		}
		if got, _ := backend.Get("test", "k"); string(got) != "aaa" {
			t.Errorf("Got %q, want aaa", got)
		}

		errAbort := errors.New("abort")
		err := backend.Update("test", "k", func([]byte) ([]byte, error) { return []byte("zzz"), errAbort })
		if !errors.Is(err, errAbort) {
			t.Errorf("Update error = %v, want errAbort", err)
		}
		if got, _ := backend.Get("test", "k"); string(got) != "aaa" {
			t.Errorf("failed Update changed value to %q", got)
		}

		if err := backend.Update("test", "k", func([]byte) ([]byte, error) { return nil, nil }); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if _, err := backend.Get("test", "k"); !errors.Is(err, ErrNotFound) {
			t.Errorf("nil Update result did not delete key: %v", err)
		}
	})

	t.Run("ForEach", func(t *testing.T) {
		backend := newBackend(t)
		backend.CreateBucket("test")

		for _, k := range []string{"key3", "key1", "key2"} {
			backend.Put("test", k, []byte("v"+k))
		}

		var keys []string
		err := backend.ForEach("test", func(k string, v []byte) error {
			if string(v) != "v"+k {
				t.Errorf("ForEach: key %s = %s, want v%s", k, v, k)
			}
			keys = append(keys, k)
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach failed: %v", err)
		}

		want := []string{"key1", "key2", "key3"}
		if len(keys) != len(want) {
			t.Fatalf("ForEach visited %v, want %v", keys, want)
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Errorf("ForEach order %v, want %v", keys, want)
				break
			}
		}

		errStop := errors.New("stop")
		err = backend.ForEach("test", func(string, []byte) error { return errStop })
		if !errors.Is(err, errStop) {
			t.Errorf("ForEach error = %v, want errStop", err)
		}
	})
}
