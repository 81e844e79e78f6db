package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

type kvFactory func(t *testing.T) KV

func backends() map[string]kvFactory {
	return map[string]kvFactory{
		"memory": func(t *testing.T) KV {
			return NewMemoryKV()
		},
		"sqlite": func(t *testing.T) KV {
			kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "kv.db"))
			if err != nil {
				t.Fatalf("NewSQLiteKV: %v", err)
			}
			return kv
		},
		"redis": func(t *testing.T) KV {
			mr := miniredis.RunT(t)
			kv, err := NewRedisKV(context.Background(), mr.Addr(), 0, "ids-top:")
			if err != nil {
				t.Fatalf("NewRedisKV: %v", err)
			}
			return kv
		},
	}
}

func TestKV_Contract(t *testing.T) {
	ctx := context.Background()

	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			kv := open(t)
			defer func() { _ = kv.Close() }()

			if _, err := kv.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Load(missing): want ErrNotFound, got %v", err)
			}

			if err := kv.Save(ctx, KeyAnnotations, []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := kv.Load(ctx, KeyAnnotations)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if string(got) != `{"a":1}` {
				t.Errorf("Load: got %s", got)
			}

			if err := kv.Save(ctx, KeyAnnotations, []byte(`{}`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, _ = kv.Load(ctx, KeyAnnotations)
			if string(got) != `{}` {
				t.Errorf("overwrite: last writer should win, got %s", got)
			}

			if err := kv.Delete(ctx, KeyAnnotations); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := kv.Load(ctx, KeyAnnotations); !errors.Is(err, ErrNotFound) {
				t.Errorf("Load after Delete: want ErrNotFound, got %v", err)
			}
			if err := kv.Delete(ctx, "never-set"); err != nil {
				t.Errorf("Delete of absent key should succeed, got %v", err)
			}
		})
	}
}

func TestSQLiteKV_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	kv, err := NewSQLiteKV(path)
	if err != nil {
		t.Fatalf("NewSQLiteKV: %v", err)
	}
	if err := kv.Save(ctx, KeySavedFilters, []byte(`[]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	kv2, err := NewSQLiteKV(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = kv2.Close() }()

	got, err := kv2.Load(ctx, KeySavedFilters)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if string(got) != `[]` {
		t.Errorf("got %s", got)
	}
}

func TestRedisKV_Prefix(t *testing.T) {
	mr := miniredis.RunT(t)
	kv, err := NewRedisKV(context.Background(), mr.Addr(), 0, "team-a:")
	if err != nil {
		t.Fatalf("NewRedisKV: %v", err)
	}
	defer func() { _ = kv.Close() }()

	if err := kv.Save(context.Background(), KeyNotificationSettings, []byte(`{"enabled":true}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := mr.Get("team-a:" + KeyNotificationSettings)
	if err != nil {
		t.Fatalf("miniredis Get: %v", err)
	}
	if got != `{"enabled":true}` {
		t.Errorf("stored value: got %s", got)
	}
}

func TestMemoryKV_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	buf := []byte("abc")
	_ = kv.Save(ctx, "k", buf)
	buf[0] = 'z'

	got, _ := kv.Load(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("caller mutation leaked into store: %s", got)
	}
	got[1] = 'z'
	again, _ := kv.Load(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("returned slice aliases store: %s", again)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var out doc
	if err := LoadJSON(ctx, kv, "doc", &out); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadJSON(missing): want ErrNotFound, got %v", err)
	}

	if err := SaveJSON(ctx, kv, "doc", doc{Name: "x", Count: 2}); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	if err := LoadJSON(ctx, kv, "doc", &out); err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if out.Name != "x" || out.Count != 2 {
		t.Errorf("got %+v", out)
	}

	_ = kv.Save(ctx, "bad", []byte("{not json"))
	if err := LoadJSON(ctx, kv, "bad", &out); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("corrupt value: want decode error, got %v", err)
	}
}
