package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"strongholdcore/internal/blob/core"
)

func TestMemoryPutReplacesAndLists(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Put(ctx, "sessions/a.json", strings.NewReader("one"), core.PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "sessions/a.json", strings.NewReader("two!"), core.PutOptions{}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := s.Put(ctx, "other/b.json", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	info, rc, err := s.Get(ctx, "sessions/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "two!" || info.Size != 4 {
		t.Fatalf("unexpected blob %q size %d", body, info.Size)
	}
	list, err := s.List(ctx, "sessions/")
	if err != nil || len(list) != 1 || list[0].Key != "sessions/a.json" {
		t.Fatalf("unexpected list %+v err %v", list, err)
	}
}

func TestMemoryMissingAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, _, err := s.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.Put(ctx, " ", strings.NewReader(""), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
	_, _ = s.Put(ctx, "k", strings.NewReader("v"), core.PutOptions{Metadata: map[string]string{"a": "1"}})
	ok, err := s.Delete(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("delete existing: %v %v", ok, err)
	}
	ok, _ = s.Delete(ctx, "k")
	if ok {
		t.Fatalf("second delete reported existing")
	}
	if s.Driver() != core.DriverMemory {
		t.Fatalf("driver %s", s.Driver())
	}
}
