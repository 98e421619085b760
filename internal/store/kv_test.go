package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backends runs fn against both KV implementations.
func backends(t *testing.T, fn func(t *testing.T, kv KV)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestStore(t)) })
	t.Run("map", func(t *testing.T) { fn(t, NewMap()) })
}

// ============================================================
// Scalars
// ============================================================

func TestGetMissingReturnsDefault(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()

		s, err := GetString(ctx, kv, "theme_preference", "SYSTEM")
		if err != nil || s != "SYSTEM" {
			t.Fatalf("GetString = %q, %v", s, err)
		}
		n, err := GetInt(ctx, kv, "salary_day", 1)
		if err != nil || n != 1 {
			t.Fatalf("GetInt = %d, %v", n, err)
		}
		f, err := GetFloat(ctx, kv, "total_sent", 2.5)
		if err != nil || f != 2.5 {
			t.Fatalf("GetFloat = %v, %v", f, err)
		}
		b, err := GetBool(ctx, kv, "locked", true)
		if err != nil || !b {
			t.Fatalf("GetBool = %v, %v", b, err)
		}
		ok, err := Has(ctx, kv, "salary_day")
		if err != nil || ok {
			t.Fatalf("Has = %v, %v", ok, err)
		}
	})
}

func TestSetThenGet(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()

		if err := SetString(ctx, kv, "goal_title", "Car"); err != nil {
			t.Fatal(err)
		}
		if err := SetInt(ctx, kv, "salary_day", 25); err != nil {
			t.Fatal(err)
		}
		if err := SetFloat(ctx, kv, "goal_price", 12999.99); err != nil {
			t.Fatal(err)
		}
		if err := SetBool(ctx, kv, "locked", true); err != nil {
			t.Fatal(err)
		}

		if s, _ := GetString(ctx, kv, "goal_title", ""); s != "Car" {
			t.Fatalf("goal_title = %q", s)
		}
		if n, _ := GetInt(ctx, kv, "salary_day", 0); n != 25 {
			t.Fatalf("salary_day = %d", n)
		}
		if f, _ := GetFloat(ctx, kv, "goal_price", 0); f != 12999.99 {
			t.Fatalf("goal_price = %v", f)
		}
		if b, _ := GetBool(ctx, kv, "locked", false); !b {
			t.Fatal("locked = false")
		}
	})
}

func TestSetIsIdempotent(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		for i := 0; i < 2; i++ {
			if err := SetInt(ctx, kv, "salary_day", 10); err != nil {
				t.Fatal(err)
			}
		}
		n, err := GetInt(ctx, kv, "salary_day", 0)
		if err != nil || n != 10 {
			t.Fatalf("salary_day = %d, %v", n, err)
		}
		keys, _ := kv.Keys(ctx)
		if diff := cmp.Diff([]string{"salary_day"}, keys); diff != "" {
			t.Fatalf("keys (-want +got):\n%s", diff)
		}
	})
}

func TestSetFloatRejectsNonFinite(t *testing.T) {
	kv := NewMap()
	if err := SetFloat(context.Background(), kv, "x", nanValue()); err == nil {
		t.Fatal("expected error for NaN")
	}
}

func TestTypeCoercion(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		kv.Put(ctx, "whole_float", Value{Kind: KindFloat, Raw: "25"})
		kv.Put(ctx, "str_num", StringValue("3.5"))
		kv.Put(ctx, "junk", StringValue("abc"))

		if n, err := GetInt(ctx, kv, "whole_float", 0); err != nil || n != 25 {
			t.Fatalf("whole_float = %d, %v", n, err)
		}
		if f, err := GetFloat(ctx, kv, "str_num", 0); err != nil || f != 3.5 {
			t.Fatalf("str_num = %v, %v", f, err)
		}
		n, err := GetInt(ctx, kv, "junk", 7)
		if n != 7 {
			t.Fatalf("junk should degrade to default, got %d", n)
		}
		if !IsCorrupt(err) {
			t.Fatalf("expected ErrCorrupt, got %v", err)
		}
		if _, err := GetInt(ctx, kv, "str_num", 0); !IsCorrupt(err) {
			t.Fatalf("3.5 is not an int, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		SetInt(ctx, kv, "a", 1)
		SetInt(ctx, kv, "b", 2)
		SetInt(ctx, kv, "c", 3)

		if err := kv.Delete(ctx, "a", "c", "missing"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		keys, _ := kv.Keys(ctx)
		if diff := cmp.Diff([]string{"b"}, keys); diff != "" {
			t.Fatalf("keys (-want +got):\n%s", diff)
		}
		if err := kv.Delete(ctx); err != nil {
			t.Fatalf("empty Delete: %v", err)
		}
	})
}

// ============================================================
// JSON values
// ============================================================

func TestJSONValues(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		type rec struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		}
		in := []rec{{"1", "one"}, {"2", "two"}}
		if err := PutJSON(ctx, kv, "events", in); err != nil {
			t.Fatal(err)
		}

		var out []rec
		found, err := GetJSON(ctx, kv, "events", &out)
		if err != nil || !found {
			t.Fatalf("GetJSON = %v, %v", found, err)
		}
		if diff := cmp.Diff(in, out); diff != "" {
			t.Fatalf("(-want +got):\n%s", diff)
		}

		found, err = GetJSON(ctx, kv, "missing", &out)
		if found || err != nil {
			t.Fatalf("missing key: %v, %v", found, err)
		}

		kv.Put(ctx, "bad", JSONValue([]byte("{not json")))
		found, err = GetJSON(ctx, kv, "bad", &out)
		if !found || !IsCorrupt(err) {
			t.Fatalf("bad json: %v, %v", found, err)
		}
	})
}

// ============================================================
// Update
// ============================================================

func TestUpdateCommitsAllWrites(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		SetInt(ctx, kv, "old", 1)

		err := kv.Update(ctx, func(tx Tx) error {
			if err := SetInt(ctx, tx, "a", 1); err != nil {
				return err
			}
			// Reads inside the transaction see its own writes.
			if n, _ := GetInt(ctx, tx, "a", 0); n != 1 {
				return fmt.Errorf("read-your-writes failed: %d", n)
			}
			return tx.Delete(ctx, "old")
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		keys, _ := kv.Keys(ctx)
		if diff := cmp.Diff([]string{"a"}, keys); diff != "" {
			t.Fatalf("keys (-want +got):\n%s", diff)
		}
	})
}

func TestUpdateRollsBackOnError(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		SetInt(ctx, kv, "keep", 1)

		boom := errors.New("boom")
		err := kv.Update(ctx, func(tx Tx) error {
			SetInt(ctx, tx, "keep", 99)
			SetInt(ctx, tx, "new", 1)
			tx.Delete(ctx, "keep")
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
		if n, _ := GetInt(ctx, kv, "keep", 0); n != 1 {
			t.Fatalf("keep = %d, want 1 after rollback", n)
		}
		if ok, _ := Has(ctx, kv, "new"); ok {
			t.Fatal("new key should not exist after rollback")
		}
	})
}

func TestConcurrentWritesToDifferentKeys(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if err := SetInt(ctx, kv, fmt.Sprintf("k%02d", i), i); err != nil {
					t.Errorf("SetInt: %v", err)
				}
			}(i)
		}
		wg.Wait()
		keys, _ := kv.Keys(ctx)
		if len(keys) != 20 {
			t.Fatalf("got %d keys, want 20", len(keys))
		}
	})
}
