package hostfunc

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestKVSetReturnsPrevious(t *testing.T) {
	kv := NewKVStore()
	ctx := context.Background()

	prev, err := kv.Set(ctx, map[string]any{"key": "user", "value": "ada"})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if prev != nil {
		t.Errorf("first Set returned %v, want nil", prev)
	}

	prev, _ = kv.Set(ctx, map[string]any{"key": "user", "value": "bob"})
	if prev != "ada" {
		t.Errorf("second Set returned %v, want ada", prev)
	}

	val, err := kv.Get(ctx, map[string]any{"key": "user"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "bob" {
		t.Errorf("Get = %v, want bob", val)
	}
}

func TestKVGetDefault(t *testing.T) {
	kv := NewKVStore()
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		want any
	}{
		{"missing", map[string]any{"key": "missing"}, nil},
		{"default", map[string]any{"key": "missing", "default": 3.0}, 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := kv.Get(ctx, tt.args)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if val != tt.want {
				t.Errorf("Get = %v, want %v", val, tt.want)
			}
		})
	}
}

func TestKVDeleteReportsExistence(t *testing.T) {
	kv := NewKVStore()
	ctx := context.Background()

	kv.Set(ctx, map[string]any{"key": "session", "value": true})

	for i, want := range []bool{true, false} {
		existed, err := kv.Delete(ctx, map[string]any{"key": "session"})
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if existed != want {
			t.Errorf("Delete #%d = %v, want %v", i+1, existed, want)
		}
	}
}

func TestKVKeysPrefix(t *testing.T) {
	kv := NewKVStore()
	ctx := context.Background()

	for _, k := range []string{"user:2", "order:1", "user:1"} {
		kv.Set(ctx, map[string]any{"key": k, "value": 1.0})
	}

	all, _ := kv.Keys(ctx, nil)
	if got := fmt.Sprint(all); got != "[order:1 user:1 user:2]" {
		t.Errorf("Keys = %s", got)
	}
	users, _ := kv.Keys(ctx, map[string]any{"prefix": "user:"})
	if got := fmt.Sprint(users); got != "[user:1 user:2]" {
		t.Errorf("Keys(user:) = %s", got)
	}
}

func TestKVRequiresKey(t *testing.T) {
	kv := NewKVStore()
	ctx := context.Background()

	for name, fn := range map[string]Func{"get": kv.Get, "set": kv.Set, "delete": kv.Delete} {
		if _, err := fn(ctx, map[string]any{"key": ""}); err != errKeyRequired {
			t.Errorf("%s: err = %v, want %v", name, err, errKeyRequired)
		}
	}
	if _, err := kv.Set(ctx, map[string]any{"key": "k"}); err == nil {
		t.Error("expected error for missing value")
	}
}

func TestKVConcurrentAccess(t *testing.T) {
	kv := NewKVStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			kv.Set(ctx, map[string]any{"key": fmt.Sprintf("k%d", n%5), "value": float64(n)})
			kv.Get(ctx, map[string]any{"key": "k0"})
			kv.Keys(ctx, nil)
		}(i)
	}
	wg.Wait()

	keys, _ := kv.Keys(ctx, nil)
	if n := len(keys.([]any)); n != 5 {
		t.Errorf("expected 5 keys, got %d", n)
	}
}

func TestRegistryInstallsKV(t *testing.T) {
	r := NewRegistry()
	NewKVStore().Register(r)

	if got := fmt.Sprint(r.List()); got != "[kv_delete kv_get kv_keys kv_set]" {
		t.Errorf("List = %s", got)
	}
	if _, ok := r.Get("kv_get"); !ok {
		t.Error("kv_get not registered")
	}
	if n := len(r.All()); n != 4 {
		t.Errorf("expected 4 functions, got %d", n)
	}
}
