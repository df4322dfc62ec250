package hostfunc

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var errKeyRequired = errors.New("key required")

// KVStore is an in-memory key-value store shared by every surface of a host.
// Values are kept as the JSON-compatible Go values scripts pass in.
type KVStore struct {
	mu   sync.RWMutex
	data map[string]any
}

func NewKVStore() *KVStore {
	return &KVStore{data: make(map[string]any)}
}

// Register installs kv_get, kv_set, kv_delete and kv_keys.
func (s *KVStore) Register(r *Registry) {
	r.Register("kv_get", s.Get)
	r.Register("kv_set", s.Set)
	r.Register("kv_delete", s.Delete)
	r.Register("kv_keys", s.Keys)
}

func keyArg(args map[string]any) (string, error) {
	key, ok := args["key"].(string)
	if !ok || key == "" {
		return "", errKeyRequired
	}
	return key, nil
}

// Get returns the value under key, or args["default"] when it is missing.
func (s *KVStore) Get(ctx context.Context, args map[string]any) (any, error) {
	key, err := keyArg(args)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if val, ok := s.data[key]; ok {
		return val, nil
	}
	return args["default"], nil
}

// Set stores value under key and returns what was there before, or null.
func (s *KVStore) Set(ctx context.Context, args map[string]any) (any, error) {
	key, err := keyArg(args)
	if err != nil {
		return nil, err
	}
	val, ok := args["value"]
	if !ok {
		return nil, errors.New("value required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.data[key]
	s.data[key] = val
	return prev, nil
}

// Delete reports whether key was present.
func (s *KVStore) Delete(ctx context.Context, args map[string]any) (any, error) {
	key, err := keyArg(args)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.data[key]
	delete(s.data, key)
	return existed, nil
}

// Keys returns the stored keys starting with args["prefix"], sorted.
func (s *KVStore) Keys(ctx context.Context, args map[string]any) (any, error) {
	prefix, _ := args["prefix"].(string)

	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out, nil
}
