// Package store holds the registry of seguid store backends
// and operations that span more than one store.
package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/bobg/seguid"
)

// Factory creates a store from a JSON-style configuration map.
type Factory func(context.Context, map[string]interface{}) (seguid.Store, error)

var registry = make(map[string]Factory)

// Register makes a store type available to Create.
// Backend packages call it from init.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create creates a store of the registered type key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (seguid.Store, error) {
	f, ok := registry[key]
	if !ok {
		return nil, errors.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

// FromConfig creates a store from a configuration map
// whose "type" member names the store type.
func FromConfig(ctx context.Context, conf map[string]interface{}) (seguid.Store, error) {
	typ, ok := conf["type"].(string)
	if !ok {
		return nil, errors.New(`config missing "type" string`)
	}
	return Create(ctx, typ, conf)
}

// Types lists the registered store types.
func Types() []string {
	var out []string
	for k := range registry {
		out = append(out, k)
	}
	return out
}

// IntParam gets an integer from a configuration map.
// Configurations decoded with json's UseNumber hold json.Number values;
// others hold float64 or int.
func IntParam(conf map[string]interface{}, key string) (int, bool) {
	switch v := conf[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

// Nested creates the store described by the "nested" member of conf.
func Nested(ctx context.Context, conf map[string]interface{}) (seguid.Store, error) {
	nested, ok := conf["nested"].(map[string]interface{})
	if !ok {
		return nil, errors.New(`missing "nested" parameter`)
	}
	nestedType, ok := nested["type"].(string)
	if !ok {
		return nil, errors.New(`"nested" parameter missing "type"`)
	}
	s, err := Create(ctx, nestedType, nested)
	return s, errors.Wrap(err, "creating nested store")
}
