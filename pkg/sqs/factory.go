package sqs

import (
	"reflect"
	"strings"
	"sync"
)

var clientBaseType = reflect.TypeOf(ClientBase{})

// Factory builds declarative queue clients and memoizes one implementation
// per declared type. It is created at startup, queried thereafter, and torn
// down with Close. Construction of a type happens exactly once even under
// concurrent first requests; a type that failed to build fails the same way
// on every later request.
type Factory struct {
	messenger *Messenger

	mu      sync.Mutex
	entries map[reflect.Type]*factoryEntry
}

type factoryEntry struct {
	once   sync.Once
	client any
	err    error
}

// NewFactory creates a Factory dispatching to the given Messenger.
func NewFactory(m *Messenger) *Factory {
	return &Factory{
		messenger: m,
		entries:   make(map[reflect.Type]*factoryEntry),
	}
}

// Get returns the cached client for the prototype's type, building it on
// first request. The prototype is only used for its type; pass a nil
// typed pointer or any instance, e.g. Get((*OrderClient)(nil)).
func (f *Factory) Get(prototype any) (any, error) {
	t := reflect.TypeOf(prototype)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, newConfigError("client prototype must be a pointer to a struct, got %v", t)
	}

	f.mu.Lock()
	entry, ok := f.entries[t]
	if !ok {
		entry = &factoryEntry{}
		f.entries[t] = entry
	}
	f.mu.Unlock()

	entry.once.Do(func() {
		entry.client, entry.err = buildClient(f.messenger, t)
	})
	return entry.client, entry.err
}

// GetClient is the typed convenience form of Get.
func GetClient[T any](f *Factory) (*T, error) {
	client, err := f.Get((*T)(nil))
	if err != nil {
		return nil, err
	}
	return client.(*T), nil
}

// Close drops every cached client. Futures already handed out keep working;
// only the cache is torn down.
func (f *Factory) Close() {
	f.mu.Lock()
	f.entries = make(map[reflect.Type]*factoryEntry)
	f.mu.Unlock()
}

// buildClient constructs one implementation of the declared type: it
// resolves every func field's descriptor and parameter roles once, then
// fills the field with a dispatch-bound implementation. Any declaration
// problem aborts the whole build; a partially built client never escapes.
func buildClient(m *Messenger, t reflect.Type) (any, error) {
	elem := t.Elem()

	baseIndex := -1
	name := elem.Name()
	for i := 0; i < elem.NumField(); i++ {
		field := elem.Field(i)
		if field.Anonymous && field.Type == clientBaseType {
			baseIndex = i
			if tag, ok := field.Tag.Lookup("sqs"); ok {
				parsed, err := parseClientTag(elem.Name(), tag)
				if err != nil {
					return nil, err
				}
				if parsed != "" {
					name = parsed
				}
			}
			break
		}
	}
	if baseIndex < 0 {
		return nil, newConfigError("type %s is not a queue client: embed sqs.ClientBase", elem.Name())
	}

	instance := reflect.New(elem)
	base := instance.Elem().Field(baseIndex).Addr().Interface().(*ClientBase)
	base.setName(name)

	operations := 0
	for i := 0; i < elem.NumField(); i++ {
		field := elem.Field(i)
		if field.Type.Kind() != reflect.Func || field.PkgPath != "" {
			continue
		}

		tag, ok := field.Tag.Lookup("sqs")
		if !ok {
			return nil, newConfigError("field %s.%s lacks an operation kind", elem.Name(), field.Name)
		}

		fieldName := elem.Name() + "." + field.Name
		desc, err := parseDescriptor(fieldName, tag)
		if err != nil {
			return nil, err
		}

		roles, err := parseParamRoles(fieldName, field.Tag.Get("params"))
		if err != nil {
			return nil, err
		}

		bound, err := bindMethod(m, fieldName, field.Type, desc, roles)
		if err != nil {
			return nil, err
		}

		instance.Elem().Field(i).Set(reflect.MakeFunc(field.Type, bound.invoke))
		operations++
	}

	if operations == 0 {
		return nil, newConfigError("type %s declares no operations", elem.Name())
	}
	return instance.Interface(), nil
}

// parseClientTag parses the ClientBase tag `sqs:"client,name=..."` and
// returns the declared name, if any.
func parseClientTag(typeName, tag string) (string, error) {
	parts := strings.Split(tag, ",")
	if strings.TrimSpace(parts[0]) != "client" {
		return "", newConfigError("type %s has a malformed client tag %q", typeName, tag)
	}

	for _, part := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(part), "=")
		if key != "name" {
			return "", newConfigError("type %s client tag has unknown setting %q", typeName, key)
		}
		return value, nil
	}
	return "", nil
}
