package model

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/schema"
)

// Kind is the registered, read-only description of a model type.
type Kind struct {
	Name       string
	Collection string
	Schema     *schema.Schema

	typ      reflect.Type
	registry *Registry
}

// New returns a fresh, bound instance of the kind.
func (k *Kind) New() Model {
	m := reflect.New(k.typ).Interface().(Model)
	k.registry.bind(m, k)
	return m
}

// Registry holds model kinds and enums. There is no process-wide registry:
// create one per application and inject it.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Kind
	byType map[reflect.Type]*Kind
	enums  map[string]*Enum
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used by references resolved through models of
// this registry.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byName: make(map[string]*Kind),
		byType: make(map[reflect.Type]*Kind),
		enums:  make(map[string]*Enum),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Logger returns the registry logger.
func (r *Registry) Logger() *slog.Logger { return r.logger }

// Register declares the given model types. DeclareTypes runs once per type;
// registering the same type again is a no-op.
func (r *Registry) Register(protos ...Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, proto := range protos {
		if err := r.register(proto); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) register(proto Model) error {
	rt := reflect.TypeOf(proto)
	if rt == nil || rt.Kind() != reflect.Pointer || rt.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T must be a pointer to a struct", ErrInvalidModel, proto)
	}
	typ := rt.Elem()
	if _, done := r.byType[typ]; done {
		return nil
	}

	name := typ.Name()
	if n, ok := proto.(Namer); ok {
		name = n.ModelName()
	}
	if name == "" {
		return fmt.Errorf("%w: %T has no name", ErrInvalidModel, proto)
	}
	if _, taken := r.byName[name]; taken {
		return fmt.Errorf("%w: model name %q already registered", ErrInvalidModel, name)
	}
	if _, taken := r.enums[name]; taken {
		return fmt.Errorf("%w: %q already registered as an enum", ErrInvalidModel, name)
	}

	d := schema.NewDeclaration(name)
	d.Field(core.KeyID, schema.ID().Nullable())
	proto.DeclareTypes(d)
	s, err := d.Build()
	if err != nil {
		return fmt.Errorf("declare %s: %w", name, err)
	}

	k := &Kind{Name: name, Schema: s, typ: typ, registry: r}
	if c, ok := proto.(Collector); ok {
		k.Collection = c.Collection()
	}
	r.byName[name] = k
	r.byType[typ] = k
	return nil
}

// RegisterEnum adds enum types.
func (r *Registry) RegisterEnum(enums ...*Enum) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range enums {
		if _, taken := r.byName[e.name]; taken {
			return fmt.Errorf("%w: %q already registered as a model", ErrInvalidModel, e.name)
		}
		if prev, taken := r.enums[e.name]; taken && prev != e {
			return fmt.Errorf("%w: enum %q already registered", ErrInvalidModel, e.name)
		}
		r.enums[e.name] = e
	}
	return nil
}

// Kind returns the kind registered under name.
func (r *Registry) Kind(name string) (*Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return k, nil
}

// KindOf returns the kind of m's Go type.
func (r *Registry) KindOf(m Model) (*Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt := reflect.TypeOf(m)
	if rt == nil || rt.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("%w: %T", ErrUnknownModel, m)
	}
	k, ok := r.byType[rt.Elem()]
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnknownModel, m)
	}
	return k, nil
}

// Enum returns the enum registered under name.
func (r *Registry) Enum(name string) (*Enum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.enums[name]
	if !ok {
		return nil, fmt.Errorf("%w: enum %s", ErrUnknownModel, name)
	}
	return e, nil
}

// New creates a bound instance of the named model.
func (r *Registry) New(name string) (Model, error) {
	k, err := r.Kind(name)
	if err != nil {
		return nil, err
	}
	return k.New(), nil
}

// Init binds a caller-allocated model, dropping any values it held.
func (r *Registry) Init(m Model) error {
	k, err := r.KindOf(m)
	if err != nil {
		return err
	}
	r.bind(m, k)
	return nil
}

func (r *Registry) bind(m Model, k *Kind) {
	m.base().bind(k)
	if i, ok := m.(Initializer); ok {
		i.Init()
	}
}

// Names returns the registered model names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every custom field type names a registered model or enum.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, k := range r.byName {
		for _, field := range k.Schema.Names() {
			t, _ := k.Schema.Field(field)
			switch t.Kind() {
			case schema.KindModel:
				if _, ok := r.byName[t.Name()]; !ok {
					errs = append(errs, fmt.Errorf("%s.%s: %w: %s", k.Name, field, ErrUnknownModel, t.Name()))
				}
			case schema.KindEnum:
				if _, ok := r.enums[t.Name()]; !ok {
					errs = append(errs, fmt.Errorf("%s.%s: %w: enum %s", k.Name, field, ErrUnknownModel, t.Name()))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// New creates a bound instance of T, which must be registered.
func New[T Model](r *Registry) (T, error) {
	var zero T
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Pointer {
		return zero, fmt.Errorf("%w: %v", ErrInvalidModel, rt)
	}
	r.mu.RLock()
	k, ok := r.byType[rt.Elem()]
	r.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("%w: %v", ErrUnknownModel, rt)
	}
	return k.New().(T), nil
}
