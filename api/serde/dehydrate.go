// Copyright 2026 Luis Neves
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serde

import (
	"fmt"
	"reflect"

	"github.com/lcneves/wake/api"
)

// Dehydrator turns step inputs into a stable, replayable encoding before
// they are embedded in run events. Plain values are serialized with the
// configured serde; values that cannot be serialized (functions, open
// connections) are encoded as named references into the workflow's global
// scope, so that replay resolves them against the live environment instead
// of a stale snapshot.
type Dehydrator struct {
	serder  BinarySerde
	globals map[string]any
}

func NewDehydrator(serder BinarySerde, globals map[string]any) *Dehydrator {
	return &Dehydrator{serder: serder, globals: globals}
}

// DehydrateStep encodes a step invocation's positional args, closure
// variables and optional receiver.
func (d *Dehydrator) DehydrateStep(args []any, closure map[string]any, thisVal any) (api.StepInput, error) {
	input := api.StepInput{
		Args: make([]api.EncodedValue, len(args)),
	}

	for i, arg := range args {
		ev, err := d.DehydrateValue(arg)
		if err != nil {
			return api.StepInput{}, fmt.Errorf("dehydrate arg %d: %w", i, err)
		}
		input.Args[i] = ev
	}

	if len(closure) > 0 {
		input.Closure = make(map[string]api.EncodedValue, len(closure))
		for name, v := range closure {
			ev, err := d.DehydrateValue(v)
			if err != nil {
				return api.StepInput{}, fmt.Errorf("dehydrate closure var %q: %w", name, err)
			}
			input.Closure[name] = ev
		}
	}

	if thisVal != nil {
		ev, err := d.DehydrateValue(thisVal)
		if err != nil {
			return api.StepInput{}, fmt.Errorf("dehydrate receiver: %w", err)
		}
		input.This = &ev
	}

	return input, nil
}

// DehydrateValue encodes a single value. Serialization is attempted first;
// on failure the global scope is scanned for an identical value and a
// reference is stored instead.
func (d *Dehydrator) DehydrateValue(v any) (api.EncodedValue, error) {
	data, err := d.serder.SerializeBinary(v)
	if err == nil {
		return api.EncodedValue{Kind: api.EncodedKindValue, Data: data}, nil
	}

	for name, g := range d.globals {
		if identical(v, g) {
			return api.EncodedValue{Kind: api.EncodedKindGlobal, Name: name}, nil
		}
	}

	return api.EncodedValue{}, fmt.Errorf("value of type %T is not serializable and not found in global scope: %w", v, err)
}

// HydrateValue decodes a single value, resolving global references against
// the current scope.
func (d *Dehydrator) HydrateValue(ev api.EncodedValue) (any, error) {
	switch ev.Kind {
	case api.EncodedKindValue:
		var out any
		if err := d.serder.DeserializeBinary(ev.Data, &out); err != nil {
			return nil, err
		}
		return out, nil
	case api.EncodedKindGlobal:
		g, ok := d.globals[ev.Name]
		if !ok {
			return nil, fmt.Errorf("global %q is not present in the current scope", ev.Name)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown encoded value kind %q", ev.Kind)
	}
}

// identical reports whether two values are the same runtime object. It is
// only consulted for values that failed serialization, so reference
// identity is the right notion of sameness.
func identical(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if va.Kind() != vb.Kind() {
		return false
	}
	switch va.Kind() {
	case reflect.Func, reflect.Chan, reflect.Map, reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	default:
		if va.Comparable() && vb.Comparable() {
			return va.Equal(vb)
		}
		return false
	}
}
