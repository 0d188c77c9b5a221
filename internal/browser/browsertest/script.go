package browsertest

import (
	"fmt"

	"github.com/dop251/goja"
)

// Evaluate runs a JavaScript expression against a simulated window with
// localStorage. Function expressions are called with arg, matching
// page.evaluate(fn, arg).
func (p *Page) Evaluate(expression string, arg any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	vm := goja.New()
	storage := vm.NewObject()
	for k, v := range p.storage {
		if err := storage.Set(k, v); err != nil {
			return nil, err
		}
	}
	_ = storage.Set("getItem", func(key string) goja.Value {
		if v, ok := p.storage[key]; ok {
			return vm.ToValue(v)
		}
		return goja.Null()
	})
	_ = storage.Set("setItem", func(key, value string) {
		p.storage[key] = value
	})
	_ = storage.Set("removeItem", func(key string) {
		delete(p.storage, key)
	})
	if err := vm.Set("localStorage", storage); err != nil {
		return nil, err
	}
	if err := vm.Set("window", vm.GlobalObject()); err != nil {
		return nil, err
	}

	v, err := vm.RunString("(" + expression + ")")
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate script: %w", err)
	}
	if fn, ok := goja.AssertFunction(v); ok {
		v, err = fn(goja.Undefined(), vm.ToValue(arg))
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate script: %w", err)
		}
	}
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return v.Export(), nil
}
