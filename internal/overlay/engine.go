package overlay

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dop251/goja"
)

// DefaultTimeout bounds a single call into the overlay script.
const DefaultTimeout = 5 * time.Second

// Engine runs the overlay script in an embedded JavaScript VM against one
// data set. An Engine is not safe for concurrent use.
type Engine struct {
	vm      *goja.Runtime
	api     *goja.Object
	ctx     goja.Value
	data    *Data
	Timeout time.Duration
}

// NewEngine loads the overlay script and builds its context from data.
func NewEngine(data *Data) (*Engine, error) {
	if data == nil {
		data = &Data{}
	}
	vm := goja.New()
	if _, err := vm.RunScript(ScriptFile, string(Script())); err != nil {
		return nil, fmt.Errorf("failed to load overlay script: %w", err)
	}

	apiVal := vm.Get("ProvinceOverlay")
	if apiVal == nil || goja.IsUndefined(apiVal) || goja.IsNull(apiVal) {
		return nil, fmt.Errorf("overlay script did not export ProvinceOverlay")
	}
	e := &Engine{vm: vm, api: apiVal.ToObject(vm), data: data, Timeout: DefaultTimeout}

	payload, err := data.jsPayload()
	if err != nil {
		return nil, fmt.Errorf("failed to encode overlay data: %w", err)
	}
	jsonObj := vm.Get("JSON").ToObject(vm)
	parse, ok := goja.AssertFunction(jsonObj.Get("parse"))
	if !ok {
		return nil, fmt.Errorf("JSON.parse unavailable")
	}
	arg, err := parse(jsonObj, vm.ToValue(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse overlay data: %w", err)
	}

	e.ctx, err = e.call(context.Background(), "createOverlayContext", arg)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// call invokes an exported overlay function, interrupting the VM when ctx
// ends or the engine timeout passes.
func (e *Engine) call(ctx context.Context, name string, args ...goja.Value) (goja.Value, error) {
	fn, ok := goja.AssertFunction(e.api.Get(name))
	if !ok {
		return nil, fmt.Errorf("overlay script does not define %s", name)
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		e.vm.Interrupt(ctx.Err())
		close(fired)
	})
	v, err := fn(goja.Undefined(), args...)
	if !stop() {
		<-fired
	}
	e.vm.ClearInterrupt()

	if err != nil {
		return nil, fmt.Errorf("overlay %s failed: %w", name, err)
	}
	return v, nil
}

// Tooltip returns the tooltip HTML the overlay shows for a region.
func (e *Engine) Tooltip(ctx context.Context, id string) (string, error) {
	v, err := e.call(ctx, "buildTooltip", e.ctx, e.vm.ToValue(id))
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Highlighted returns the region IDs the culture filter would highlight for
// culture. Candidates default to the provinces.json IDs, or to the region
// data keys when that file was not loaded.
func (e *Engine) Highlighted(ctx context.Context, culture string, ids []string) ([]string, error) {
	if ids == nil {
		ids = e.candidates()
	}
	items := make([]interface{}, len(ids))
	for i, id := range ids {
		items[i] = id
	}

	v, err := e.call(ctx, "regionsForCulture", e.ctx, e.vm.ToValue(culture), e.vm.NewArray(items...))
	if err != nil {
		return nil, err
	}
	var out []string
	if err := e.vm.ExportTo(v, &out); err != nil {
		return nil, fmt.Errorf("unexpected regionsForCulture result: %w", err)
	}
	return out, nil
}

func (e *Engine) candidates() []string {
	if len(e.data.RegionIDs) > 0 {
		return e.data.RegionIDs
	}
	ids := make([]string, 0, len(e.data.RegionData))
	for id := range e.data.RegionData {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
