package wasmguest

import (
	"context"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/errors"
)

// moduleABI adapts one instantiated wazero module to the abi seam. Exported
// functions are cached on first use; the allocator pair is resolved once at
// construction.
type moduleABI struct {
	mod       api.Module
	mem       api.Memory
	allocFn   api.Function
	freeFn    api.Function
	funcCache map[string]api.Function
	cacheMu   sync.RWMutex
	allocBuf  []uint64
	allocMu   sync.Mutex
	// simple allocators take (size) instead of (old, oldSize, align, size)
	simple bool
}

func newModuleABI(mod api.Module) (*moduleABI, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, errors.New("guest module exports no memory")
	}

	a := &moduleABI{
		mod:       mod,
		mem:       mem,
		funcCache: make(map[string]api.Function, len(requiredExports)),
		allocBuf:  make([]uint64, 4),
	}

	defs := mod.ExportedFunctionDefinitions()

	var missing []string
	for _, name := range requiredExports {
		if defs[name] == nil {
			missing = append(missing, name)
			continue
		}
		a.funcCache[name] = mod.ExportedFunction(name)
	}
	if len(missing) > 0 {
		return nil, errors.Newf("guest module is missing exports: %s", strings.Join(missing, ", "))
	}

	// Resolve the allocator, trying standard cabi_realloc first, then the
	// legacy names.
	allocDef := defs[CabiRealloc]
	if allocDef == nil {
		allocDef = defs[legacyRealloc]
	}
	if allocDef == nil {
		allocDef = defs[legacyAlloc]
	}
	if allocDef == nil {
		allocDef = defs[simpleAlloc]
	}
	if allocDef == nil {
		return nil, errors.New("guest module exports no allocator")
	}
	a.allocFn = mod.ExportedFunction(allocDef.Name())
	a.simple = len(allocDef.ParamTypes()) < 4

	if fn := mod.ExportedFunction(CabiFree); fn != nil {
		a.freeFn = fn
	} else if fn := mod.ExportedFunction(legacyDealloc); fn != nil {
		a.freeFn = fn
	} else if fn := mod.ExportedFunction(simpleFree); fn != nil {
		a.freeFn = fn
	}

	debugf("guest ABI bound: allocator=%s simple=%v free=%v", allocDef.Name(), a.simple, a.freeFn != nil)
	return a, nil
}

func (a *moduleABI) call(ctx context.Context, name string, stack []uint64) error {
	a.cacheMu.RLock()
	fn := a.funcCache[name]
	a.cacheMu.RUnlock()

	if fn == nil {
		fn = a.mod.ExportedFunction(name)
		if fn == nil {
			return errors.Newf("guest does not export '%s'", name)
		}
		a.cacheMu.Lock()
		a.funcCache[name] = fn
		a.cacheMu.Unlock()
	}

	return fn.CallWithStack(ctx, stack)
}

func (a *moduleABI) read(offset, length uint32) ([]byte, error) {
	data, ok := a.mem.Read(offset, length)
	if !ok {
		return nil, errors.Newf("guest memory read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (a *moduleABI) write(offset uint32, data []byte) error {
	if ok := a.mem.Write(offset, data); !ok {
		return errors.Newf("guest memory write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (a *moduleABI) alloc(ctx context.Context, size, align uint32) (uint32, error) {
	a.allocMu.Lock()
	defer a.allocMu.Unlock()

	if a.simple {
		a.allocBuf[0] = uint64(size)
		if err := a.allocFn.CallWithStack(ctx, a.allocBuf[:1]); err != nil {
			return 0, errors.Ctx(err, "allocating %d guest bytes", size)
		}
		return uint32(a.allocBuf[0]), nil
	}

	a.allocBuf[0] = 0
	a.allocBuf[1] = 0
	a.allocBuf[2] = uint64(align)
	a.allocBuf[3] = uint64(size)
	if err := a.allocFn.CallWithStack(ctx, a.allocBuf[:4]); err != nil {
		return 0, errors.Ctx(err, "allocating %d guest bytes", size)
	}
	return uint32(a.allocBuf[0]), nil
}

func (a *moduleABI) free(ctx context.Context, ptr, size, align uint32) {
	if a.freeFn == nil || ptr == 0 {
		return
	}

	a.allocMu.Lock()
	defer a.allocMu.Unlock()

	a.allocBuf[0] = uint64(ptr)
	a.allocBuf[1] = uint64(size)
	a.allocBuf[2] = uint64(align)
	if err := a.freeFn.CallWithStack(ctx, a.allocBuf[:3]); err != nil {
		Logger().Warn("failed to release guest buffer",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}
