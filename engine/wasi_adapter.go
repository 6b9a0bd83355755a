package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// instantiateWASI instantiates the real WASI preview1 implementation. Guest
// stdout and stderr follow the module config of the calling instance, which
// the engine points at the environment's console.
func instantiateWASI(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	if mod := r.Module(wasi_snapshot_preview1.ModuleName); mod != nil {
		return mod, nil
	}
	builder := r.NewHostModuleBuilder(wasi_snapshot_preview1.ModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	return builder.Instantiate(ctx)
}
