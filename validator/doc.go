// Package validator runs the whole check on one module: preflight, compile,
// introspect, build the host environment, instantiate, then invoke every
// exported function with zero arguments.
//
// Each stage runs only if the previous one succeeded. Failures of the
// first stages end the run and are reported in-band; a failing export is
// recorded in its outcome and the remaining exports are still invoked.
//
//	v := validator.New(validator.DefaultConfig())
//	r := v.ValidateFile(ctx, "app.wasm")
//	report.Write(os.Stdout, r, report.PlainStyles())
package validator
