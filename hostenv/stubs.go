package hostenv

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasmcheck/printf"
)

// Import module names with built-in stubs.
const (
	ModuleEnv  = "env"
	ModuleWASI = "wasi_snapshot_preview1"
)

// Placeholder readings returned by the peripheral stubs.
const (
	PlaceholderADC         = 2048 // mid-scale of a 12-bit converter
	PlaceholderTemperature = 25   // degrees Celsius
	PlaceholderNetworks    = 0
)

// maxCString bounds how far a NUL-terminated string is scanned.
const maxCString = 4096

// WASI errno values returned by the stubs.
const (
	errnoSuccess = 0
	errnoFault   = 21
)

func registerBuiltins(r *Registry) {
	r.Register(ModuleEnv, "esp_printf", espPrintf)
	r.Register(ModuleEnv, "abort", abort)
	r.Register(ModuleEnv, "esp_led_write", espLedWrite)
	r.Register(ModuleEnv, "esp_adc_read", constant(printf.Int(PlaceholderADC)))
	r.Register(ModuleEnv, "esp_get_temperature", constant(printf.Int(PlaceholderTemperature)))
	r.Register(ModuleEnv, "esp_wifi_scan", constant(printf.Int(PlaceholderNetworks)))
	r.Register(ModuleEnv, "esp_add", espAdd)
	r.Register(ModuleEnv, "lcd_draw_text", lcdDrawText)
	r.Register(ModuleEnv, "esp_read_serial", constant(printf.Int(0)))

	r.Register(ModuleWASI, "proc_exit", procExit)
	r.Register(ModuleWASI, "fd_write", fdWrite)
	r.Register(ModuleWASI, "fd_close", constant(printf.Int(errnoSuccess)))
	r.Register(ModuleWASI, "fd_seek", constant(printf.Int(errnoSuccess)))
}

func constant(v printf.Arg) StubFunc {
	return func(_ context.Context, c *Call) {
		c.Return(v)
	}
}

// espPrintf emulates esp_printf(const char *fmt, ...). Clang lowers the
// variadic tail to a pointer into a va_list area where int-sized values
// occupy 4 aligned bytes and doubles 8 aligned bytes.
func espPrintf(_ context.Context, c *Call) {
	mem := c.Memory()
	if mem == nil || c.NumParams() == 0 {
		c.ReturnInt(0)
		return
	}

	template, ok := readCString(mem, c.ParamU32(0))
	if !ok {
		c.Env.Logger().Warn("esp_printf template out of bounds", zap.Uint32("ptr", c.ParamU32(0)))
		c.ReturnInt(0)
		return
	}

	var args []printf.Arg
	if c.NumParams() > 1 {
		args = readVarArgs(mem, c.ParamU32(1), printf.Parse(template))
	}

	if n := printf.Missing(template, len(args)); n > 0 {
		c.Env.Logger().Debug("esp_printf arguments missing, rendering zero",
			zap.String("template", template), zap.Int("missing", n))
	}

	out := printf.Render(template, args)
	c.Print("%s", out)
	c.ReturnInt(int64(len(out)))
}

// readVarArgs decodes one argument per consuming directive, stopping at the
// first unreadable slot; Render substitutes zero for the rest.
func readVarArgs(mem api.Memory, va uint32, directives []printf.Directive) []printf.Arg {
	var args []printf.Arg
	for _, d := range directives {
		if !d.ConsumesArg() {
			continue
		}
		if d.Conversion == printf.ConvFixed {
			var ok bool
			if va, ok = align(va, 8); !ok {
				return args
			}
			v, ok := mem.ReadFloat64Le(va)
			if !ok {
				return args
			}
			args = append(args, printf.Float(v))
			va += 8
			continue
		}
		var ok bool
		if va, ok = align(va, 4); !ok {
			return args
		}
		v, ok := mem.ReadUint32Le(va)
		if !ok {
			return args
		}
		args = append(args, printf.Int(int64(int32(v))))
		va += 4
	}
	return args
}

// align rounds p up to a multiple of n, reporting false on overflow.
func align(p, n uint32) (uint32, bool) {
	a := (p + n - 1) &^ (n - 1)
	return a, a >= p
}

func readCString(mem api.Memory, ptr uint32) (string, bool) {
	size := mem.Size()
	if ptr >= size {
		return "", false
	}
	n := size - ptr
	if n > maxCString {
		n = maxCString
	}
	buf, ok := mem.Read(ptr, n)
	if !ok {
		return "", false
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), true
		}
	}
	return string(buf), true
}

func abort(_ context.Context, c *Call) {
	c.Print("abort called\n")
}

func espLedWrite(_ context.Context, c *Call) {
	c.Env.Logger().Debug("led write",
		zap.Int64("pin", c.ParamArg(0).Int64()),
		zap.Int64("level", c.ParamArg(1).Int64()))
}

func espAdd(_ context.Context, c *Call) {
	var sum int64
	for i := 0; i < c.NumParams(); i++ {
		sum += c.ParamArg(i).Int64()
	}
	c.ReturnInt(sum)
}

// lcdDrawText emulates lcd_draw_text(x, y, size, const char *text).
func lcdDrawText(_ context.Context, c *Call) {
	text := ""
	if mem := c.Memory(); mem != nil && c.NumParams() >= 4 {
		text, _ = readCString(mem, c.ParamU32(3))
	}
	c.Print("[lcd %d,%d size %d] %s\n",
		c.ParamArg(0).Int64(), c.ParamArg(1).Int64(), c.ParamArg(2).Int64(), text)
}

func procExit(ctx context.Context, c *Call) {
	c.Exit(ctx, c.ParamU32(0))
}

// fdWrite implements fd_write(fd, iovs, iovs_len, nwritten) for any fd by
// copying every iovec to the console.
func fdWrite(_ context.Context, c *Call) {
	mem := c.Memory()
	if mem == nil || c.NumParams() < 4 {
		c.ReturnInt(errnoFault)
		return
	}
	iovs, count, resultPtr := c.ParamU32(1), c.ParamU32(2), c.ParamU32(3)
	if uint64(iovs)+uint64(count)*8 > math.MaxUint32+1 {
		c.ReturnInt(errnoFault)
		return
	}

	var written uint32
	for i := uint32(0); i < count; i++ {
		iov, ok := mem.Read(iovs+i*8, 8)
		if !ok {
			c.ReturnInt(errnoFault)
			return
		}
		ptr := binary.LittleEndian.Uint32(iov[0:4])
		n := binary.LittleEndian.Uint32(iov[4:8])
		data, ok := mem.Read(ptr, n)
		if !ok {
			c.ReturnInt(errnoFault)
			return
		}
		_, _ = c.Env.Console.Write(data)
		written += n
	}

	if !mem.WriteUint32Le(resultPtr, written) {
		c.ReturnInt(errnoFault)
		return
	}
	c.ReturnInt(errnoSuccess)
}
