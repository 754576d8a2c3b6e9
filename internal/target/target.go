// Package target describes the supported architecture x operating-system
// combinations and derives the LLVM triple, data layout, and bit widths the
// rest of the code generator needs.
package target

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/dj-lumiere/razorforge-codegen/internal/diag"
)

// Architecture is one of the closed set of CPU architectures this generator
// can target.
type Architecture int

const (
	UnknownArch Architecture = iota
	X86_64
	X86
	ARM64
	ARM
	RISCV64
	RISCV32
	WASM32
	WASM64
)

// OS is one of the closed set of target operating systems.
type OS int

const (
	UnknownOS OS = iota
	Linux
	Windows
	MacOS
	FreeBSD
	WASI
)

// Descriptor is a value object encoding one supported (Architecture, OS)
// pair and everything the generator derives from it.
type Descriptor struct {
	Arch Architecture
	Os   OS

	triple     string
	dataLayout string
	ptrBits    int
	wcharBits  int
	longBits   int
}

// layout holds the per-platform facts a Descriptor publishes. Values are
// drawn from LLVM's well-known data layouts for each triple.
type layout struct {
	triple     string
	dataLayout string
	ptrBits    int
	wcharBits  int
	longBits   int
}

var layouts = map[Architecture]map[OS]layout{
	X86_64: {
		Linux:   {"x86_64-unknown-linux-gnu", "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-i128:128-f80:128-n8:16:32:64-S128", 64, 32, 64},
		Windows: {"x86_64-pc-windows-msvc", "e-m:w-p270:32:32-p271:32:32-p272:64:64-i64:64-i128:128-f80:128-n8:16:32:64-S128", 64, 16, 32},
		MacOS:   {"x86_64-apple-macosx", "e-m:o-p270:32:32-p271:32:32-p272:64:64-i64:64-i128:128-f80:128-n8:16:32:64-S128", 64, 32, 64},
		FreeBSD: {"x86_64-unknown-freebsd", "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-i128:128-f80:128-n8:16:32:64-S128", 64, 32, 64},
	},
	X86: {
		Linux:   {"i386-unknown-linux-gnu", "e-m:e-p:32:32-f64:32:64-f80:32-n8:16:32-S128", 32, 32, 32},
		Windows: {"i386-pc-windows-msvc", "e-m:x-p:32:32-f64:32:64-f80:32-n8:16:32-S32", 32, 16, 32},
	},
	ARM64: {
		Linux:   {"aarch64-unknown-linux-gnu", "e-m:e-i8:8:32-i16:16:32-i64:64-i128:128-n32:64-S128", 64, 32, 64},
		MacOS:   {"arm64-apple-macosx", "e-m:o-i64:64-i128:128-n32:64-S128", 64, 32, 64},
		Windows: {"aarch64-pc-windows-msvc", "e-m:w-p:64:64-i32:32-i64:64-i128:128-n32:64-S128", 64, 16, 32},
	},
	ARM: {
		Linux: {"armv7-unknown-linux-gnueabihf", "e-m:e-p:32:32-Fi8-i64:64-v128:64:128-a:0:32-n32-S64", 32, 32, 32},
	},
	RISCV64: {
		Linux: {"riscv64-unknown-linux-gnu", "e-m:e-p:64:64-i64:64-i128:128-n64-S128", 64, 32, 64},
	},
	RISCV32: {
		Linux: {"riscv32-unknown-linux-gnu", "e-m:e-p:32:32-i64:64-n32-S128", 32, 32, 32},
	},
	WASM32: {
		WASI: {"wasm32-unknown-wasi", "e-m:e-p:32:32-i64:64-n32:64-S128", 32, 32, 32},
	},
	WASM64: {
		WASI: {"wasm64-unknown-wasi", "e-m:e-p:64:64-i64:64-n32:64-S128", 64, 32, 64},
	},
}

// New constructs a Descriptor for the given architecture/OS pair, failing
// with an UnsupportedPlatform error when the pair is not in the supported
// matrix.
func New(arch Architecture, os OS) (Descriptor, error) {
	byOS, ok := layouts[arch]
	if !ok {
		return Descriptor{}, diag.UnsupportedPlatform("unsupported platform: architecture %s has no known targets", archName(arch))
	}
	l, ok := byOS[os]
	if !ok {
		return Descriptor{}, diag.UnsupportedPlatform("unsupported platform: %s/%s is not a supported combination", archName(arch), osName(os))
	}
	return Descriptor{
		Arch:       arch,
		Os:         os,
		triple:     l.triple,
		dataLayout: l.dataLayout,
		ptrBits:    l.ptrBits,
		wcharBits:  l.wcharBits,
		longBits:   l.longBits,
	}, nil
}

// Default builds a Descriptor for the host the generator is running on.
func Default() (Descriptor, error) {
	arch, err := hostArch()
	if err != nil {
		return Descriptor{}, err
	}
	os, err := hostOS()
	if err != nil {
		return Descriptor{}, err
	}
	return New(arch, os)
}

// FromTriple parses an LLVM-style triple ("arch-vendor-os[-abi]") by keyword
// scanning its hyphen-separated components.
func FromTriple(triple string) (Descriptor, error) {
	parts := strings.Split(triple, "-")
	var arch = UnknownArch
	var os = UnknownOS

	for _, p := range parts {
		p = strings.ToLower(p)
		switch {
		case strings.HasPrefix(p, "x86_64") || p == "amd64":
			arch = X86_64
		case p == "i386" || p == "i686" || p == "x86":
			arch = X86
		case strings.HasPrefix(p, "aarch64") || strings.HasPrefix(p, "arm64"):
			arch = ARM64
		case strings.HasPrefix(p, "arm"):
			arch = ARM
		case p == "riscv64":
			arch = RISCV64
		case p == "riscv32":
			arch = RISCV32
		case p == "wasm32":
			arch = WASM32
		case p == "wasm64":
			arch = WASM64
		case strings.Contains(p, "linux"):
			os = Linux
		case strings.Contains(p, "win32") || strings.Contains(p, "windows") || strings.Contains(p, "msvc"):
			os = Windows
		case strings.Contains(p, "darwin") || strings.Contains(p, "macosx") || p == "apple":
			os = MacOS
		case strings.Contains(p, "freebsd"):
			os = FreeBSD
		case strings.Contains(p, "wasi"):
			os = WASI
		}
	}

	if arch == UnknownArch || os == UnknownOS {
		return Descriptor{}, diag.UnsupportedPlatform("unsupported platform: could not parse triple %q", triple)
	}
	return New(arch, os)
}

// Triple returns the LLVM target triple string.
func (d Descriptor) Triple() string { return d.triple }

// DataLayout returns the LLVM `target datalayout` string.
func (d Descriptor) DataLayout() string { return d.dataLayout }

// PointerBits returns the pointer width in bits.
func (d Descriptor) PointerBits() int { return d.ptrBits }

// PointerType returns the LLVM integer type name sized to hold a pointer
// (used for `saddr`/`uaddr`/`iptr`/`uptr` source types).
func (d Descriptor) PointerType() string {
	return fmt.Sprintf("i%d", d.ptrBits)
}

// WCharType returns the LLVM integer type name for the platform's wide
// character width.
func (d Descriptor) WCharType() string {
	return fmt.Sprintf("i%d", d.wcharBits)
}

// LongType returns the LLVM integer type name for the platform's C `long`
// width.
func (d Descriptor) LongType() string {
	return fmt.Sprintf("i%d", d.longBits)
}

func hostArch() (Architecture, error) {
	switch runtime.GOARCH {
	case "amd64":
		return X86_64, nil
	case "386":
		return X86, nil
	case "arm64":
		return ARM64, nil
	case "arm":
		return ARM, nil
	case "riscv64":
		return RISCV64, nil
	case "wasm":
		return WASM32, nil
	default:
		return UnknownArch, diag.UnsupportedPlatform("unsupported platform: host architecture %q has no known mapping", runtime.GOARCH)
	}
}

func hostOS() (OS, error) {
	switch runtime.GOOS {
	case "linux":
		return Linux, nil
	case "windows":
		return Windows, nil
	case "darwin":
		return MacOS, nil
	case "freebsd":
		return FreeBSD, nil
	case "wasip1":
		return WASI, nil
	default:
		return UnknownOS, diag.UnsupportedPlatform("unsupported platform: host OS %q has no known mapping", runtime.GOOS)
	}
}

func archName(a Architecture) string {
	switch a {
	case X86_64:
		return "x86_64"
	case X86:
		return "x86"
	case ARM64:
		return "ARM64"
	case ARM:
		return "ARM"
	case RISCV64:
		return "RISCV64"
	case RISCV32:
		return "RISCV32"
	case WASM32:
		return "WASM32"
	case WASM64:
		return "WASM64"
	default:
		return "unknown"
	}
}

func osName(o OS) string {
	switch o {
	case Linux:
		return "Linux"
	case Windows:
		return "Windows"
	case MacOS:
		return "macOS"
	case FreeBSD:
		return "FreeBSD"
	case WASI:
		return "WASI"
	default:
		return "unknown"
	}
}
