package engine

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"

	"github.com/born-ml/prim/internal/status"
)

// ISA is an instruction set level. Levels are ordered within a family
// (x86 or arm64); Generic is the lowest level of both.
type ISA int

// Instruction set levels.
const (
	Generic ISA = iota
	SSE41
	AVX2
	AVX512Core
	AVX512CoreVNNI
	ASIMD
	ASIMDDotProd
	ASIMDFP16
)

var isaNames = [...]string{
	Generic:        "generic",
	SSE41:          "sse41",
	AVX2:           "avx2",
	AVX512Core:     "avx512_core",
	AVX512CoreVNNI: "avx512_core_vnni",
	ASIMD:          "asimd",
	ASIMDDotProd:   "asimd_dotprod",
	ASIMDFP16:      "asimd_fp16",
}

// String returns the ISA name.
func (i ISA) String() string {
	if i >= 0 && int(i) < len(isaNames) {
		return isaNames[i]
	}
	return "unknown"
}

// ParseISA converts an ISA name back to an ISA. Matching is case-insensitive.
func ParseISA(name string) (ISA, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range isaNames {
		if s == n {
			return ISA(i), nil
		}
	}
	return Generic, status.Invalidf("engine", "unknown ISA %q", name)
}

func (i ISA) x86() bool { return i >= SSE41 && i <= AVX512CoreVNNI }
func (i ISA) arm() bool { return i >= ASIMD && i <= ASIMDFP16 }

// Int8 reports whether int8 convolution and GEMM kernels are available.
func (i ISA) Int8() bool { return i.x86() || i.arm() }

// F16 reports whether f16 kernels are available.
func (i ISA) F16() bool { return i == AVX512Core || i == AVX512CoreVNNI || i == ASIMDFP16 }

// BlockSize returns the channel block preferred by kernels at this level.
func (i ISA) BlockSize() int {
	if i == AVX512Core || i == AVX512CoreVNNI {
		return 16
	}
	return 8
}

// Cap limits i to limit. Capping to Generic always succeeds; capping across
// families is an error.
func (i ISA) Cap(limit ISA) (ISA, error) {
	switch {
	case limit == Generic || i == Generic:
		return Generic, nil
	case i.x86() && limit.x86(), i.arm() && limit.arm():
		return min(i, limit), nil
	default:
		return i, status.Invalidf("engine", "max ISA %s does not apply to %s", limit, i)
	}
}

// DetectISA returns the highest level supported by the running CPU.
func DetectISA() ISA {
	switch runtime.GOARCH {
	case "amd64", "386":
		switch {
		case cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW && cpu.X86.HasAVX512VL && cpu.X86.HasAVX512VNNI:
			return AVX512CoreVNNI
		case cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW && cpu.X86.HasAVX512VL:
			return AVX512Core
		case cpu.X86.HasAVX2 && cpu.X86.HasFMA:
			return AVX2
		case cpu.X86.HasSSE41:
			return SSE41
		}
	case "arm64":
		switch {
		case cpu.ARM64.HasFPHP && cpu.ARM64.HasASIMDHP:
			return ASIMDFP16
		case cpu.ARM64.HasASIMDDP:
			return ASIMDDotProd
		case cpu.ARM64.HasASIMD:
			return ASIMD
		}
	}
	return Generic
}

// Features lists the CPU feature flags relevant to kernel selection.
func Features() map[string]bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return map[string]bool{
			"sse4.1":     cpu.X86.HasSSE41,
			"avx2":       cpu.X86.HasAVX2,
			"fma":        cpu.X86.HasFMA,
			"avx512f":    cpu.X86.HasAVX512F,
			"avx512bw":   cpu.X86.HasAVX512BW,
			"avx512vl":   cpu.X86.HasAVX512VL,
			"avx512vnni": cpu.X86.HasAVX512VNNI,
			"avx512bf16": cpu.X86.HasAVX512BF16,
		}
	case "arm64":
		return map[string]bool{
			"asimd":   cpu.ARM64.HasASIMD,
			"asimddp": cpu.ARM64.HasASIMDDP,
			"asimdhp": cpu.ARM64.HasASIMDHP,
			"fphp":    cpu.ARM64.HasFPHP,
			"sve":     cpu.ARM64.HasSVE,
		}
	default:
		return map[string]bool{}
	}
}
