// Package target names the closed set of machine identifiers the core
// dispatches on for CPU backend selection and address-space bounds
// checking (specification §4.4 step 12, "detect address-space overflow
// (wrap past taddrmax)").
//
// Grounded on NewArchitecture's name-to-implementation switch
// (arch.go): a string names an architecture, a small closed set of
// constants enumerates what is recognised, and unknown names fail
// closed. backend.Register/backend.New key their registry on Arch the
// same way NewArchitecture switches on machine.
package target

import "fmt"

// Arch identifies a target machine. It is the registry key
// backend.Register/backend.New dispatch on.
type Arch string

const (
	// ArchUnknown is the architecture the core's bundled stub CPU
	// backend answers to. It carries no real instruction set; its
	// only job is to exercise the resolver and final assembler
	// (specification §8 scenario 1) without pretending to model a
	// real machine's encoding.
	ArchUnknown Arch = "unknown"
	ArchX86_64  Arch = "x86_64"
	ArchARM64   Arch = "aarch64"
	ArchRiscv64 Arch = "riscv64"
)

// Parse resolves a machine name (as given to a CPU-selection CLI flag)
// to an Arch, failing closed on anything not in the closed set.
func Parse(machine string) (Arch, error) {
	switch Arch(machine) {
	case ArchX86_64, ArchARM64, ArchRiscv64, ArchUnknown:
		return Arch(machine), nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s", machine)
	}
}

func (a Arch) String() string { return string(a) }

// Bounds returns the (max, min) address-space limits used by
// specification §4.4 step 12's overflow check. ArchUnknown's bounds
// are deliberately wide (a full signed 64-bit range) so the stub CPU
// can exercise the check without claiming to model a real address
// width; the named architectures report their actual canonical
// virtual-address-space limits.
func (a Arch) Bounds() (max, min int64) {
	switch a {
	case ArchX86_64:
		return 1<<47 - 1, -(1 << 47)
	case ArchARM64, ArchRiscv64:
		return 1<<48 - 1, -(1 << 48)
	default:
		return 1<<63 - 1, -(1 << 63)
	}
}
