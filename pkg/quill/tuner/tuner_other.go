//go:build !darwin && !linux

package tuner

import "runtime"

// defaultTotalRAM is assumed where memory cannot be detected.
const defaultTotalRAM = 8 << 30

// Detect reports CPU cores from the runtime and a fixed memory estimate.
func Detect() (SystemResources, error) {
	return SystemResources{
		CPUCores:     runtime.NumCPU(),
		TotalRAM:     defaultTotalRAM,
		AvailableRAM: defaultTotalRAM / 2,
	}, nil
}
