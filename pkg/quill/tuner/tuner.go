// Package tuner picks a worker count for the dispatch pool from the
// detected CPU and memory of the machine.
package tuner

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the free RAM in bytes. It may be an estimate.
	AvailableRAM int64
}

// Worker limits.
const (
	// MinWorkers is the smallest automatic pool size.
	MinWorkers = 2

	// MaxWorkers caps both automatic and explicit pool sizes.
	MaxWorkers = 32
)

// bytesPerWorker is the memory budget of one worker: the raw file, its
// decoded copy and the parsed artifact.
const bytesPerWorker = 64 << 20

// Workers returns the pool size for resources. A positive override is used
// as given, capped at MaxWorkers. Otherwise the CPU count is clamped to
// [MinWorkers, MaxWorkers] and lowered when available memory cannot hold
// that many workers, never below MinWorkers.
func Workers(resources SystemResources, override int) int {
	if override > 0 {
		return min(override, MaxWorkers)
	}

	workers := min(max(resources.CPUCores, MinWorkers), MaxWorkers)

	if resources.AvailableRAM > 0 {
		byMemory := int(resources.AvailableRAM / bytesPerWorker)
		workers = max(min(workers, byMemory), MinWorkers)
	}

	return workers
}

// Auto detects resources and returns the pool size for override. Detection
// errors fall back to the CPU count alone.
func Auto(override int) int {
	resources, err := Detect()
	if err != nil {
		log.Debug("resource detection failed", "error", err)
	}
	workers := Workers(resources, override)
	log.Debug("worker count", "workers", workers, "cpus", resources.CPUCores, "override", override)
	return workers
}
