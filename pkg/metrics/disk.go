package metrics

// DiskMetrics observes the simulated disk.
//
// Implementations receive allocator state after every successful mutation,
// so gauges always match what DIR and the block map report.
type DiskMetrics interface {
	// SetFreeBlocks updates the free block gauge.
	SetFreeBlocks(free int)

	// SetFiles updates the stored file gauge.
	SetFiles(count int)

	// ObserveAllocation records the block and cluster counts of a new file.
	ObserveAllocation(blocks, clusters int)

	// RecordBytes counts payload bytes moved through the disk.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - bytes: Number of payload bytes
	RecordBytes(direction string, bytes int64)
}

type noopDiskMetrics struct{}

// NewNoopDiskMetrics returns a DiskMetrics that discards everything.
func NewNoopDiskMetrics() DiskMetrics { return noopDiskMetrics{} }

func (noopDiskMetrics) SetFreeBlocks(int)          {}
func (noopDiskMetrics) SetFiles(int)               {}
func (noopDiskMetrics) ObserveAllocation(int, int) {}
func (noopDiskMetrics) RecordBytes(string, int64)  {}
