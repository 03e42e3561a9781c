package sources

// HostMemory reads virtual memory totals from the frame.
type HostMemory struct{}

// Memory returns used and total bytes. A zero total is an invalid
// reading; used is capped at total.
func (HostMemory) Memory(f *Frame) (MemoryReading, error) {
	if err := f.Err(DomainMemory); err != nil {
		return MemoryReading{}, err
	}
	if f.Memory == nil {
		return MemoryReading{}, unavailable(DomainMemory, nil)
	}
	if f.Memory.Total == 0 {
		return MemoryReading{}, invalid(DomainMemory, "total memory is zero")
	}

	used := f.Memory.Used
	if used > f.Memory.Total {
		used = f.Memory.Total
	}
	return MemoryReading{UsedBytes: used, TotalBytes: f.Memory.Total}, nil
}
