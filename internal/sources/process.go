package sources

// HostProcess returns the process table captured in the frame.
type HostProcess struct{}

// Processes returns a copy of the frame's process rows.
func (HostProcess) Processes(f *Frame) ([]ProcessReading, error) {
	if err := f.Err(DomainProcess); err != nil {
		return []ProcessReading{}, err
	}
	out := make([]ProcessReading, len(f.Processes))
	copy(out, f.Processes)
	return out, nil
}
