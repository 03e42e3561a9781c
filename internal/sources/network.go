package sources

// HostNetwork reads per-interface byte counters from the frame.
type HostNetwork struct{}

// Networks returns one reading per interface, in OS order.
func (HostNetwork) Networks(f *Frame) ([]NetworkReading, error) {
	if err := f.Err(DomainNetwork); err != nil {
		return []NetworkReading{}, err
	}

	out := make([]NetworkReading, 0, len(f.NetIO))
	seen := make(map[string]struct{}, len(f.NetIO))
	for _, c := range f.NetIO {
		if c.Name == "" {
			continue
		}
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, NetworkReading{Name: c.Name, RxBytes: c.BytesRecv, TxBytes: c.BytesSent})
	}
	return out, nil
}
