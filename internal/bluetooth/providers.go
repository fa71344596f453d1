package bluetooth

// Providers starts and stops several providers as one.
type Providers []Provider

// StartScanning starts each provider in order. If one fails, the ones
// already started are stopped again.
func (ps Providers) StartScanning() error {
	for i, p := range ps {
		if err := p.StartScanning(); err != nil {
			for j := i - 1; j >= 0; j-- {
				ps[j].StopScanning()
			}
			return err
		}
	}
	return nil
}

// StopScanning stops providers in reverse start order.
func (ps Providers) StopScanning() {
	for i := len(ps) - 1; i >= 0; i-- {
		ps[i].StopScanning()
	}
}
