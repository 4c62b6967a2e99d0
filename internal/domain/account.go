package domain

// AccountSnapshot is the venue's current view of the trading account.
type AccountSnapshot struct {
	Equity   float64
	Currency string
}

// SymbolSpec carries the venue-imposed constraints for one instrument.
type SymbolSpec struct {
	MinVolume     float64
	VolumeStep    float64
	ContractSize  float64
	QuoteCurrency string
}
