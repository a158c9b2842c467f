package phwater

// Coefficients are the mCP molar absorptivities of a reagent bag: protonated
// (a) and deprotonated (b) forms at 434 and 578 nm.
type Coefficients struct {
	EA434 float64 `json:"ea434"`
	EB434 float64 `json:"eb434"`
	EA578 float64 `json:"ea578"`
	EB578 float64 `json:"eb578"`
}

// AtTemperature returns the absorptivities corrected from the vendor
// reference temperature to tempC.
func (c Coefficients) AtTemperature(tempC float64) Coefficients {
	dT := tempC - ReferenceTemperature
	return Coefficients{
		EA434: c.EA434 + slopeEA434*dT,
		EB434: c.EB434 + slopeEB434*dT,
		EA578: c.EA578 + slopeEA578*dT,
		EB578: c.EB578 + slopeEB578*dT,
	}
}
