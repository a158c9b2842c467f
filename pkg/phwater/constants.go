package phwater

// Record layout.
const (
	ReferenceCycleLen = 16 // blank cycle counts
	LightCycleLen     = 92 // measurement cycle counts
	LightSets         = 23 // LightCycleLen / 4
	lightColumns      = 4
)

// Light cycle columns of the 23x4 reshape.
const (
	colRef434 = iota
	colSig434
	colRef578
	colSig578
)

// Window search. The first SkipPoints sets are the injection transient.
const (
	SkipPoints   = 5
	WindowStep   = 7
	WindowLen    = WindowStep + 1
	SearchPoints = LightSets - SkipPoints
	WindowStarts = SearchPoints - WindowStep
)

// DefaultSalinity is the practical salinity assumed when no co-located
// estimate is available.
const DefaultSalinity = 35.0

// Molar absorptivity temperature slopes around ReferenceTemperature (degC).
const (
	ReferenceTemperature = 24.788
	slopeEA434           = -26.0
	slopeEB434           = 12.0
	slopeEA578           = 1.0
	slopeEB578           = -71.0
)

// mCP dissociation constant fit (Clayton and Byrne, 1993).
const (
	pKaNumerator      = 1245.69
	pKaOffset         = 3.8275
	pKaSalinitySlope  = 0.0021
	referenceSalinity = 35.0
	kelvinOffset      = 273.15
)

// Thermistor divider and Steinhart-Hart coefficients.
const (
	thermistorFullScale = 4096.0
	thermistorResistor  = 17400.0
	steinhartA          = 0.0010183
	steinhartB          = 0.000241
	steinhartC          = 0.00000015
)
