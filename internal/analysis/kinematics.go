package analysis

import "math"

// Rest masses in MeV.
const (
	DeuteronMass = 1875.613
	ProtonMass   = 938.272
)

// CMEnergyFromLabPerNucleon converts a deuteron beam energy given per nucleon
// (MeV/u) on a proton target into the kinetic energy available in the
// centre-of-mass frame.
func CMEnergyFromLabPerNucleon(tPerNucleon float64) float64 {
	tLab := 2 * tPerNucleon
	s := (DeuteronMass+ProtonMass)*(DeuteronMass+ProtonMass) + 2*ProtonMass*tLab
	return math.Sqrt(s) - DeuteronMass - ProtonMass
}
