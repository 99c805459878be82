package spatial

// WGS-84 ↔ Missouri East (EPSG:102696) Transverse Mercator, US-feet.
// The extracts and polygon shapefiles carry coordinates in this CRS
// (see the .prj sidecars); cleaned output uses WGS-84 lon/lat.

import "math"

const (
	spFalseEastingFt = 820208.3333333333
	spFalseNorthing  = 0.0
	phi0Deg          = 35.833333333333336 // latitude of origin
	lon0Deg          = -90.5              // central meridian
	k0               = 0.9999333333333333 // scale factor (1 - 1/15000)

	ftPerMeter = 3.2808333333333334 // US survey foot
	semiMajorM = 6378137.0          // NAD83 semi-major axis (metres)
	e2         = 0.00669438002290   // NAD83 eccentricity squared
)

var (
	ep2 float64 // second eccentricity squared
	m0  float64 // meridional arc at the latitude of origin
	e1  float64 // series coefficient for the inverse
)

func init() {
	ep2 = e2 / (1 - e2)
	m0 = meridionalArc(phi0Deg * math.Pi / 180)
	e1 = (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
}

// meridionalArc returns the ellipsoidal meridian distance from the equator
// to latitude phi, in metres.
func meridionalArc(phi float64) float64 {
	e4 := e2 * e2
	e6 := e4 * e2
	return semiMajorM * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

// WGS84ToStatePlane converts latitude/longitude in decimal degrees (WGS-84)
// to Missouri East State Plane feet. Returns (eastingFt, northingFt), the
// (x, y) ordering used in the shapefile rings.
func WGS84ToStatePlane(latDeg, lonDeg float64) (eastingFt, northingFt float64) {
	phi := latDeg * math.Pi / 180
	lambda := lonDeg * math.Pi / 180
	lambda0 := lon0Deg * math.Pi / 180

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	nu := semiMajorM / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := (lambda - lambda0) * cosPhi
	m := meridionalArc(phi)

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	xM := k0 * nu * (a + (1-t+c)*a3/6 + (5-18*t+t*t+72*c-58*ep2)*a5/120)
	yM := k0 * (m - m0 + nu*tanPhi*(a2/2+(5-t+9*c+4*c*c)*a4/24+
		(61-58*t+t*t+600*c-330*ep2)*a6/720))

	eastingFt = xM*ftPerMeter + spFalseEastingFt
	northingFt = yM*ftPerMeter + spFalseNorthing
	return
}

// StatePlaneToWGS84 converts Missouri East State Plane feet to WGS-84
// decimal degrees, the inverse of WGS84ToStatePlane.
func StatePlaneToWGS84(eastingFt, northingFt float64) (latDeg, lonDeg float64) {
	xM := (eastingFt - spFalseEastingFt) / ftPerMeter
	yM := (northingFt - spFalseNorthing) / ftPerMeter

	m := m0 + yM/k0
	e4 := e2 * e2
	e6 := e4 * e2
	mu := m / (semiMajorM * (1 - e2/4 - 3*e4/64 - 5*e6/256))

	phi1 := mu + (3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	oneMinusE2 := 1 - e2*sinPhi1*sinPhi1
	nu1 := semiMajorM / math.Sqrt(oneMinusE2)
	rho1 := semiMajorM * (1 - e2) / math.Pow(oneMinusE2, 1.5)
	d := xM / (nu1 * k0)

	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	phi := phi1 - (nu1*tanPhi1/rho1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d6/720)

	lambda0 := lon0Deg * math.Pi / 180
	lambda := lambda0 + (d-(1+2*t1+c1)*d3/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d5/120)/cosPhi1

	latDeg = phi * 180 / math.Pi
	lonDeg = lambda * 180 / math.Pi
	return
}
