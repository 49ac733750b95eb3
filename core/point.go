package core

import "github.com/signalsfoundry/propagation-tool/model"

// PointToPoint validates g, gates it on the horizon and evaluates the link.
// ok is false when g.Distance is at or beyond the horizon.
func PointToPoint(p model.LinkParameters, g model.Geometry) (PropagationResult, bool, error) {
	geo, ok, err := SolveGeometry(g.TxHeight, g.RxHeight, g.Distance, p.K())
	if err != nil || !ok {
		return PropagationResult{}, ok, err
	}
	res, ok := Evaluate(p, geo)
	return res, ok, nil
}

// PointWithClearance is PointToPoint plus the Fresnel zone count, sharing one
// geometry solve.
func PointWithClearance(p model.LinkParameters, g model.Geometry) (PropagationResult, int, bool, error) {
	geo, ok, err := SolveGeometry(g.TxHeight, g.RxHeight, g.Distance, p.K())
	if err != nil || !ok {
		return PropagationResult{}, 0, ok, err
	}
	res, ok := Evaluate(p, geo)
	return res, clearedZones(geo, p.Wavelength()), ok, nil
}
