package core

import (
	"errors"

	"github.com/signalsfoundry/propagation-tool/model"
)

var (
	// ErrInvalidParameter is returned for inputs outside their physical
	// domain. It is the same value as model.ErrInvalidParameter.
	ErrInvalidParameter = model.ErrInvalidParameter

	// ErrNumericDegeneracy is returned when the closed-form reflection
	// geometry breaks down below the horizon: an arcsin or square-root
	// argument left its real domain.
	ErrNumericDegeneracy = errors.New("numeric degeneracy")

	// ErrNoConvergence is returned by HorizonBisection when it reaches
	// MaxHorizonIterations.
	ErrNoConvergence = errors.New("no convergence")
)
