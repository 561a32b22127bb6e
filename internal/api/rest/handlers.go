package rest

import (
	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
)

// Handler serves the v1 API on top of the application services.
type Handler struct {
	*BaseHandler
	services Services
	clock    clock.Clock
}

func NewHandler(base *BaseHandler, services Services, clk clock.Clock) *Handler {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Handler{BaseHandler: base, services: services, clock: clk}
}
