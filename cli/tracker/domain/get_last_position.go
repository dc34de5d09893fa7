package domain

import "github.com/daniil11ru/bustrack/cli/tracker/types"

type LastPositionSource interface {
	Get(busID string) (types.Position, bool)
}

type GetLastPosition struct {
	Positions LastPositionSource
}

func (domain *GetLastPosition) Run(busID string) (types.Position, bool) {
	return domain.Positions.Get(busID)
}
