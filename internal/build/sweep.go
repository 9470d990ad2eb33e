package build

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mkrasov/foundry/internal/upstream"
)

// SweepPoint is one ME level's build answer.
type SweepPoint struct {
	ME     int                           `json:"me"`
	Result *upstream.ManufacturingResult `json:"result"`
}

// Sweep fetches the build answer for every ME level 0-10 at a fixed TE and
// facility tax, for comparing material consumption across research levels.
// Results come back ordered by ME.
func Sweep(ctx context.Context, fetcher ManufacturingFetcher, typeID int32, te int, facilityTax float64) ([]SweepPoint, error) {
	if err := validParameters(0, te); err != nil {
		return nil, err
	}
	if err := validFacilityTax(facilityTax); err != nil {
		return nil, err
	}

	points := make([]SweepPoint, 11)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to keep the upstream service comfortable.

	for me := 0; me <= 10; me++ {
		me := me
		g.Go(func() error {
			result, err := fetcher.FetchManufacturing(gCtx, typeID, me, te, facilityTax)
			if err != nil {
				return fmt.Errorf("ME %d: %w", me, err)
			}
			points[me] = SweepPoint{ME: me, Result: result}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}
