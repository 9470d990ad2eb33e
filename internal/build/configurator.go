// Package build holds the per-item build-parameter configurator: material
// and time efficiency, facility tax, and the derived material/cost fetch.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mkrasov/foundry/internal/upstream"
)

// ManufacturingFetcher issues per-item build queries. Implemented by
// upstream.Client.
type ManufacturingFetcher interface {
	FetchManufacturing(ctx context.Context, typeID int32, me, te int, facilityTax float64) (*upstream.ManufacturingResult, error)
}

// State is the configurator's editability state.
type State int

const (
	// StateEditable lets the user pick ME/TE freely.
	StateEditable State = iota
	// StateLocked pins ME/TE to the server-authoritative pair of a tech-2
	// item; the values cannot be edited independently of re-fetching.
	StateLocked
)

func (s State) String() string {
	if s == StateLocked {
		return "locked"
	}
	return "editable"
}

// Configurator drives the build parameters for one item at a time.
// Navigating to an item starts at Editable(0,0). A result flagged tech-2
// moves it to Locked with the server's ME/TE pair; a non-tech-2 result
// leaves the user's ME/TE untouched. Fetch failures keep the previous
// result and state, so the display stays stale-but-valid.
type Configurator struct {
	fetcher ManufacturingFetcher

	mu          sync.Mutex
	typeID      int32
	state       State
	me, te      int
	facilityTax float64
	gen         uint64
	result      *upstream.ManufacturingResult
}

// NewConfigurator creates a Configurator with the given default facility tax.
func NewConfigurator(fetcher ManufacturingFetcher, facilityTax float64) *Configurator {
	return &Configurator{fetcher: fetcher, facilityTax: facilityTax}
}

// validParameters rejects values outside the blueprint domain: ME 0-10,
// TE an even value 0-20.
func validParameters(me, te int) error {
	if me < 0 || me > 10 {
		return fmt.Errorf("ME must be between 0 and 10, got %d", me)
	}
	if te < 0 || te > 20 || te%2 != 0 {
		return fmt.Errorf("TE must be an even value between 0 and 20, got %d", te)
	}
	return nil
}

func validFacilityTax(tax float64) error {
	if tax < 0 || tax > 1 {
		return fmt.Errorf("facility tax must be between 0 and 1, got %v", tax)
	}
	return nil
}

// SetTypeID navigates to a different item: state resets to Editable(0,0)
// regardless of the previous item's terminal state, and a fresh fetch is
// issued. The previous result is cleared so a stale item is never shown
// under a new typeID.
func (c *Configurator) SetTypeID(ctx context.Context, typeID int32) <-chan error {
	c.mu.Lock()
	c.typeID = typeID
	c.state = StateEditable
	c.me, c.te = 0, 0
	c.result = nil
	done := c.fetchLocked(ctx)
	c.mu.Unlock()
	return done
}

// SetParameters applies a user edit of ME/TE and re-fetches. Only legal in
// the Editable state.
func (c *Configurator) SetParameters(ctx context.Context, me, te int) (<-chan error, error) {
	if err := validParameters(me, te); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateEditable {
		return nil, fmt.Errorf("parameters are locked for tech-2 type %d", c.typeID)
	}
	c.me, c.te = me, te
	return c.fetchLocked(ctx), nil
}

// SetFacilityTax applies a new tax and re-fetches with the current ME/TE.
// The tax is orthogonal to the editability state and is legal in both.
func (c *Configurator) SetFacilityTax(ctx context.Context, tax float64) (<-chan error, error) {
	if err := validFacilityTax(tax); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.facilityTax = tax
	return c.fetchLocked(ctx), nil
}

// fetchLocked issues an asynchronous fetch for the current parameter tuple.
// The caller must hold c.mu. The returned channel resolves once the response
// has been applied or discarded.
func (c *Configurator) fetchLocked(ctx context.Context) <-chan error {
	c.gen++
	gen := c.gen
	typeID, me, te, tax := c.typeID, c.me, c.te, c.facilityTax

	done := make(chan error, 1)
	go func() {
		defer close(done)

		result, err := c.fetcher.FetchManufacturing(ctx, typeID, me, te, tax)
		if err != nil {
			slog.Warn("manufacturing fetch failed, keeping previous result",
				"type_id", typeID, "me", me, "te", te, "error", err)
			done <- err
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			slog.Debug("discarding superseded manufacturing response",
				"type_id", typeID, "generation", gen, "latest", c.gen)
			done <- nil
			return
		}
		c.applyLocked(result)
		done <- nil
	}()
	return done
}

// applyLocked centralizes the state transition on a received result.
func (c *Configurator) applyLocked(result *upstream.ManufacturingResult) {
	c.result = result
	if result.IsTech2 {
		// Tech-2 blueprints have a fixed efficiency pair; reflect the
		// server's values and stop accepting edits.
		c.state = StateLocked
		c.me = result.ME
		c.te = result.TE
		return
	}
	// Non-tech-2: the user's ME/TE stand; server values are not adopted.
	c.state = StateEditable
}

// Snapshot returns the current state, parameters, and typeID.
func (c *Configurator) Snapshot() (state State, typeID int32, me, te int, facilityTax float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.typeID, c.me, c.te, c.facilityTax
}

// Result returns the latest accepted manufacturing result, or nil before
// the first successful fetch for the current item.
func (c *Configurator) Result() *upstream.ManufacturingResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}
