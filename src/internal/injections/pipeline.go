package injections

import (
	"context"
	"sync"

	"github.com/dnsprotect/dnsprotect/src/internal/log"
	"github.com/dnsprotect/dnsprotect/src/internal/packet"
)

// Pipeline runs registered injections phase by phase.
type Pipeline struct {
	injections []Injection
	byPhase    map[Phase][]Injection
	wg         sync.WaitGroup
	logger     *log.Logger
}

// NewPipeline creates a pipeline. Registration order is the tie-break for
// BeforeQuery overrides and the chain order of BeforeResponse.
func NewPipeline(injections ...Injection) *Pipeline {
	p := &Pipeline{
		injections: injections,
		byPhase:    make(map[Phase][]Injection),
		logger:     log.New("PIPELINE"),
	}
	for _, inj := range injections {
		p.byPhase[inj.Phase()] = append(p.byPhase[inj.Phase()], inj)
	}
	return p
}

// Injections returns the registered injections in order.
func (p *Pipeline) Injections() []Injection {
	return p.injections
}

// BeforeQuery runs the BeforeQuery injections concurrently against query.
func (p *Pipeline) BeforeQuery(ctx context.Context, query []byte) (Result, error) {
	selected := p.byPhase[BeforeQuery]
	if len(selected) == 0 {
		return Result{}, nil
	}

	q, err := packet.Parse(query)
	if err != nil {
		return Result{}, err
	}

	results := make([]Result, len(selected))
	var wg sync.WaitGroup
	for i, inj := range selected {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = p.run(ctx, inj, q, nil)
		}()
	}
	wg.Wait()

	var combined Result
	for _, res := range results {
		combined.Halt = combined.Halt || res.Halt
		if combined.Query == nil && len(res.Query) > 0 {
			combined.Query = res.Query
		}
		if combined.Response == nil && len(res.Response) > 0 {
			combined.Response = res.Response
		}
	}
	return combined, nil
}

// BeforeResponse runs the BeforeResponse chain. The returned Response is nil
// when no injection replaced the response.
func (p *Pipeline) BeforeResponse(ctx context.Context, query, response []byte) (Result, error) {
	selected := p.byPhase[BeforeResponse]
	if len(selected) == 0 {
		return Result{}, nil
	}

	q, err := packet.Parse(query)
	if err != nil {
		return Result{}, err
	}
	current, err := packet.Parse(response)
	if err != nil {
		return Result{}, err
	}

	var override []byte
	for _, inj := range selected {
		res, ran := p.run(ctx, inj, q, current)
		if !ran {
			continue
		}
		if res.Halt {
			return Result{Halt: true}, nil
		}
		if len(res.Response) > 0 {
			next, err := packet.Parse(res.Response)
			if err != nil {
				p.logger.Warnf("[%04x] %s returned an invalid response: %v", q.ID, inj.Name(), err)
				continue
			}
			override = res.Response
			current = next
		}
	}
	return Result{Response: override}, nil
}

// AfterResponse starts the AfterResponse injections in the background.
// ctx must outlive the request; use Wait to block until they finish.
func (p *Pipeline) AfterResponse(ctx context.Context, query, response []byte) {
	selected := p.byPhase[AfterResponse]
	if len(selected) == 0 {
		return
	}

	q, err := packet.Parse(query)
	if err != nil {
		p.logger.Warnf("Skipping %s: %v", AfterResponse, err)
		return
	}
	r, err := packet.Parse(response)
	if err != nil {
		p.logger.Warnf("[%04x] Skipping %s: %v", q.ID, AfterResponse, err)
		return
	}

	for _, inj := range selected {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx, inj, q, r)
		}()
	}
}

// Wait blocks until all background AfterResponse work has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// run executes inj if it asks to. The bool reports whether Execute ran and succeeded.
func (p *Pipeline) run(ctx context.Context, inj Injection, query, response *packet.Packet) (Result, bool) {
	needs, err := inj.NeedsExecution(ctx, query, response)
	if err != nil {
		p.logger.Warnf("[%04x] %s check failed: %v", query.ID, inj.Name(), err)
		return Result{}, false
	}
	if !needs {
		return Result{}, false
	}

	res, err := inj.Execute(ctx, query, response)
	if err != nil {
		p.logger.Warnf("[%04x] %s failed: %v", query.ID, inj.Name(), err)
		return Result{}, false
	}
	return res, true
}
