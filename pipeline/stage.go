package pipeline

import "github.com/hupe1980/agentstudio/core"

// stageItem is one unit flowing through the stage multiplexer: either a
// forwarded event or an agent's completion sentinel.
type stageItem struct {
	event  core.Event
	done   bool
	result agentResult
}

// runParallelStage fans out all agents of one stage concurrently and merges
// their event streams into the run's feed. Every agent pushes its events
// into one shared FIFO channel followed by its own completion sentinel; the
// merge forwards events as they arrive and terminates only once it has seen
// a sentinel from every agent. Per-agent emission order is preserved;
// interleaving across agents depends purely on arrival timing. Nothing is
// aggregated here; a finished agent never blocks a still-streaming one.
func (r *run) runParallelStage(stage []core.AgentDescriptor) []agentResult {
	merged := make(chan stageItem, r.p.eventBufferSize)

	for _, desc := range stage {
		go func(desc core.AgentDescriptor) {
			result := r.runAgent(desc, func(ev core.Event) bool {
				select {
				case <-r.ctx.Done():
					return false
				case merged <- stageItem{event: ev}:
					return true
				}
			})
			select {
			case <-r.ctx.Done():
			case merged <- stageItem{done: true, result: result}:
			}
		}(desc)
	}

	results := make([]agentResult, 0, len(stage))
	for done := 0; done < len(stage); {
		select {
		case <-r.ctx.Done():
			return results
		case item := <-merged:
			if item.done {
				done++
				results = append(results, item.result)
				continue
			}
			if !r.emit(item.event) {
				return results
			}
		}
	}
	return results
}
