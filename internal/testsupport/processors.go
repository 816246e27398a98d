package testsupport

import (
	"context"
	"sync"
	"time"

	"lexsync/internal/queue"
)

// ScriptedQueryProcessor replays a per-item script of outcomes and records
// the order in which items were attempted. A nil script entry means
// success; an error entry is returned as the processing failure. When an
// item's script is exhausted the processor keeps returning the last entry.
type ScriptedQueryProcessor struct {
	mu      sync.Mutex
	scripts map[string][]error
	release <-chan struct{}
	Order   []string
}

// NewScriptedQueryProcessor builds an empty scripted processor. With no
// script every item succeeds.
func NewScriptedQueryProcessor() *ScriptedQueryProcessor {
	return &ScriptedQueryProcessor{scripts: make(map[string][]error)}
}

// Script sets the outcome sequence for one item id.
func (p *ScriptedQueryProcessor) Script(id string, outcomes ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts[id] = outcomes
}

// HoldUntil makes every subsequent attempt block until release is closed.
// The attempt is recorded before blocking, so tests can observe it while
// the call is still in flight.
func (p *ScriptedQueryProcessor) HoldUntil(release <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release = release
}

// ProcessQuery consumes the next scripted outcome for the item.
func (p *ScriptedQueryProcessor) ProcessQuery(_ context.Context, q *queue.QueuedQuery) (*queue.QueryResult, error) {
	p.mu.Lock()
	p.Order = append(p.Order, q.ID)
	outcomes := p.scripts[q.ID]
	var next error
	if len(outcomes) > 0 {
		next = outcomes[0]
		if len(outcomes) > 1 {
			p.scripts[q.ID] = outcomes[1:]
		}
	}
	release := p.release
	p.mu.Unlock()

	if release != nil {
		<-release
	}
	if next != nil {
		return nil, next
	}
	return &queue.QueryResult{
		Answer:      "answer for " + q.ID,
		Sources:     []string{"source-1"},
		CompletedAt: time.Now().UTC(),
	}, nil
}

// Attempts returns how many times the item was attempted.
func (p *ScriptedQueryProcessor) Attempts(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, seen := range p.Order {
		if seen == id {
			count++
		}
	}
	return count
}

// ScriptedDocumentProcessor mirrors ScriptedQueryProcessor for documents.
type ScriptedDocumentProcessor struct {
	mu      sync.Mutex
	scripts map[string][]error
	Order   []string
}

// NewScriptedDocumentProcessor builds an empty scripted processor.
func NewScriptedDocumentProcessor() *ScriptedDocumentProcessor {
	return &ScriptedDocumentProcessor{scripts: make(map[string][]error)}
}

// Script sets the outcome sequence for one item id.
func (p *ScriptedDocumentProcessor) Script(id string, outcomes ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts[id] = outcomes
}

// ProcessDocument consumes the next scripted outcome for the item.
func (p *ScriptedDocumentProcessor) ProcessDocument(_ context.Context, d *queue.QueuedDocument) (*queue.DocumentResult, error) {
	p.mu.Lock()
	p.Order = append(p.Order, d.ID)
	outcomes := p.scripts[d.ID]
	var next error
	if len(outcomes) > 0 {
		next = outcomes[0]
		if len(outcomes) > 1 {
			p.scripts[d.ID] = outcomes[1:]
		}
	}
	p.mu.Unlock()

	if next != nil {
		return nil, next
	}
	return &queue.DocumentResult{
		ProcessedID: "processed-" + d.ID,
		Summary:     "summary for " + d.Filename,
		CompletedAt: time.Now().UTC(),
	}, nil
}

// Attempts returns how many times the item was attempted.
func (p *ScriptedDocumentProcessor) Attempts(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, seen := range p.Order {
		if seen == id {
			count++
		}
	}
	return count
}
