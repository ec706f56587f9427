package orchestrator

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/pbnjay/memory"
)

// memLevel classifies current RSS pressure against the configured budget,
// per spec §4.5's warning/prompt/emergency thresholds.
type memLevel uint8

const (
	memOK memLevel = iota
	memWarning
	memPrompt
	memEmergency
)

// MemGovernor polls process RSS against config.MemoryConfig's budget and
// fractions, spilling or evicting the least-recently-used projects as
// pressure rises. It never touches a project's durable storage rows:
// spilling only drops the in-memory PDG/vector structures that
// Registry.reload can rebuild on next access. Orchestrator.StartMemGovernor
// also attaches it to the Registry, so Get/Ensure start rejecting new
// project loads with Unavailable once Level() reports Emergency.
type MemGovernor struct {
	orch *Orchestrator

	mu      sync.Mutex
	level   memLevel
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	onPoll func(rss uint64, level memLevel) // test hook, nil in production
}

// NewMemGovernor returns a governor over o.
func NewMemGovernor(o *Orchestrator) *MemGovernor {
	return &MemGovernor{orch: o}
}

// Start begins polling at the configured interval in a background
// goroutine. Calling Start twice is a no-op.
func (g *MemGovernor) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.running = true
	g.wg.Add(1)
	go g.loop(ctx)
}

// Stop halts polling and waits for the background goroutine to exit.
func (g *MemGovernor) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.cancel()
	g.running = false
	g.mu.Unlock()
	g.wg.Wait()
}

func (g *MemGovernor) loop(ctx context.Context) {
	defer g.wg.Done()
	interval := time.Duration(g.orch.cfg.Memory.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Poll()
		}
	}
}

// Poll runs one RSS measurement and reacts to it; exported so diagnostics
// and tests can force a measurement off the ticker's schedule.
func (g *MemGovernor) Poll() memLevel {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	rss := ms.Sys

	level := g.classify(rss)
	g.mu.Lock()
	g.level = level
	g.mu.Unlock()

	switch level {
	case memPrompt:
		g.spillLRU(1)
	case memEmergency:
		g.evictLRU(len(g.orch.registry.All()))
	}

	if g.onPoll != nil {
		g.onPoll(rss, level)
	}
	return level
}

// classify compares rss against the budget's warning/prompt/emergency
// fractions, also escalating to emergency if the host itself is nearly
// out of free physical memory regardless of the configured budget.
func (g *MemGovernor) classify(rss uint64) memLevel {
	cfg := g.orch.cfg.Memory
	budget := uint64(cfg.BudgetMB) * 1024 * 1024
	if budget == 0 {
		return memOK
	}
	fraction := float64(rss) / float64(budget)

	if total := memory.TotalMemory(); total > 0 {
		free := memory.FreeMemory()
		if float64(free)/float64(total) < 0.02 {
			return memEmergency
		}
	}

	switch {
	case fraction >= cfg.EmergencyFraction:
		return memEmergency
	case fraction >= cfg.PromptFraction:
		return memPrompt
	case fraction >= cfg.WarningFraction:
		return memWarning
	default:
		return memOK
	}
}

// Level reports the last-measured pressure level.
func (g *MemGovernor) Level() memLevel {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.level
}

// spillLRU drops the PDG and vector structures (retaining the lexical
// index and storage rows) for the n least-recently-accessed projects.
func (g *MemGovernor) spillLRU(n int) {
	ordered := lruOrdered(g.orch.registry.All())
	for _, p := range ordered[:min(n, len(ordered))] {
		p.spillPDG()
		p.spillVector()
	}
}

// evictLRU fully unloads the n least-recently-accessed projects from
// memory; their rows remain durable and rehydrate on next Ensure.
func (g *MemGovernor) evictLRU(n int) {
	all := lruOrdered(g.orch.registry.All())
	for _, p := range all[:min(n, len(all))] {
		g.orch.registry.Evict(p.ID)
	}
}

func lruOrdered(projects []*Project) []*Project {
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].LastAccess().Before(projects[j].LastAccess())
	})
	return projects
}
