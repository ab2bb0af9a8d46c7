// Package presenter derives the claim list screen from the claim store.
package presenter

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"reimburse/internal/core"
)

const fetchKey = "claims"

type (
	// Source is the read side of the claim store.
	Source interface {
		GetAll(ctx context.Context) []core.Claim
	}

	// Item is one row of the list with its derived display attributes.
	Item struct {
		core.Claim
		StatusColor string `json:"statusColor"`
		StatusLabel string `json:"statusLabel"`
		Icon        string `json:"icon"`
	}

	// StatusCount aggregates the list by status for the header badges.
	StatusCount struct {
		Status core.Status `json:"status"`
		Label  string      `json:"label"`
		Count  int         `json:"count"`
	}

	ListView struct {
		Items   []Item        `json:"items"`
		Summary []StatusCount `json:"summary"`
		Empty   bool          `json:"empty"`
		Loading bool          `json:"loading"`
		Total   int           `json:"total"`
	}
)

// Presenter holds the currently displayed collection. Load and Refresh both
// replace it from the store; overlapping calls share one fetch.
type Presenter struct {
	src    Source
	logger *slog.Logger
	group  singleflight.Group

	mu       sync.RWMutex
	claims   []core.Claim
	inflight atomic.Int32
}

func New(src Source, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{src: src, logger: logger}
}

// Load is called when the list screen gains focus.
func (p *Presenter) Load(ctx context.Context) ListView {
	p.fetch(ctx, "load")
	return p.View()
}

// Refresh is the pull-to-refresh action.
func (p *Presenter) Refresh(ctx context.Context) ListView {
	p.fetch(ctx, "refresh")
	return p.View()
}

func (p *Presenter) fetch(ctx context.Context, trigger string) {
	p.inflight.Add(1)
	defer p.inflight.Add(-1)

	// The fetch is shared, so it must not die with whichever caller started it.
	_, _, shared := p.group.Do(fetchKey, func() (any, error) {
		claims := p.src.GetAll(context.WithoutCancel(ctx))
		p.mu.Lock()
		p.claims = claims
		p.mu.Unlock()
		return nil, nil
	})
	p.logger.DebugContext(ctx, "Claim list fetched", "trigger", trigger, "shared", shared)
}

// Loading reports whether a fetch is in flight.
func (p *Presenter) Loading() bool {
	return p.inflight.Load() > 0
}

// View renders the collection currently held, without fetching.
func (p *Presenter) View() ListView {
	p.mu.RLock()
	claims := p.claims
	p.mu.RUnlock()

	items := make([]Item, 0, len(claims))
	counts := map[core.Status]int{}
	for _, c := range claims {
		items = append(items, Item{
			Claim:       c,
			StatusColor: StatusColor(c.Status),
			StatusLabel: StatusLabel(c.Status),
			Icon:        TypeIcon(c.Type),
		})
		counts[c.Status]++
	}

	summary := make([]StatusCount, 0, 3)
	for _, s := range []core.Status{core.StatusPending, core.StatusApproved, core.StatusRejected} {
		summary = append(summary, StatusCount{Status: s, Label: StatusLabel(s), Count: counts[s]})
	}

	return ListView{
		Items:   items,
		Summary: summary,
		Empty:   len(items) == 0,
		Loading: p.Loading(),
		Total:   len(items),
	}
}
