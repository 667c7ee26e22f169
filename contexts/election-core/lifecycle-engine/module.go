package lifecycleengine

import (
	"context"
	"log/slog"
	"time"

	httpadapter "ballotcore/contexts/election-core/lifecycle-engine/adapters/http"
	"ballotcore/contexts/election-core/lifecycle-engine/adapters/memory"
	"ballotcore/contexts/election-core/lifecycle-engine/application/commands"
	"ballotcore/contexts/election-core/lifecycle-engine/application/phase"
	"ballotcore/contexts/election-core/lifecycle-engine/application/queries"
	"ballotcore/contexts/election-core/lifecycle-engine/application/scheduler"
	"ballotcore/contexts/election-core/lifecycle-engine/application/workers"
	"ballotcore/contexts/election-core/lifecycle-engine/ports"
)

type Module struct {
	Handler    httpadapter.Handler
	Scheduler  *scheduler.ElectionScheduler
	Phases     *phase.Cache
	Consumer   workers.PhaseEventConsumer
	Reconciler workers.ScheduleReconciler
	Store      *memory.Store
}

type Dependencies struct {
	Ledger          ports.Ledger
	Publisher       ports.EventPublisher
	Subscriber      ports.EventSubscriber
	Clock           ports.Clock
	IDGen           ports.IDGenerator
	VoteLimit       int
	PublishTimeout  time.Duration
	ConsumerEnabled bool
	Logger          *slog.Logger
}

func NewModule(deps Dependencies) Module {
	phases := phase.NewCache()
	electionScheduler := scheduler.NewElectionScheduler(
		deps.Publisher,
		deps.Clock,
		deps.IDGen,
		phases,
		deps.Logger,
	)
	electionScheduler.PublishTimeout = deps.PublishTimeout

	voteUseCase := commands.VoteUseCase{
		Ledger:    deps.Ledger,
		Phases:    phases,
		Clock:     deps.Clock,
		VoteLimit: deps.VoteLimit,
		Logger:    deps.Logger,
	}
	electionUseCase := commands.ElectionUseCase{
		Ledger:   deps.Ledger,
		Triggers: electionScheduler,
		Clock:    deps.Clock,
		Logger:   deps.Logger,
	}
	electionQueries := queries.ElectionQueries{
		Ledger: deps.Ledger,
		Phases: phases,
		Clock:  deps.Clock,
		Logger: deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			Elections: electionUseCase,
			Votes:     voteUseCase,
			Queries:   electionQueries,
			Logger:    deps.Logger,
		},
		Scheduler: electionScheduler,
		Phases:    phases,
		Consumer: workers.PhaseEventConsumer{
			Subscriber: deps.Subscriber,
			Phases:     phases,
			Ledger:     deps.Ledger,
			Clock:      deps.Clock,
			Disabled:   !deps.ConsumerEnabled,
			Logger:     deps.Logger,
		},
		Reconciler: workers.ScheduleReconciler{
			Ledger:   deps.Ledger,
			Triggers: electionScheduler,
			Clock:    deps.Clock,
			Logger:   deps.Logger,
		},
	}
}

// NewInMemoryModule wires the engine against the in-process ledger with a
// discard publisher. Broadcast-dependent paths are exercised by plugging a
// real bus through NewModule instead.
func NewInMemoryModule(voteLimit int, logger *slog.Logger) Module {
	store := memory.NewStore(voteLimit)
	module := NewModule(Dependencies{
		Ledger:    store,
		Publisher: discardPublisher{},
		Clock:     store,
		IDGen:     store,
		VoteLimit: voteLimit,
		Logger:    logger,
	})
	module.Store = store
	return module
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, ports.EventEnvelope) error {
	return nil
}
