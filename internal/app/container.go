package app

import (
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"

	"github.com/fefejiro/peacepad/internal/processor"
	"github.com/fefejiro/peacepad/internal/repositories/balance"
	"github.com/fefejiro/peacepad/internal/repositories/event"
	"github.com/fefejiro/peacepad/internal/repositories/expense"
	"github.com/fefejiro/peacepad/internal/repositories/message"
	"github.com/fefejiro/peacepad/internal/repositories/partnership"
	"github.com/fefejiro/peacepad/internal/repositories/settlement"
	"github.com/fefejiro/peacepad/pkg/custody"
	"github.com/fefejiro/peacepad/pkg/events"
	"github.com/fefejiro/peacepad/pkg/ledger"
	"github.com/fefejiro/peacepad/pkg/redis"
	"github.com/fefejiro/peacepad/pkg/routes/health"
	"github.com/fefejiro/peacepad/pkg/tone"
)

// balanceLockPrefix namespaces the per-partnership balance lock keys.
const balanceLockPrefix = "peacepad:balance:"

// buildContainer constructs the repositories and services and registers the
// instances the route handlers resolve from request context. Handlers only
// see what is registered here.
func (a *App) buildContainer() error {
	cfg := a.cfg

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	partnershipRepo := partnership.NewRepository(a.db, a.logger)
	eventRepo := event.NewRepository(a.db, a.logger)
	expenseRepo := expense.NewRepository(a.db, a.logger)
	settlementRepo := settlement.NewRepository(a.db, a.logger)
	balanceRepo := balance.NewRepository(a.db, a.logger)
	messageRepo := message.NewRepository(a.db, a.logger)

	locker := redis.NewLocker(a.redis, balanceLockPrefix)
	emitter := events.NewEmitter(a.producer, a.logger, cfg.KafkaEventsTopic, cfg.KafkaToneTopic)

	custodyService := custody.NewService(a.logger, partnershipRepo, eventRepo)
	ledgerService := ledger.NewService(
		a.logger,
		partnershipRepo,
		expenseRepo,
		settlementRepo,
		balanceRepo,
		locker,
		emitter,
		cfg.BalanceLockTTL,
	)

	toneCfg := tone.DefaultConfig()
	toneCfg.BaseURL = cfg.ToneServiceURL
	toneCfg.Timeout = cfg.ToneTimeout
	toneClient := tone.NewClient(toneCfg, a.logger)

	a.processor = processor.NewProcessor(processor.DefaultConfig(), messageRepo, toneClient, a.redis, a.logger)
	a.checker = health.NewChecker(a.db, a.redis, a.version)

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, a.logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*partnership.Repository](container, partnershipRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*event.Repository](container, eventRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*expense.Repository](container, expenseRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*message.Repository](container, messageRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*custody.Service](container, custodyService); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*ledger.Service](container, ledgerService); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*events.Emitter](container, emitter); err != nil {
		return err
	}

	return nil
}
