package persist

import (
	"sync"
	"time"

	"chathelper/internal/persist/interfaces"
	"chathelper/internal/providers"
	"chathelper/internal/structures"

	"github.com/roylee0704/gron"
)

type Scheduler struct {
	config    *structures.Config
	logger    providers.Logger
	fileStore FileStoreInterface
	metrics   providers.MetricsProviderInterface
	cron      *gron.Cron
	opsMu     sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()
	interval := s.config.Persistence.SaveInterval

	s.cron.AddFunc(gron.Every(interval*time.Second), func() {
		if err := s.Persist(); err != nil {
			return
		}
		s.logger.Infof(providers.TypeApp, "Persisted records to file %s", s.config.Persistence.FilePath)
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) Restore() error {
	return s.fileStore.LoadFromFile(s.config.Persistence.FilePath)
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	start := time.Now()
	err := s.fileStore.SaveToFile(s.config.Persistence.FilePath)
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting records: %s", err)
		return err
	}
	s.metrics.ObservePersistenceDuration(time.Since(start))
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, fileStore FileStoreInterface, metrics providers.MetricsProviderInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:    config,
		logger:    logger,
		fileStore: fileStore,
		metrics:   metrics,
	}
}
