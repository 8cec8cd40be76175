package service

import (
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler keeps the configured coins' history current
type Scheduler struct {
	Cron  *cron.Cron
	sc    *ServiceContext
	coins []string
}

func NewScheduler(sc *ServiceContext, coins []string) *Scheduler {
	return &Scheduler{
		Cron:  cron.New(cron.WithSeconds()),
		sc:    sc,
		coins: coins,
	}
}

func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.SyncAll); err != nil {
		return fmt.Errorf("register sync task: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Printf("[INFO] scheduler started, syncing %d coins", len(s.coins))
}

// Stop waits for a running sync to finish
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// SyncAll syncs every coin in turn, one failure does not stop the rest
func (s *Scheduler) SyncAll() {
	for _, coin := range s.coins {
		if s.sc.Context.Err() != nil {
			return
		}

		inserted, err := s.sc.SyncCoinPriceHistory(coin)
		switch {
		case errors.Is(err, ErrRecentlyRefreshed):
			log.Printf("[INFO] %v", err)
		case err != nil:
			log.Printf("[ERROR] sync %s: %v", coin, err)
		default:
			log.Printf("[INFO] synced %s, %d new rows", coin, inserted)
		}
	}
}
