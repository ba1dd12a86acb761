package worker

import (
	"log"
	"time"

	"github.com/prop-engine/internal/models"
	"github.com/prop-engine/internal/repository"
	"github.com/prop-engine/internal/service"
	"github.com/robfig/cron/v3"
)

// MaintenanceWorker runs scheduled housekeeping: expiring challenge accounts
// past their deadline and repairing interrupted funded promotions
type MaintenanceWorker struct {
	accountRepo    *repository.AccountRepository
	accountService *service.AccountService
	schedule       string
	cron           *cron.Cron
}

// NewMaintenanceWorker creates a new maintenance worker
func NewMaintenanceWorker(
	accountRepo *repository.AccountRepository,
	accountService *service.AccountService,
	schedule string,
) *MaintenanceWorker {
	return &MaintenanceWorker{
		accountRepo:    accountRepo,
		accountService: accountService,
		schedule:       schedule,
		cron:           cron.New(),
	}
}

// Start registers the jobs and starts the scheduler
func (w *MaintenanceWorker) Start() error {
	if _, err := w.cron.AddFunc(w.schedule, w.runOnce); err != nil {
		return err
	}
	w.cron.Start()
	log.Printf("Maintenance worker started with schedule: %s", w.schedule)

	// Run immediately so a restart does not wait for the next slot
	go w.runOnce()
	return nil
}

// Stop stops the scheduler
func (w *MaintenanceWorker) Stop() {
	w.cron.Stop()
	log.Println("Maintenance worker stopped")
}

func (w *MaintenanceWorker) runOnce() {
	w.expireOverdueAccounts()
	w.repairFundedLinks()
}

// expireOverdueAccounts marks active challenge accounts whose deadline has
// passed as EXPIRED
func (w *MaintenanceWorker) expireOverdueAccounts() {
	now := time.Now()
	accounts, err := w.accountRepo.GetActiveExpiredBefore(now)
	if err != nil {
		log.Printf("Maintenance worker: failed to list expired accounts: %v", err)
		return
	}

	for i := range accounts {
		account := &accounts[i]
		account.Status = models.StatusExpired
		if err := w.accountRepo.Update(account); err != nil {
			log.Printf("Maintenance worker: failed to expire account %d: %v", account.ID, err)
			continue
		}
		log.Printf("Maintenance worker: account %s expired (deadline %s)",
			account.AccountNumber, account.ExpiresAt.Format(time.RFC3339))
	}
}

// repairFundedLinks completes promotions interrupted between creating the
// funded record and linking it back to the source account
func (w *MaintenanceWorker) repairFundedLinks() {
	if err := w.accountService.RepairDanglingFundedLinks(); err != nil {
		log.Printf("Maintenance worker: funded link repair failed: %v", err)
	}
}
