// Package scheduler runs the periodic low-stock scan.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"cafe-backend/internal/audit"
	"cafe-backend/internal/inventory"
	"cafe-backend/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	inventory *inventory.Service
	audit     *audit.Service
	logger    *zap.Logger
}

// New builds a scheduler running the low-stock scan on spec (standard 5-field cron).
func New(spec string, inv *inventory.Service, auditSvc *audit.Service, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:      cron.New(),
		spec:      spec,
		inventory: inv,
		audit:     auditSvc,
		logger:    logger,
	}
}

// Start registers the jobs and starts the cron loop. An invalid spec is an error.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("low_stock_cron", s.spec))
	if _, err := s.cron.AddFunc(s.spec, s.scanLowStock); err != nil {
		return fmt.Errorf("schedule low stock scan: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) scanLowStock() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.ScanLowStock(ctx); err != nil {
		s.logger.Error("low stock scan failed", zap.Error(err))
	}
}

// ScanLowStock logs and audits every ingredient at or below its reorder level.
func (s *Scheduler) ScanLowStock(ctx context.Context) ([]models.Ingredient, error) {
	low, err := s.inventory.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	for _, ing := range low {
		s.logger.Warn("ingredient below reorder level",
			zap.Uint("ingredient_id", ing.ID),
			zap.String("name", ing.Name),
			zap.Float64("stock", ing.Stock),
			zap.Float64("reorder_level", *ing.ReorderLevel),
		)
		_ = s.audit.WriteLog(ctx, audit.LogOptions{
			Event:       models.AuditLowStockAlert,
			UserName:    "scheduler",
			EntityType:  "ingredient",
			EntityID:    ing.ID,
			Description: fmt.Sprintf("%s at %g %s (reorder level %g)", ing.Name, ing.Stock, ing.Unit, *ing.ReorderLevel),
		})
	}
	s.logger.Info("low stock scan finished", zap.Int("low", len(low)))
	return low, nil
}
