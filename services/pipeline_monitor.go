package services

import (
	"context"
	"time"

	"github.com/manasa1349/payment-gateway-task/queue"
	"github.com/manasa1349/payment-gateway-task/repository"
	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/sirupsen/logrus"
)

// QueueStatsSource reports queue depth. queue.Client implements it.
type QueueStatsSource interface {
	Stats(ctx context.Context, queueName string) (queue.Stats, error)
}

// JobStatus describes the settlement queue.
type JobStatus struct {
	Pending      int64  `json:"pending"`
	Processing   int64  `json:"processing"`
	Completed    int64  `json:"completed"`
	Failed       int64  `json:"failed"`
	WorkerStatus string `json:"worker_status"`
}

// PipelineMetrics is a point-in-time snapshot of queue and ledger state.
type PipelineMetrics struct {
	Queues   map[string]queue.Stats `json:"queues"`
	Payments map[string]int64       `json:"payments"`
	Webhooks map[string]int64       `json:"webhooks"`
	At       time.Time              `json:"at"`
}

// PipelineMonitor samples the pipeline on an interval and logs the totals.
type PipelineMonitor struct {
	stats    QueueStatsSource
	store    *repository.Store
	interval time.Duration
}

func NewPipelineMonitor(stats QueueStatsSource, store *repository.Store, interval time.Duration) *PipelineMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PipelineMonitor{stats: stats, store: store, interval: interval}
}

// JobStatus reports the payments queue. Pending counts waiting and delayed jobs.
func (pm *PipelineMonitor) JobStatus(ctx context.Context) (*JobStatus, error) {
	st, err := pm.stats.Stats(ctx, queue.QueuePayments)
	if err != nil {
		return nil, err
	}
	return &JobStatus{
		Pending:      st.Waiting + st.Delayed,
		Processing:   st.Active,
		Completed:    st.Completed,
		Failed:       st.Failed,
		WorkerStatus: "running",
	}, nil
}

// Collect takes a metrics snapshot.
func (pm *PipelineMonitor) Collect(ctx context.Context) (PipelineMetrics, error) {
	m := PipelineMetrics{Queues: make(map[string]queue.Stats), At: time.Now().UTC()}
	for _, name := range []string{queue.QueuePayments, queue.QueueRefunds, queue.QueueWebhooks} {
		st, err := pm.stats.Stats(ctx, name)
		if err != nil {
			return m, err
		}
		m.Queues[name] = st
	}

	var err error
	if m.Payments, err = pm.store.Payments.CountByStatus(ctx); err != nil {
		return m, err
	}
	if m.Webhooks, err = pm.store.WebhookLogs.CountByStatus(ctx); err != nil {
		return m, err
	}
	return m, nil
}

// Run logs a snapshot every interval until ctx is cancelled.
func (pm *PipelineMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(pm.interval)
	defer ticker.Stop()

	utils.InfoLogger.Info("Pipeline monitor started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m, err := pm.Collect(ctx)
			if err != nil {
				utils.ErrorLogger.Errorf("Pipeline monitor: %v", err)
				continue
			}
			fields := logrus.Fields{}
			for name, st := range m.Queues {
				fields[name+"_waiting"] = st.Waiting + st.Delayed
				fields[name+"_active"] = st.Active
				fields[name+"_failed"] = st.Failed
			}
			for status, n := range m.Payments {
				fields["payments_"+status] = n
			}
			for status, n := range m.Webhooks {
				fields["webhooks_"+status] = n
			}
			utils.InfoLogger.WithFields(fields).Info("Pipeline metrics")
		}
	}
}
