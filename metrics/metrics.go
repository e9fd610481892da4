package metrics

import "sync/atomic"

// Metrics captures shared operational stats for the queue, the workers and
// the extraction pipeline. A nil *Metrics is valid and records nothing.
type Metrics struct {
	queueLength   int64
	queueCapacity int64
	workerCount   int64

	processedJobs int64
	failedJobs    int64

	extractions       int64
	extractFailures   int64
	schemaViolations  int64
	normalizedRecords int64
	recovery          [4]int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	QueueLength       int              `json:"queue_length"`
	QueueCapacity     int              `json:"queue_capacity"`
	WorkerCount       int              `json:"worker_count"`
	ProcessedJobs     int64            `json:"processed_jobs"`
	FailedJobs        int64            `json:"failed_jobs"`
	Extractions       int64            `json:"extractions"`
	ExtractFailures   int64            `json:"extract_failures"`
	SchemaViolations  int64            `json:"schema_violations"`
	NormalizedRecords int64            `json:"normalized_records"`
	RecoveryStages    map[string]int64 `json:"recovery_stages"`
}

// recovery stage names, indexed by stage number - 1.
var stageNames = [4]string{"whole", "slice", "balanced", "default"}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// UpdateQueue records the current queue stats.
func (m *Metrics) UpdateQueue(length, capacity, workers int) {
	if m == nil {
		return
	}
	atomic.StoreInt64(&m.queueLength, int64(length))
	atomic.StoreInt64(&m.queueCapacity, int64(capacity))
	atomic.StoreInt64(&m.workerCount, int64(workers))
}

// RecordJobCompletion increments processed/failed counters based on outcome.
func (m *Metrics) RecordJobCompletion(err error) {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.processedJobs, 1)
	if err != nil {
		atomic.AddInt64(&m.failedJobs, 1)
	}
}

// RecordExtraction counts one extraction run. schemaErr marks failures caused
// by validation rather than transport.
func (m *Metrics) RecordExtraction(err error, schemaErr bool) {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.extractions, 1)
	if err != nil {
		atomic.AddInt64(&m.extractFailures, 1)
	}
	if schemaErr {
		atomic.AddInt64(&m.schemaViolations, 1)
	}
}

// RecordRecovery counts which JSON recovery stage (1-4) parsed a model reply.
func (m *Metrics) RecordRecovery(stage int) {
	if m == nil || stage < 1 || stage > len(m.recovery) {
		return
	}
	atomic.AddInt64(&m.recovery[stage-1], 1)
}

// RecordNormalized counts one raw record mapped to the nested schema.
func (m *Metrics) RecordNormalized(err error, schemaErr bool) {
	if m == nil {
		return
	}
	if err == nil {
		atomic.AddInt64(&m.normalizedRecords, 1)
	}
	if schemaErr {
		atomic.AddInt64(&m.schemaViolations, 1)
	}
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{RecoveryStages: map[string]int64{}}
	}
	stages := make(map[string]int64, len(stageNames))
	for i, name := range stageNames {
		stages[name] = atomic.LoadInt64(&m.recovery[i])
	}
	return Snapshot{
		QueueLength:       int(atomic.LoadInt64(&m.queueLength)),
		QueueCapacity:     int(atomic.LoadInt64(&m.queueCapacity)),
		WorkerCount:       int(atomic.LoadInt64(&m.workerCount)),
		ProcessedJobs:     atomic.LoadInt64(&m.processedJobs),
		FailedJobs:        atomic.LoadInt64(&m.failedJobs),
		Extractions:       atomic.LoadInt64(&m.extractions),
		ExtractFailures:   atomic.LoadInt64(&m.extractFailures),
		SchemaViolations:  atomic.LoadInt64(&m.schemaViolations),
		NormalizedRecords: atomic.LoadInt64(&m.normalizedRecords),
		RecoveryStages:    stages,
	}
}
