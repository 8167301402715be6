package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/HexGuardSec/HexGuard/app/repository"
	"github.com/HexGuardSec/HexGuard/internal/pkg/scanner"
	"github.com/HexGuardSec/HexGuard/internal/pkg/scanstore"
)

// analysisDelay simulates engine latency so status polling is observable.
const analysisDelay = 2 * time.Second

// processScanAnalysisJob runs the analyzer for one submitted scan and writes
// the terminal result. The job is safe to execute more than once: an already
// finalized scan is skipped on re-read, and the terminal write itself is
// guarded so only the first writer lands.
func (q *Queue) processScanAnalysisJob(ctx context.Context, job *Job) error {
	payload, err := ScanAnalysisJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid scan analysis payload: %w", err)
	}

	repos := repository.GetGlobalRepositories()
	scan, err := repos.Scan.GetByUUID(payload.ScanUUID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Warnf("[JobQueue] Scan %s no longer exists, dropping job", payload.ScanUUID)
			return nil
		}
		return fmt.Errorf("failed to load scan %s: %w", payload.ScanUUID, err)
	}

	if scan.IsTerminal() {
		log.Infof("[JobQueue] Scan %s already finalized (%s), skipping", scan.UUID, scan.Status)
		return nil
	}

	if err := repos.Scan.UpdatePendingStatus(scan.UUID, models.ScanStatusUnderReview); err != nil {
		log.Warnf("[JobQueue] Could not move scan %s to review status: %v", scan.UUID, err)
	}
	if err := scanner.SetScanStatus(scan.UUID, models.ScanStatusUnderReview); err != nil {
		log.Warnf("[JobQueue] Could not cache review status for scan %s: %v", scan.UUID, err)
	}

	time.Sleep(analysisDelay)

	result, err := scanner.Analyze(scanner.Input{
		Kind:    scan.InputKind,
		Content: analysisContent(scan),
		Files:   scan.ScannedFiles,
		Network: scan.Network,
	})
	if err != nil {
		return fmt.Errorf("analysis of scan %s failed: %w", scan.UUID, err)
	}

	terminal := &models.Scan{
		Status:   result.Status,
		Score:    result.Score,
		Severity: result.Severity,
		Summary:  result.Summary,
		Findings: result.Findings,
		Language: result.Language,
		Tags:     result.Tags,
	}
	didWrite, err := repos.Scan.WriteTerminalResult(scan.UUID, terminal)
	if err != nil {
		return fmt.Errorf("failed to finalize scan %s: %w", scan.UUID, err)
	}
	if !didWrite {
		log.Infof("[JobQueue] Scan %s was finalized by another writer, result discarded", scan.UUID)
		return nil
	}

	if err := scanner.PublishTerminalEvent(scan.UUID, result.Status, result.Score); err != nil {
		log.Errorf("[JobQueue] Failed to publish terminal event for scan %s: %v", scan.UUID, err)
	}
	return nil
}

// processBundleUploadJob ships the uploaded FILES bundle to object storage.
// Storage is best effort; the scan result does not depend on it.
func (q *Queue) processBundleUploadJob(ctx context.Context, job *Job) error {
	payload, err := BundleUploadJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid bundle upload payload: %w", err)
	}

	repos := repository.GetGlobalRepositories()
	scan, err := repos.Scan.GetByUUID(payload.ScanUUID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Warnf("[JobQueue] Scan %s no longer exists, dropping bundle upload", payload.ScanUUID)
			return nil
		}
		return err
	}
	if len(scan.ScannedFiles) == 0 {
		return nil
	}

	return scanstore.UploadScanBundle(ctx, scan)
}

// handlePermanentFailure finalizes the scan of an exhausted analysis job as
// Failed. The guarded write keeps a concurrently landed result intact.
func (q *Queue) handlePermanentFailure(job *Job, jobErr error) {
	if job.Type != JobTypeScanAnalysis {
		return
	}
	payload, err := ScanAnalysisJobPayloadFromMap(job.Payload)
	if err != nil {
		log.Errorf("[JobQueue] Cannot parse payload of failed job %s: %v", job.ID, err)
		return
	}

	repos := repository.GetGlobalRepositories()
	terminal := &models.Scan{
		Status:  models.ScanStatusFailed,
		Summary: fmt.Sprintf("Analysis failed: %v", jobErr),
	}
	didWrite, err := repos.Scan.WriteTerminalResult(payload.ScanUUID, terminal)
	if err != nil {
		log.Errorf("[JobQueue] Failed to mark scan %s as failed: %v", payload.ScanUUID, err)
		return
	}
	if didWrite {
		if err := scanner.PublishTerminalEvent(payload.ScanUUID, models.ScanStatusFailed, 0); err != nil {
			log.Errorf("[JobQueue] Failed to publish failure event for scan %s: %v", payload.ScanUUID, err)
		}
	}
}

// analysisContent selects the content the analyzer scores for a scan kind.
func analysisContent(scan *models.Scan) string {
	switch scan.InputKind {
	case models.ScanInputAddress:
		return scan.ContractAddress
	default:
		return scan.SourceCode
	}
}
