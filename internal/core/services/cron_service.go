package services

import (
	"context"
	"log"
	"time"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/adapters/persistence/repositories"
	"mooringhub/internal/core/domain"

	"github.com/robfig/cron/v3"
)

// CronService owns the scheduled background jobs: compliance status sweeps,
// unpaid application expiry, renewal notices, the vessel nomination grace
// period and refresh token cleanup.
type CronService struct {
	cron              *cron.Cron
	approvalRepo      repositories.ApprovalRepository
	tokenRepo         repositories.RefreshTokenRepository
	proposalService   *ProposalService
	complianceService *ComplianceService
	notifier          Notifier

	renewalNoticeWindow time.Duration
	nominationGrace     time.Duration
}

// NewCronService creates the scheduler with all jobs registered.
func NewCronService(
	approvalRepo repositories.ApprovalRepository,
	tokenRepo repositories.RefreshTokenRepository,
	proposalService *ProposalService,
	complianceService *ComplianceService,
	notifier Notifier,
	renewalNoticeWindow time.Duration,
	nominationGrace time.Duration,
) *CronService {
	s := &CronService{
		cron:                cron.New(),
		approvalRepo:        approvalRepo,
		tokenRepo:           tokenRepo,
		proposalService:     proposalService,
		complianceService:   complianceService,
		notifier:            notifier,
		renewalNoticeWindow: renewalNoticeWindow,
		nominationGrace:     nominationGrace,
	}

	s.cron.AddFunc("0 2 * * *", s.runComplianceSweep)
	s.cron.AddFunc("30 2 * * *", s.runUnpaidExpiry)
	s.cron.AddFunc("0 3 * * *", s.runRenewalNotices)
	s.cron.AddFunc("30 3 * * *", s.runVesselNominationCheck)
	s.cron.AddFunc("0 4 * * *", s.runTokenCleanup)

	return s
}

// Start launches the scheduler.
func (s *CronService) Start() {
	s.cron.Start()
	log.Println("🚀 CronService started")
}

// Stop stops the scheduler, waiting for running jobs to finish.
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 CronService stopped")
}

func (s *CronService) runComplianceSweep() {
	s.complianceService.UpdateStatuses(context.Background(), time.Now())
}

func (s *CronService) runUnpaidExpiry() {
	s.proposalService.ExpireUnpaid(context.Background(), time.Now())
}

// runRenewalNotices tells holders of expiring approvals to renew, once per
// approval. The flag is reset whenever the approval is renewed or amended.
func (s *CronService) runRenewalNotices() {
	ctx := context.Background()
	now := time.Now()

	approvals, err := s.approvalRepo.ListExpiringSoon(ctx, now.Add(s.renewalNoticeWindow))
	if err != nil {
		log.Printf("❌ renewal notice sweep failed to list: %v", err)
		return
	}

	sent := 0
	for _, approval := range approvals {
		if approval.Submitter == nil {
			continue
		}
		err := s.notifier.Notify(ctx, "approval_renewal_notice",
			[]string{approval.Submitter.Email},
			map[string]interface{}{
				"lodgement_number": approval.LodgementNumber,
				"expiry_date":      approval.ExpiryDate.Format("02/01/2006"),
			})
		if err != nil {
			log.Printf("⚠️ failed to send renewal notice for %s: %v", approval.LodgementNumber, err)
			continue
		}
		approval.RenewalSent = true
		if err := s.approvalRepo.Update(ctx, approval); err != nil {
			log.Printf("❌ failed to mark renewal notice sent for %s: %v", approval.LodgementNumber, err)
			continue
		}
		sent++
	}
	if sent > 0 {
		log.Printf("📅 sent %d renewal notices", sent)
	}
}

// runVesselNominationCheck enforces the grace period after a holder's vessel
// ownership ends: a reminder halfway through the grace period, cancellation
// once it lapses.
func (s *CronService) runVesselNominationCheck() {
	ctx := context.Background()
	now := time.Now()

	approvals, err := s.approvalRepo.ListForVesselNominationCheck(ctx)
	if err != nil {
		log.Printf("❌ vessel nomination sweep failed to list: %v", err)
		return
	}

	for _, approval := range approvals {
		if approval.CurrentProposal == nil || approval.CurrentProposal.VesselOwnership == nil {
			continue
		}
		endDate := approval.CurrentProposal.VesselOwnership.EndDate
		if endDate == nil {
			continue
		}

		graceEnd := endDate.Add(s.nominationGrace)
		reminderAt := endDate.Add(s.nominationGrace / 2)

		switch {
		case now.After(graceEnd):
			approval.Status = domain.ApprovalCancelled
			if err := s.approvalRepo.Update(ctx, approval); err != nil {
				log.Printf("❌ failed to cancel approval %s: %v", approval.LodgementNumber, err)
				continue
			}
			s.notifyHolder(ctx, approval.Submitter, "vessel_nomination_lapsed", approval.LodgementNumber)
			log.Printf("🗑️ approval %s cancelled, no vessel nominated within the grace period", approval.LodgementNumber)

		case now.After(reminderAt) && !approval.VesselNominationReminderSent:
			s.notifyHolder(ctx, approval.Submitter, "vessel_nomination_reminder", approval.LodgementNumber)
			approval.VesselNominationReminderSent = true
			if err := s.approvalRepo.Update(ctx, approval); err != nil {
				log.Printf("❌ failed to mark nomination reminder sent for %s: %v", approval.LodgementNumber, err)
			}
		}
	}
}

func (s *CronService) notifyHolder(ctx context.Context, holder *models.User, templateKey, lodgementNumber string) {
	if holder == nil {
		return
	}
	err := s.notifier.Notify(ctx, templateKey, []string{holder.Email}, map[string]interface{}{
		"lodgement_number": lodgementNumber,
	})
	if err != nil {
		log.Printf("⚠️ failed to send %s for %s: %v", templateKey, lodgementNumber, err)
	}
}

func (s *CronService) runTokenCleanup() {
	if err := s.tokenRepo.DeleteExpired(context.Background()); err != nil {
		log.Printf("❌ refresh token cleanup failed: %v", err)
	}
}
