package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/adapters/persistence/repositories"
	"mooringhub/internal/core/domain"

	"github.com/shopspring/decimal"
)

// FeeAllocation records which fee item a charged amount will fund, per
// vessel, so the payment can be linked back once the invoice is paid.
type FeeAllocation struct {
	FeeItem         *models.FeeItem
	VesselDetailsID *uint
	Amount          decimal.Decimal
}

// FeeQuote is the priced outcome for one proposal: the gateway line items
// plus the fee item allocations behind them.
type FeeQuote struct {
	LineItems   []LineItem
	Allocations []FeeAllocation
	TargetDate  time.Time
}

// TotalDue sums the tax-inclusive line amounts.
func (q *FeeQuote) TotalDue() decimal.Decimal {
	return Total(q.LineItems)
}

// PricingService computes the amount payable for a proposal: fee item lookup
// combined with credit for amounts already paid across the application chain.
type PricingService struct {
	feeService   *FeeService
	feeRepo      repositories.FeeRepository
	proposalRepo repositories.ProposalRepository
	approvalRepo repositories.ApprovalRepository
	gstRate      decimal.Decimal
}

// NewPricingService creates a new pricing service
func NewPricingService(
	feeService *FeeService,
	feeRepo repositories.FeeRepository,
	proposalRepo repositories.ProposalRepository,
	approvalRepo repositories.ApprovalRepository,
	gstRate decimal.Decimal,
) *PricingService {
	return &PricingService{
		feeService:   feeService,
		feeRepo:      feeRepo,
		proposalRepo: proposalRepo,
		approvalRepo: approvalRepo,
		gstRate:      gstRate,
	}
}

// TargetDate returns the date fees are calculated against. Renewals lodged
// before the approval expires are priced into the next season; everything
// else is priced at the current date.
func (s *PricingService) TargetDate(proposal *models.Proposal, currentDate time.Time) time.Time {
	if proposal.ProposalTypeCode == domain.ProposalTypeRenewal &&
		proposal.Approval != nil && proposal.Approval.ExpiryDate != nil &&
		!currentDate.After(*proposal.Approval.ExpiryDate) {
		return proposal.Approval.ExpiryDate.AddDate(0, 0, 1)
	}
	return currentDate
}

// FeeLines builds the charge lines for a proposal, dispatched on its kind.
func (s *PricingService) FeeLines(ctx context.Context, proposal *models.Proposal, now time.Time) (*FeeQuote, error) {
	targetDate := s.TargetDate(proposal, now)
	log.Printf("creating fee lines for proposal %s, target date %s", proposal.LodgementNumber, targetDate.Format("2006-01-02"))

	switch proposal.Kind {
	case domain.ApplicationTypeWaitingList, domain.ApplicationTypeAnnualAdmission:
		return s.singleComponentLines(ctx, proposal, targetDate, now)
	case domain.ApplicationTypeAuthorisedUser:
		return s.authorisedUserLines(ctx, proposal, targetDate, now)
	case domain.ApplicationTypeMooringLicence:
		return s.mooringLicenceLines(ctx, proposal, targetDate, now)
	}
	return nil, domain.ErrInvalidInput
}

// singleComponentLines prices waiting-list and annual-admission applications:
// one main component, no annual-admission add-on.
func (s *PricingService) singleComponentLines(ctx context.Context, proposal *models.Proposal, targetDate, now time.Time) (*FeeQuote, error) {
	fc, err := s.feeService.ResolveConstructor(ctx, proposal.Kind, targetDate)
	if err != nil {
		return nil, err
	}

	quote := &FeeQuote{TargetDate: targetDate}
	if err := s.appendComponent(ctx, quote, proposal, fc, proposal.Kind, proposal.VesselLength(), proposal.VesselDetailsID, targetDate, now); err != nil {
		return nil, err
	}
	return quote, nil
}

// authorisedUserLines prices authorised-user applications: a main component
// plus an annual-admission component when the vessel is not already covered.
// A vessel held under a current mooring licence is not charged at all.
func (s *PricingService) authorisedUserLines(ctx context.Context, proposal *models.Proposal, targetDate, now time.Time) (*FeeQuote, error) {
	quote := &FeeQuote{TargetDate: targetDate}

	coveredByAA, coveredByML, err := s.vesselCoverage(ctx, proposal, targetDate)
	if err != nil {
		return nil, err
	}
	if coveredByML {
		// A current mooring licence already admits this vessel.
		log.Printf("vessel on proposal %s is covered by a current mooring licence, no charge", proposal.LodgementNumber)
		return quote, nil
	}

	fc, err := s.feeService.ResolveConstructor(ctx, proposal.Kind, targetDate)
	if err != nil {
		return nil, err
	}
	if err := s.appendComponent(ctx, quote, proposal, fc, proposal.Kind, proposal.VesselLength(), proposal.VesselDetailsID, targetDate, now); err != nil {
		return nil, err
	}

	if !coveredByAA {
		fcAA, err := s.feeService.ResolveConstructor(ctx, domain.ApplicationTypeAnnualAdmission, targetDate)
		if err != nil {
			return nil, err
		}
		if err := s.appendComponent(ctx, quote, proposal, fcAA, domain.ApplicationTypeAnnualAdmission, proposal.VesselLength(), proposal.VesselDetailsID, targetDate, now); err != nil {
			return nil, err
		}
	}
	return quote, nil
}

// mooringLicenceLines prices mooring-licence applications. Renewals charge
// the main component once against the largest listed vessel and one
// annual-admission component per vessel; other proposal types charge the
// nominated vessel.
func (s *PricingService) mooringLicenceLines(ctx context.Context, proposal *models.Proposal, targetDate, now time.Time) (*FeeQuote, error) {
	fc, err := s.feeService.ResolveConstructor(ctx, proposal.Kind, targetDate)
	if err != nil {
		return nil, err
	}
	fcAA, err := s.feeService.ResolveConstructor(ctx, domain.ApplicationTypeAnnualAdmission, targetDate)
	if err != nil {
		return nil, err
	}

	quote := &FeeQuote{TargetDate: targetDate}

	if proposal.ProposalTypeCode == domain.ProposalTypeRenewal && len(proposal.ListedVessels) > 0 {
		if err := s.appendComponent(ctx, quote, proposal, fc, proposal.Kind, proposal.LargestVesselLength(), proposal.VesselDetailsID, targetDate, now); err != nil {
			return nil, err
		}
		for i := range proposal.ListedVessels {
			vd := &proposal.ListedVessels[i]
			if err := s.appendComponent(ctx, quote, proposal, fcAA, domain.ApplicationTypeAnnualAdmission, vd.ApplicableLength, &vd.ID, targetDate, now); err != nil {
				return nil, err
			}
		}
		return quote, nil
	}

	if err := s.appendComponent(ctx, quote, proposal, fc, proposal.Kind, proposal.VesselLength(), proposal.VesselDetailsID, targetDate, now); err != nil {
		return nil, err
	}
	coveredByAA, _, err := s.vesselCoverage(ctx, proposal, targetDate)
	if err != nil {
		return nil, err
	}
	if !coveredByAA {
		if err := s.appendComponent(ctx, quote, proposal, fcAA, domain.ApplicationTypeAnnualAdmission, proposal.VesselLength(), proposal.VesselDetailsID, targetDate, now); err != nil {
			return nil, err
		}
	}
	return quote, nil
}

// appendComponent prices one component (main or annual-admission) and
// appends its line item and allocation to the quote.
func (s *PricingService) appendComponent(
	ctx context.Context,
	quote *FeeQuote,
	proposal *models.Proposal,
	fc *models.FeeConstructor,
	componentType domain.ApplicationType,
	vesselLength decimal.Decimal,
	vesselDetailsID *uint,
	targetDate, now time.Time,
) error {
	acceptNullVessel := vesselDetailsID == nil
	if acceptNullVessel && !proposal.AcceptsNullVessel() {
		return domain.ErrMissingFeeItem
	}

	feeItem, err := fc.GetFeeItem(vesselLength, proposal.ProposalTypeCode, targetDate, acceptNullVessel)
	if err != nil {
		return err
	}

	var amount decimal.Decimal
	if feeItem == nil {
		if !acceptNullVessel {
			return domain.ErrMissingFeeItem
		}
		// No vessel nominated yet: nothing is charged until a replacement
		// vessel is provided.
		amount = decimal.Zero
	} else {
		maxPaid, err := s.MaxAmountPaid(ctx, proposal, componentType, targetDate, vesselDetailsID)
		if err != nil {
			return err
		}
		amount = AmountDue(feeItem, vesselLength, maxPaid, proposal.ProposalTypeCode)
	}

	quote.LineItems = append(quote.LineItems, s.buildLineItem(proposal, fc, componentType, amount, now))
	if feeItem != nil {
		quote.Allocations = append(quote.Allocations, FeeAllocation{
			FeeItem:         feeItem,
			VesselDetailsID: vesselDetailsID,
			Amount:          amount,
		})
	}
	return nil
}

// AmountDue combines the absolute fee with the credit for amounts already
// paid. New and renewal proposals start a fresh season and get no credit;
// the result is never negative.
func AmountDue(feeItem *models.FeeItem, vesselLength decimal.Decimal, maxAmountPaid decimal.Decimal, proposalType domain.ProposalType) decimal.Decimal {
	amount := feeItem.GetAbsoluteAmount(vesselLength)
	if proposalType.ResetsEntitlement() {
		return amount
	}
	amount = amount.Sub(maxAmountPaid)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// MaxAmountPaid walks the chain of previous applications back to the season
// anchor (the nearest new/renewal ancestor) and returns the largest amount
// already paid for the component being priced. For the annual-admission
// component it also considers other current approvals covering the same
// vessel, so a vessel is never charged admission twice in one season.
// A deduction is counted once: sources are reconciled by taking the maximum,
// never summed.
func (s *PricingService) MaxAmountPaid(ctx context.Context, proposal *models.Proposal, componentType domain.ApplicationType, targetDate time.Time, vesselDetailsID *uint) (decimal.Decimal, error) {
	if proposal.ProposalTypeCode.ResetsEntitlement() {
		return decimal.Zero, nil
	}

	maxPaid := decimal.Zero
	forAAComponent := componentType == domain.ApplicationTypeAnnualAdmission

	var vesselID uint
	if vesselDetailsID != nil {
		vd, err := s.proposalRepo.GetVesselDetails(ctx, *vesselDetailsID)
		if err == nil && vd != nil {
			vesselID = vd.VesselID
		}
	}

	// Backward walk with a visited set: a revisited id means corrupt chain
	// data, terminate rather than loop.
	visited := map[uint]bool{proposal.ID: true}
	cursor := proposal
	for {
		links, err := s.feeRepo.ListPaidFeeItemLinks(ctx, cursor.ID)
		if err != nil {
			return decimal.Zero, err
		}
		for _, link := range links {
			if link.AmountPaid == nil || link.FeeItem == nil {
				continue
			}
			if !s.linkMatchesComponent(link, componentType, forAAComponent, vesselID) {
				continue
			}
			if link.AmountPaid.GreaterThan(maxPaid) {
				maxPaid = *link.AmountPaid
			}
		}

		if cursor.ProposalTypeCode.ResetsEntitlement() {
			break // season anchor reached
		}
		if cursor.PreviousApplicationID == nil {
			break
		}
		if visited[*cursor.PreviousApplicationID] {
			log.Printf("cycle detected in previous application chain at proposal %d", *cursor.PreviousApplicationID)
			break
		}
		visited[*cursor.PreviousApplicationID] = true
		prev, err := s.proposalRepo.GetByID(ctx, *cursor.PreviousApplicationID)
		if err != nil {
			break
		}
		cursor = prev
	}

	if forAAComponent && vesselID != 0 {
		crossPaid, err := s.maxPaidAcrossApprovals(ctx, proposal, vesselID, targetDate)
		if err != nil {
			return decimal.Zero, err
		}
		if crossPaid.GreaterThan(maxPaid) {
			maxPaid = crossPaid
		}
	}

	return maxPaid, nil
}

// maxPaidAcrossApprovals finds the largest annual-admission amount funded
// for the vessel under any other current approval.
func (s *PricingService) maxPaidAcrossApprovals(ctx context.Context, proposal *models.Proposal, vesselID uint, targetDate time.Time) (decimal.Decimal, error) {
	maxPaid := decimal.Zero
	approvals, err := s.approvalRepo.ListCurrentByVessel(ctx, vesselID, targetDate)
	if err != nil {
		return decimal.Zero, err
	}
	for _, approval := range approvals {
		if proposal.ApprovalID != nil && approval.ID == *proposal.ApprovalID {
			continue
		}
		if approval.CurrentProposalID == nil {
			continue
		}
		links, err := s.feeRepo.ListPaidFeeItemLinks(ctx, *approval.CurrentProposalID)
		if err != nil {
			return decimal.Zero, err
		}
		for _, link := range links {
			if link.AmountPaid == nil || link.FeeItem == nil {
				continue
			}
			if !s.linkMatchesComponent(link, domain.ApplicationTypeAnnualAdmission, true, vesselID) {
				continue
			}
			if link.AmountPaid.GreaterThan(maxPaid) {
				maxPaid = *link.AmountPaid
			}
		}
	}
	return maxPaid, nil
}

func (s *PricingService) linkMatchesComponent(link *models.FeeItemApplicationFee, componentType domain.ApplicationType, forAAComponent bool, vesselID uint) bool {
	fc := link.FeeItem.FeeConstructor
	if fc != nil && fc.ApplicationTypeCode != componentType {
		return false
	}
	if forAAComponent {
		// Annual-admission credit applies per vessel.
		if link.VesselDetails == nil || vesselID == 0 {
			return false
		}
		if link.VesselDetails.VesselID != vesselID {
			return false
		}
	}
	return true
}

// vesselCoverage reports whether the proposal's vessel is already admitted
// under another current approval (any kind) and specifically under a current
// mooring licence.
func (s *PricingService) vesselCoverage(ctx context.Context, proposal *models.Proposal, targetDate time.Time) (coveredByAA bool, coveredByML bool, err error) {
	if proposal.VesselDetails == nil {
		return false, false, nil
	}
	approvals, err := s.approvalRepo.ListCurrentByVessel(ctx, proposal.VesselDetails.VesselID, targetDate)
	if err != nil {
		return false, false, err
	}
	for _, approval := range approvals {
		if proposal.ApprovalID != nil && approval.ID == *proposal.ApprovalID {
			continue
		}
		coveredByAA = true
		if approval.Kind == domain.ApplicationTypeMooringLicence {
			coveredByML = true
		}
	}
	return coveredByAA, coveredByML, nil
}

func (s *PricingService) buildLineItem(proposal *models.Proposal, fc *models.FeeConstructor, componentType domain.ApplicationType, amount decimal.Decimal, now time.Time) LineItem {
	seasonRange := ""
	if fc.FeeSeason != nil {
		start := fc.FeeSeason.StartDate()
		end := fc.FeeSeason.EndDate()
		if start != nil && end != nil {
			seasonRange = fmt.Sprintf(" (Season: %s to %s)", start.Format("02/01/2006"), end.Format("02/01/2006"))
		}
	}
	description := fmt.Sprintf("%s Fee: %s%s @%s",
		componentDisplayName(componentType),
		proposal.LodgementNumber,
		seasonRange,
		now.Format("02/01/2006 15:04"),
	)

	inclTax := amount.Round(2)
	exclTax := inclTax
	if fc.IncurGST {
		exclTax = s.ExclGST(inclTax)
	}
	return LineItem{
		Description:    description,
		AccountingCode: fc.AccountingCode,
		PriceInclTax:   inclTax,
		PriceExclTax:   exclTax,
		Quantity:       1,
	}
}

// ExclGST strips GST from a tax-inclusive amount, rounding half-up to two
// places.
func (s *PricingService) ExclGST(inclTax decimal.Decimal) decimal.Decimal {
	divisor := decimal.NewFromInt(1).Add(s.gstRate)
	return inclTax.Div(divisor).Round(2)
}

func componentDisplayName(t domain.ApplicationType) string {
	switch t {
	case domain.ApplicationTypeWaitingList:
		return "Waiting List Application"
	case domain.ApplicationTypeAnnualAdmission:
		return "Annual Admission Permit"
	case domain.ApplicationTypeAuthorisedUser:
		return "Authorised User Permit"
	case domain.ApplicationTypeMooringLicence:
		return "Mooring Site Licence"
	case domain.ApplicationTypeDCVPermit:
		return "DCV Permit"
	case domain.ApplicationTypeDCVAdmission:
		return "DCV Admission"
	}
	return "Application"
}
