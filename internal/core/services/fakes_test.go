package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mooringhub/internal/adapters/persistence/models"
	"mooringhub/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory fakes backing the service tests. They satisfy the repository and
// integration interfaces without a database; transactional semantics collapse
// to running the unit directly.

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func uintPtr(v uint) *uint { return &v }

func timePtr(t time.Time) *time.Time { return &t }

type fakeTxRunner struct{}

func (fakeTxRunner) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ------------------------------------------------------------------
// Payment gateway / notifier / identity directory
// ------------------------------------------------------------------

type fakeGateway struct {
	invoices   map[string][]LineItem
	statuses   map[string]string
	cancelled  []string
	failCreate bool
	counter    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		invoices: make(map[string][]LineItem),
		statuses: make(map[string]string),
	}
}

func (g *fakeGateway) CreateInvoice(ctx context.Context, lineItems []LineItem, payerID uint, dueDate time.Time) (string, error) {
	if g.failCreate {
		return "", errors.New("gateway unavailable")
	}
	g.counter++
	ref := fmt.Sprintf("INV-%03d", g.counter)
	g.invoices[ref] = lineItems
	g.statuses[ref] = "unpaid"
	return ref, nil
}

func (g *fakeGateway) GetPaymentStatus(ctx context.Context, invoiceReference string) (string, error) {
	status, ok := g.statuses[invoiceReference]
	if !ok {
		return "", errors.New("unknown invoice")
	}
	return status, nil
}

func (g *fakeGateway) CancelInvoice(ctx context.Context, invoiceReference string) error {
	g.cancelled = append(g.cancelled, invoiceReference)
	return nil
}

type fakeNotifier struct {
	sent []string
}

func (n *fakeNotifier) Notify(ctx context.Context, templateKey string, recipients []string, templateContext map[string]interface{}) error {
	n.sent = append(n.sent, templateKey)
	return nil
}

type fakeDirectory struct {
	members map[string]map[uint]bool
	users   map[uint]*models.User
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		members: make(map[string]map[uint]bool),
		users:   make(map[uint]*models.User),
	}
}

func (d *fakeDirectory) addMember(userID uint, groupName string) {
	if d.members[groupName] == nil {
		d.members[groupName] = make(map[uint]bool)
	}
	d.members[groupName][userID] = true
}

func (d *fakeDirectory) IsMember(ctx context.Context, userID uint, groupName string) (bool, error) {
	return d.members[groupName][userID], nil
}

func (d *fakeDirectory) ResolveUser(ctx context.Context, userID uint) (*models.User, error) {
	user, ok := d.users[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

// ------------------------------------------------------------------
// Fee repository
// ------------------------------------------------------------------

type fakeFeeRepo struct {
	constructors []*models.FeeConstructor
	seasons      map[uint]*models.FeeSeason
	groups       map[uint]*models.VesselSizeCategoryGroup
	items        []*models.FeeItem
	appFees      []*models.ApplicationFee
	links        []*models.FeeItemApplicationFee
	calcs        []*models.FeeCalculation
	paidLinks    map[uint][]*models.FeeItemApplicationFee
	expired      []*models.ApplicationFee
	funded       bool
	nextID       uint
}

func newFakeFeeRepo() *fakeFeeRepo {
	return &fakeFeeRepo{
		seasons:   make(map[uint]*models.FeeSeason),
		groups:    make(map[uint]*models.VesselSizeCategoryGroup),
		paidLinks: make(map[uint][]*models.FeeItemApplicationFee),
	}
}

func (r *fakeFeeRepo) id() uint {
	r.nextID++
	return r.nextID
}

func (r *fakeFeeRepo) ListEnabledConstructors(ctx context.Context, appType domain.ApplicationType) ([]*models.FeeConstructor, error) {
	var out []*models.FeeConstructor
	for _, fc := range r.constructors {
		if fc.Enabled && fc.ApplicationTypeCode == appType {
			out = append(out, fc)
		}
	}
	return out, nil
}

func (r *fakeFeeRepo) GetConstructorByID(ctx context.Context, id uint) (*models.FeeConstructor, error) {
	for _, fc := range r.constructors {
		if fc.ID == id {
			// Attach relations the way the gorm repository preloads them.
			if fc.FeeSeason == nil {
				fc.FeeSeason = r.seasons[fc.FeeSeasonID]
			}
			if fc.Group == nil {
				fc.Group = r.groups[fc.VesselSizeCategoryGroupID]
			}
			return fc, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeFeeRepo) GetConstructorBySeason(ctx context.Context, appType domain.ApplicationType, seasonID uint) (*models.FeeConstructor, error) {
	for _, fc := range r.constructors {
		if fc.ApplicationTypeCode == appType && fc.FeeSeasonID == seasonID {
			return fc, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeFeeRepo) CountEnabledForSeason(ctx context.Context, appType domain.ApplicationType, seasonID uint, excludeID uint) (int64, error) {
	var count int64
	for _, fc := range r.constructors {
		if fc.Enabled && fc.ApplicationTypeCode == appType && fc.FeeSeasonID == seasonID && fc.ID != excludeID {
			count++
		}
	}
	return count, nil
}

func (r *fakeFeeRepo) SaveConstructor(ctx context.Context, fc *models.FeeConstructor) error {
	if fc.ID == 0 {
		fc.ID = r.id()
		r.constructors = append(r.constructors, fc)
	}
	return nil
}

func sameDiscriminators(a, b *models.FeeItem) bool {
	switch {
	case a.ProposalTypeCode == nil && b.ProposalTypeCode != nil,
		a.ProposalTypeCode != nil && b.ProposalTypeCode == nil:
		return false
	case a.ProposalTypeCode != nil && *a.ProposalTypeCode != *b.ProposalTypeCode:
		return false
	}
	switch {
	case a.AgeGroupID == nil && b.AgeGroupID != nil, a.AgeGroupID != nil && b.AgeGroupID == nil:
		return false
	case a.AgeGroupID != nil && *a.AgeGroupID != *b.AgeGroupID:
		return false
	}
	switch {
	case a.AdmissionTypeID == nil && b.AdmissionTypeID != nil, a.AdmissionTypeID != nil && b.AdmissionTypeID == nil:
		return false
	case a.AdmissionTypeID != nil && *a.AdmissionTypeID != *b.AdmissionTypeID:
		return false
	}
	return true
}

func (r *fakeFeeRepo) GetOrCreateFeeItem(ctx context.Context, item *models.FeeItem) (*models.FeeItem, bool, error) {
	for _, existing := range r.items {
		if existing.FeeConstructorID == item.FeeConstructorID &&
			existing.FeePeriodID == item.FeePeriodID &&
			existing.VesselSizeCategoryID == item.VesselSizeCategoryID &&
			sameDiscriminators(existing, item) {
			return existing, false, nil
		}
	}
	item.ID = r.id()
	r.items = append(r.items, item)
	return item, true, nil
}

func (r *fakeFeeRepo) GetFeeItemByID(ctx context.Context, id uint) (*models.FeeItem, error) {
	for _, item := range r.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeFeeRepo) UpdateFeeItem(ctx context.Context, item *models.FeeItem) error {
	return nil
}

func (r *fakeFeeRepo) DeleteFeeItemsExcept(ctx context.Context, constructorID uint, keepIDs []uint) error {
	keep := make(map[uint]bool, len(keepIDs))
	for _, id := range keepIDs {
		keep[id] = true
	}
	var out []*models.FeeItem
	for _, item := range r.items {
		if item.FeeConstructorID == constructorID && !keep[item.ID] {
			continue
		}
		out = append(out, item)
	}
	r.items = out
	return nil
}

func (r *fakeFeeRepo) HasFundedPayments(ctx context.Context, constructorID uint) (bool, error) {
	return r.funded, nil
}

func (r *fakeFeeRepo) CreateApplicationFee(ctx context.Context, fee *models.ApplicationFee) error {
	fee.ID = r.id()
	r.appFees = append(r.appFees, fee)
	return nil
}

func (r *fakeFeeRepo) UpdateApplicationFee(ctx context.Context, fee *models.ApplicationFee) error {
	return nil
}

func (r *fakeFeeRepo) GetApplicationFeeByInvoice(ctx context.Context, invoiceReference string) (*models.ApplicationFee, error) {
	for _, fee := range r.appFees {
		if fee.InvoiceReference == invoiceReference {
			return fee, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeFeeRepo) GetActiveApplicationFee(ctx context.Context, proposalID uint) (*models.ApplicationFee, error) {
	for _, fee := range r.appFees {
		if fee.ProposalID == proposalID && !fee.IsCancelled() {
			return fee, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeFeeRepo) ListApplicationFees(ctx context.Context, proposalID uint) ([]*models.ApplicationFee, error) {
	var out []*models.ApplicationFee
	for _, fee := range r.appFees {
		if fee.ProposalID == proposalID {
			out = append(out, fee)
		}
	}
	return out, nil
}

func (r *fakeFeeRepo) CreateFeeItemApplicationFee(ctx context.Context, link *models.FeeItemApplicationFee) error {
	link.ID = r.id()
	r.links = append(r.links, link)
	for _, fee := range r.appFees {
		if fee.ID == link.ApplicationFeeID {
			fee.FeeItems = append(fee.FeeItems, *link)
		}
	}
	return nil
}

func (r *fakeFeeRepo) UpdateFeeItemApplicationFee(ctx context.Context, link *models.FeeItemApplicationFee) error {
	return nil
}

func (r *fakeFeeRepo) ListPaidFeeItemLinks(ctx context.Context, proposalID uint) ([]*models.FeeItemApplicationFee, error) {
	return r.paidLinks[proposalID], nil
}

func (r *fakeFeeRepo) CreateFeeCalculation(ctx context.Context, calc *models.FeeCalculation) error {
	r.calcs = append(r.calcs, calc)
	return nil
}

func (r *fakeFeeRepo) ListExpiredUnpaidFees(ctx context.Context, olderThan time.Time) ([]*models.ApplicationFee, error) {
	return r.expired, nil
}

// ------------------------------------------------------------------
// Proposal repository
// ------------------------------------------------------------------

type fakeProposalRepo struct {
	proposals      map[uint]*models.Proposal
	requirements   []*models.ProposalRequirement
	vesselDetails  map[uint]*models.VesselDetails
	activeByVessel []*models.Proposal
	nextID         uint
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{
		proposals:     make(map[uint]*models.Proposal),
		vesselDetails: make(map[uint]*models.VesselDetails),
	}
}

func (r *fakeProposalRepo) Create(ctx context.Context, proposal *models.Proposal) error {
	r.nextID++
	proposal.ID = r.nextID
	r.proposals[proposal.ID] = proposal
	return nil
}

func (r *fakeProposalRepo) GetByID(ctx context.Context, id uint) (*models.Proposal, error) {
	proposal, ok := r.proposals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return proposal, nil
}

func (r *fakeProposalRepo) Update(ctx context.Context, proposal *models.Proposal) error {
	r.proposals[proposal.ID] = proposal
	return nil
}

func (r *fakeProposalRepo) List(ctx context.Context, offset, limit int) ([]*models.Proposal, int64, error) {
	var out []*models.Proposal
	for _, p := range r.proposals {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *fakeProposalRepo) ListBySubmitter(ctx context.Context, submitterID uint, offset, limit int) ([]*models.Proposal, int64, error) {
	var out []*models.Proposal
	for _, p := range r.proposals {
		if p.SubmitterID == submitterID {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeProposalRepo) ListByStatus(ctx context.Context, status domain.ProcessingStatus, offset, limit int) ([]*models.Proposal, int64, error) {
	var out []*models.Proposal
	for _, p := range r.proposals {
		if p.ProcessingStatus == status {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeProposalRepo) ListActiveByVessel(ctx context.Context, kind domain.ApplicationType, vesselID uint, excludeProposalID uint) ([]*models.Proposal, error) {
	return r.activeByVessel, nil
}

func (r *fakeProposalRepo) CreateRequirement(ctx context.Context, req *models.ProposalRequirement) error {
	r.nextID++
	req.ID = r.nextID
	r.requirements = append(r.requirements, req)
	return nil
}

func (r *fakeProposalRepo) ListRequirements(ctx context.Context, proposalID uint) ([]*models.ProposalRequirement, error) {
	var out []*models.ProposalRequirement
	for _, req := range r.requirements {
		if req.ProposalID == proposalID && !req.IsDeleted {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *fakeProposalRepo) GetVesselDetails(ctx context.Context, id uint) (*models.VesselDetails, error) {
	vd, ok := r.vesselDetails[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return vd, nil
}

// ------------------------------------------------------------------
// Approval repository
// ------------------------------------------------------------------

type fakeApprovalRepo struct {
	approvals       map[uint]*models.Approval
	histories       []*models.ApprovalHistory
	mooringLinks    []*models.MooringOnApproval
	ownershipLinks  []*models.VesselOwnershipOnApproval
	moorings        map[uint]*models.Mooring
	currentByVessel []*models.Approval
	expiringSoon    []*models.Approval
	nextID          uint
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{
		approvals: make(map[uint]*models.Approval),
		moorings:  make(map[uint]*models.Mooring),
	}
}

func (r *fakeApprovalRepo) Create(ctx context.Context, approval *models.Approval) error {
	r.nextID++
	approval.ID = r.nextID
	r.approvals[approval.ID] = approval
	return nil
}

func (r *fakeApprovalRepo) GetByID(ctx context.Context, id uint) (*models.Approval, error) {
	approval, ok := r.approvals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return approval, nil
}

func (r *fakeApprovalRepo) Update(ctx context.Context, approval *models.Approval) error {
	r.approvals[approval.ID] = approval
	return nil
}

func (r *fakeApprovalRepo) ListCurrentByVessel(ctx context.Context, vesselID uint, on time.Time) ([]*models.Approval, error) {
	return r.currentByVessel, nil
}

func (r *fakeApprovalRepo) ListWaitingListAllocations(ctx context.Context) ([]*models.Approval, error) {
	var out []*models.Approval
	for _, a := range r.approvals {
		if a.Kind == domain.ApplicationTypeWaitingList && a.InternalStatus != nil && *a.InternalStatus == "waiting" {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeApprovalRepo) ListExpiringSoon(ctx context.Context, before time.Time) ([]*models.Approval, error) {
	return r.expiringSoon, nil
}

func (r *fakeApprovalRepo) ListForVesselNominationCheck(ctx context.Context) ([]*models.Approval, error) {
	return nil, nil
}

func (r *fakeApprovalRepo) CreateHistory(ctx context.Context, history *models.ApprovalHistory) error {
	r.histories = append(r.histories, history)
	return nil
}

func (r *fakeApprovalRepo) CreateMooringLink(ctx context.Context, link *models.MooringOnApproval) error {
	r.mooringLinks = append(r.mooringLinks, link)
	return nil
}

func (r *fakeApprovalRepo) UpdateMooringLink(ctx context.Context, link *models.MooringOnApproval) error {
	return nil
}

func (r *fakeApprovalRepo) CreateVesselOwnershipLink(ctx context.Context, link *models.VesselOwnershipOnApproval) error {
	r.ownershipLinks = append(r.ownershipLinks, link)
	return nil
}

func (r *fakeApprovalRepo) UpdateVesselOwnershipLink(ctx context.Context, link *models.VesselOwnershipOnApproval) error {
	return nil
}

func (r *fakeApprovalRepo) GetMooring(ctx context.Context, id uint) (*models.Mooring, error) {
	mooring, ok := r.moorings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return mooring, nil
}

// ------------------------------------------------------------------
// Sticker repository
// ------------------------------------------------------------------

type fakeStickerRepo struct {
	stickers []*models.Sticker
	nextID   uint
}

func (r *fakeStickerRepo) Create(ctx context.Context, sticker *models.Sticker) error {
	r.nextID++
	sticker.ID = r.nextID
	r.stickers = append(r.stickers, sticker)
	return nil
}

func (r *fakeStickerRepo) GetByID(ctx context.Context, id uint) (*models.Sticker, error) {
	for _, s := range r.stickers {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeStickerRepo) Update(ctx context.Context, sticker *models.Sticker) error {
	return nil
}

func (r *fakeStickerRepo) ListByApproval(ctx context.Context, approvalID uint) ([]*models.Sticker, error) {
	var out []*models.Sticker
	for _, s := range r.stickers {
		if s.ApprovalID == approvalID {
			out = append(out, s)
		}
	}
	return out, nil
}

// ------------------------------------------------------------------
// Compliance repository
// ------------------------------------------------------------------

type fakeComplianceRepo struct {
	compliances []*models.Compliance
	nextID      uint
}

func (r *fakeComplianceRepo) GetOrCreate(ctx context.Context, compliance *models.Compliance) (*models.Compliance, bool, error) {
	for _, existing := range r.compliances {
		if existing.ApprovalID == compliance.ApprovalID &&
			existing.RequirementID == compliance.RequirementID &&
			existing.DueDate.Equal(compliance.DueDate) {
			return existing, false, nil
		}
	}
	r.nextID++
	compliance.ID = r.nextID
	r.compliances = append(r.compliances, compliance)
	return compliance, true, nil
}

func (r *fakeComplianceRepo) GetByID(ctx context.Context, id uint) (*models.Compliance, error) {
	for _, c := range r.compliances {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeComplianceRepo) Update(ctx context.Context, compliance *models.Compliance) error {
	return nil
}

func (r *fakeComplianceRepo) ListByApproval(ctx context.Context, approvalID uint) ([]*models.Compliance, error) {
	var out []*models.Compliance
	for _, c := range r.compliances {
		if c.ApprovalID == approvalID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeComplianceRepo) ListFutureByApprovalAndProposal(ctx context.Context, approvalID, proposalID uint) ([]*models.Compliance, error) {
	var out []*models.Compliance
	for _, c := range r.compliances {
		if c.ApprovalID == approvalID && c.ProposalID == proposalID &&
			c.ProcessingStatus == models.ComplianceStatusFuture {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeComplianceRepo) Delete(ctx context.Context, id uint) error {
	var out []*models.Compliance
	for _, c := range r.compliances {
		if c.ID != id {
			out = append(out, c)
		}
	}
	r.compliances = out
	return nil
}

func (r *fakeComplianceRepo) ListDueForStatusUpdate(ctx context.Context) ([]*models.Compliance, error) {
	var out []*models.Compliance
	for _, c := range r.compliances {
		switch c.ProcessingStatus {
		case models.ComplianceStatusFuture, models.ComplianceStatusDue:
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeComplianceRepo) List(ctx context.Context, status string, offset, limit int) ([]*models.Compliance, int64, error) {
	var out []*models.Compliance
	for _, c := range r.compliances {
		if status == "" || c.ProcessingStatus == status {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}
