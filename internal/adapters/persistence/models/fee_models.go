package models

import (
	"sort"
	"time"

	"mooringhub/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FeeSeason is a named annual period for one application type. Its start and
// end dates are derived from its periods, never stored.
type FeeSeason struct {
	ID                  uint                   `gorm:"primaryKey" json:"id"`
	Name                string                 `gorm:"size:50;not null" json:"name"`
	ApplicationTypeCode domain.ApplicationType `gorm:"size:10;not null;index" json:"application_type_code"`
	CreatedAt           time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time              `gorm:"autoUpdateTime" json:"updated_at"`

	Periods []FeePeriod `gorm:"foreignKey:FeeSeasonID" json:"periods,omitempty"`
}

func (FeeSeason) TableName() string {
	return "fee_seasons"
}

// StartDate returns the start date of the earliest period, or nil when the
// season has no periods yet.
func (s *FeeSeason) StartDate() *time.Time {
	var start *time.Time
	for i := range s.Periods {
		d := s.Periods[i].StartDate
		if start == nil || d.Before(*start) {
			start = &d
		}
	}
	return start
}

// EndDate returns the derived end of the season: one year after the start,
// minus a day.
func (s *FeeSeason) EndDate() *time.Time {
	start := s.StartDate()
	if start == nil {
		return nil
	}
	end := start.AddDate(1, 0, -1)
	return &end
}

// FirstPeriod returns the earliest period of the season.
func (s *FeeSeason) FirstPeriod() *FeePeriod {
	var first *FeePeriod
	for i := range s.Periods {
		if first == nil || s.Periods[i].StartDate.Before(first.StartDate) {
			first = &s.Periods[i]
		}
	}
	return first
}

// PeriodFor returns the latest period whose start date is on or before
// targetDate, or nil when the date is before every period.
func (s *FeeSeason) PeriodFor(targetDate time.Time) *FeePeriod {
	var match *FeePeriod
	for i := range s.Periods {
		p := &s.Periods[i]
		if p.StartDate.After(targetDate) {
			continue
		}
		if match == nil || p.StartDate.After(match.StartDate) {
			match = p
		}
	}
	return match
}

// FeePeriod is a sub-period within a season, e.g. a mid-season rate change.
type FeePeriod struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FeeSeasonID uint      `gorm:"not null;index" json:"fee_season_id"`
	Name        string    `gorm:"size:50;not null" json:"name"`
	StartDate   time.Time `gorm:"type:date;not null" json:"start_date"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	FeeSeason *FeeSeason `gorm:"foreignKey:FeeSeasonID" json:"fee_season,omitempty"`
}

func (FeePeriod) TableName() string {
	return "fee_periods"
}

// VesselSizeCategoryGroup is an ordered set of vessel length bands.
type VesselSizeCategoryGroup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Categories []VesselSizeCategory `gorm:"foreignKey:GroupID" json:"categories,omitempty"`
}

func (VesselSizeCategoryGroup) TableName() string {
	return "vessel_size_category_groups"
}

// NullVesselCategory returns the group's single null-vessel sentinel category.
// Zero or more than one such category is a configuration error.
func (g *VesselSizeCategoryGroup) NullVesselCategory() (*VesselSizeCategory, error) {
	var found *VesselSizeCategory
	for i := range g.Categories {
		if !g.Categories[i].NullVessel {
			continue
		}
		if found != nil {
			return nil, domain.ErrNotConfigured
		}
		found = &g.Categories[i]
	}
	if found == nil {
		return nil, domain.ErrNotConfigured
	}
	return found, nil
}

// Classify selects the size category for a vessel length. The category with
// the greatest start size not exceeding the length wins; when the length sits
// exactly on a boundary that the category does not include, the boundary
// belongs to the next lower category.
func (g *VesselSizeCategoryGroup) Classify(vesselLength decimal.Decimal, acceptNullVessel bool) (*VesselSizeCategory, error) {
	if acceptNullVessel {
		return g.NullVesselCategory()
	}

	cats := make([]*VesselSizeCategory, 0, len(g.Categories))
	for i := range g.Categories {
		if !g.Categories[i].NullVessel {
			cats = append(cats, &g.Categories[i])
		}
	}
	sort.Slice(cats, func(i, j int) bool {
		return cats[i].StartSize.LessThan(cats[j].StartSize)
	})

	var match *VesselSizeCategory
	for idx, cat := range cats {
		if cat.StartSize.GreaterThan(vesselLength) {
			break
		}
		if cat.StartSize.Equal(vesselLength) && !cat.IncludeStartSize {
			// Exclusive boundary rounds down to the previous category.
			if idx == 0 {
				return nil, domain.ErrNoMatchingCategory
			}
			match = cats[idx-1]
			break
		}
		match = cats[idx]
	}
	if match == nil {
		return nil, domain.ErrNoMatchingCategory
	}
	return match, nil
}

// VesselSizeCategory is one length band within a group. A null-vessel category
// prices applications lodged without a vessel.
type VesselSizeCategory struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	GroupID          uint            `gorm:"not null;index" json:"group_id"`
	Name             string          `gorm:"size:100;not null" json:"name"`
	StartSize        decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"start_size"`
	IncludeStartSize bool            `gorm:"default:true" json:"include_start_size"`
	NullVessel       bool            `gorm:"default:false" json:"null_vessel"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`

	Group *VesselSizeCategoryGroup `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

func (VesselSizeCategory) TableName() string {
	return "vessel_size_categories"
}

// FeeConstructor joins an application type, a season and a size category
// group into one priced schedule. At most one enabled constructor may exist
// per (application type, season) pair.
type FeeConstructor struct {
	ID                        uint                   `gorm:"primaryKey" json:"id"`
	ApplicationTypeCode       domain.ApplicationType `gorm:"size:10;not null;index:idx_fc_type_season" json:"application_type_code"`
	FeeSeasonID               uint                   `gorm:"not null;index:idx_fc_type_season" json:"fee_season_id"`
	VesselSizeCategoryGroupID uint                   `gorm:"not null" json:"vessel_size_category_group_id"`
	Enabled                   bool                   `gorm:"default:true" json:"enabled"`
	IncurGST                  bool                   `gorm:"default:true" json:"incur_gst"`
	AccountingCode            string                 `gorm:"size:50" json:"accounting_code"`
	CreatedAt                 time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt                 gorm.DeletedAt         `gorm:"index" json:"-"`

	FeeSeason *FeeSeason               `gorm:"foreignKey:FeeSeasonID" json:"fee_season,omitempty"`
	Group     *VesselSizeCategoryGroup `gorm:"foreignKey:VesselSizeCategoryGroupID" json:"group,omitempty"`
	FeeItems  []FeeItem                `gorm:"foreignKey:FeeConstructorID" json:"fee_items,omitempty"`
}

func (FeeConstructor) TableName() string {
	return "fee_constructors"
}

// FeeItemKey identifies one priced row within a constructor.
type FeeItemKey struct {
	FeePeriodID          uint
	VesselSizeCategoryID uint
	ProposalTypeCode     domain.ProposalType
	AgeGroupID           uint
	AdmissionTypeID      uint
}

// GetFeeItem returns the priced row for the given vessel length, proposal
// type and date, or nil when no such row has been configured. Absence is an
// expected administrative state, not an error.
func (fc *FeeConstructor) GetFeeItem(vesselLength decimal.Decimal, proposalType domain.ProposalType, targetDate time.Time, acceptNullVessel bool) (*FeeItem, error) {
	if fc.FeeSeason == nil || fc.Group == nil {
		return nil, domain.ErrNotConfigured
	}
	period := fc.FeeSeason.PeriodFor(targetDate)
	if period == nil {
		return nil, domain.ErrNotConfigured
	}
	category, err := fc.Group.Classify(vesselLength, acceptNullVessel)
	if err != nil {
		return nil, err
	}
	return fc.findFeeItem(FeeItemKey{
		FeePeriodID:          period.ID,
		VesselSizeCategoryID: category.ID,
		ProposalTypeCode:     proposalType,
	}), nil
}

// GetAdmissionFeeItem returns the priced row for a DCV admission, keyed by
// age group and admission type instead of proposal type.
func (fc *FeeConstructor) GetAdmissionFeeItem(targetDate time.Time, ageGroupID, admissionTypeID uint) (*FeeItem, error) {
	if fc.FeeSeason == nil {
		return nil, domain.ErrNotConfigured
	}
	period := fc.FeeSeason.PeriodFor(targetDate)
	if period == nil {
		return nil, domain.ErrNotConfigured
	}
	for i := range fc.FeeItems {
		item := &fc.FeeItems[i]
		if item.FeePeriodID == period.ID && item.AgeGroupID != nil && *item.AgeGroupID == ageGroupID &&
			item.AdmissionTypeID != nil && *item.AdmissionTypeID == admissionTypeID {
			return item, nil
		}
	}
	return nil, nil
}

func (fc *FeeConstructor) findFeeItem(key FeeItemKey) *FeeItem {
	for i := range fc.FeeItems {
		item := &fc.FeeItems[i]
		if item.FeePeriodID != key.FeePeriodID || item.VesselSizeCategoryID != key.VesselSizeCategoryID {
			continue
		}
		if item.ProposalTypeCode == nil {
			if key.ProposalTypeCode == "" {
				return item
			}
			continue
		}
		if *item.ProposalTypeCode == key.ProposalTypeCode {
			return item
		}
	}
	return nil
}

// FeeItem is one priced row: (constructor, period, size category,
// discriminator) -> amount. When Incremental, Amount is a per-metre rate.
type FeeItem struct {
	ID                   uint                 `gorm:"primaryKey" json:"id"`
	FeeConstructorID     uint                 `gorm:"not null;index" json:"fee_constructor_id"`
	FeePeriodID          uint                 `gorm:"not null;index" json:"fee_period_id"`
	VesselSizeCategoryID uint                 `gorm:"not null;index" json:"vessel_size_category_id"`
	ProposalTypeCode     *domain.ProposalType `gorm:"size:20" json:"proposal_type_code"`
	AgeGroupID           *uint                `json:"age_group_id"`
	AdmissionTypeID      *uint                `json:"admission_type_id"`
	Amount               decimal.Decimal      `gorm:"type:decimal(8,2);not null" json:"amount"`
	Incremental          bool                 `gorm:"default:false" json:"incremental"`
	CreatedAt            time.Time            `gorm:"autoCreateTime" json:"created_at"`

	FeeConstructor     *FeeConstructor     `gorm:"foreignKey:FeeConstructorID" json:"fee_constructor,omitempty"`
	FeePeriod          *FeePeriod          `gorm:"foreignKey:FeePeriodID" json:"fee_period,omitempty"`
	VesselSizeCategory *VesselSizeCategory `gorm:"foreignKey:VesselSizeCategoryID" json:"vessel_size_category,omitempty"`
}

func (FeeItem) TableName() string {
	return "fee_items"
}

// GetAbsoluteAmount converts the configured amount into the amount charged
// for a particular vessel. Incremental amounts are per-metre rates, rounded
// half-up to two places after multiplication.
func (fi *FeeItem) GetAbsoluteAmount(vesselLength decimal.Decimal) decimal.Decimal {
	if fi.Incremental && vesselLength.IsPositive() {
		return fi.Amount.Mul(vesselLength).Round(2)
	}
	return fi.Amount.Round(2)
}

// AgeGroup is reference data for DCV admission pricing.
type AgeGroup struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"size:20;uniqueIndex;not null" json:"code"`
}

func (AgeGroup) TableName() string {
	return "age_groups"
}

// AdmissionType is reference data for DCV admission pricing.
type AdmissionType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"size:20;uniqueIndex;not null" json:"code"`
}

func (AdmissionType) TableName() string {
	return "admission_types"
}

// ApplicationFee is one payment attempt for a proposal. At most one
// non-cancelled row may exist per proposal.
type ApplicationFee struct {
	ID               uint                 `gorm:"primaryKey" json:"id"`
	UUID             string               `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	ProposalID       uint                 `gorm:"not null;index" json:"proposal_id"`
	InvoiceReference string               `gorm:"size:50;index" json:"invoice_reference"`
	PaymentStatus    domain.PaymentStatus `gorm:"size:20;not null;default:'unpaid'" json:"payment_status"`
	CreatedAt        time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time            `gorm:"autoUpdateTime" json:"updated_at"`

	Proposal *Proposal               `gorm:"foreignKey:ProposalID" json:"proposal,omitempty"`
	FeeItems []FeeItemApplicationFee `gorm:"foreignKey:ApplicationFeeID" json:"fee_items,omitempty"`
}

func (ApplicationFee) TableName() string {
	return "application_fees"
}

// IsCancelled reports whether this payment attempt no longer counts toward
// the at-most-one-active-payment invariant.
func (af *ApplicationFee) IsCancelled() bool {
	return af.PaymentStatus == domain.PaymentCancelled
}

// FeeItemApplicationFee links a payment to the fee items it funds, per vessel.
type FeeItemApplicationFee struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	FeeItemID        uint             `gorm:"not null;index" json:"fee_item_id"`
	ApplicationFeeID uint             `gorm:"not null;index" json:"application_fee_id"`
	VesselDetailsID  *uint            `gorm:"index" json:"vessel_details_id"`
	AmountToBePaid   decimal.Decimal  `gorm:"type:decimal(8,2);not null" json:"amount_to_be_paid"`
	AmountPaid       *decimal.Decimal `gorm:"type:decimal(8,2)" json:"amount_paid"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`

	FeeItem        *FeeItem        `gorm:"foreignKey:FeeItemID" json:"fee_item,omitempty"`
	ApplicationFee *ApplicationFee `gorm:"foreignKey:ApplicationFeeID" json:"application_fee,omitempty"`
	VesselDetails  *VesselDetails  `gorm:"foreignKey:VesselDetailsID" json:"vessel_details,omitempty"`
}

func (FeeItemApplicationFee) TableName() string {
	return "fee_item_application_fees"
}

// FeeCalculation is an audit snapshot of a computed fee, keyed by the
// ApplicationFee uuid so a charge can be reconstructed later.
type FeeCalculation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      string    `gorm:"size:36;index;not null" json:"uuid"`
	Data      string    `gorm:"type:text" json:"data"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (FeeCalculation) TableName() string {
	return "fee_calculations"
}
