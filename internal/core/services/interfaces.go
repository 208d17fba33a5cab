package services

import (
	"context"
	"time"

	"mooringhub/internal/adapters/persistence/models"

	"github.com/shopspring/decimal"
)

// LineItem is one charge line sent to the payment gateway.
type LineItem struct {
	Description    string          `json:"description"`
	AccountingCode string          `json:"accounting_code"`
	PriceInclTax   decimal.Decimal `json:"price_incl_tax"`
	PriceExclTax   decimal.Decimal `json:"price_excl_tax"`
	Quantity       int             `json:"quantity"`
}

// Total sums the tax-inclusive prices of a set of line items.
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.PriceInclTax.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// PaymentGateway is the external payment/invoicing system. Invoice creation
// participates in the awaiting-payment transaction; status checks and
// cancellation are called from the payment callback and batch jobs.
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, lineItems []LineItem, payerID uint, dueDate time.Time) (string, error)
	GetPaymentStatus(ctx context.Context, invoiceReference string) (string, error)
	CancelInvoice(ctx context.Context, invoiceReference string) error
}

// DocumentGenerator renders licence and summary documents for an approval.
type DocumentGenerator interface {
	GenerateLicenceDocument(ctx context.Context, approval *models.Approval) (string, error)
	GenerateSummaryDocument(ctx context.Context, approval *models.Approval) (string, error)
}

// Notifier delivers templated notifications. Failures are logged, never
// propagated into the calling transaction.
type Notifier interface {
	Notify(ctx context.Context, templateKey string, recipients []string, templateContext map[string]interface{}) error
}

// IdentityDirectory answers group membership and user lookups.
type IdentityDirectory interface {
	IsMember(ctx context.Context, userID uint, groupName string) (bool, error)
	ResolveUser(ctx context.Context, userID uint) (*models.User, error)
}
