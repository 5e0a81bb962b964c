package service

import "github.com/google/uuid"

// Change notice names published after a commit
const (
	NoticeSaleCreated      = "sale.created"
	NoticeSaleVoided       = "sale.voided"
	NoticePaymentCreated   = "payment.created"
	NoticeStockAppended    = "stock.appended"
	NoticeApprovalCreated  = "approval.created"
	NoticeApprovalReviewed = "approval.reviewed"
	NoticeSyncPushed       = "sync.pushed"
	NoticeCustomerSaved    = "customer.saved"
)

// Notifier announces committed changes to connected terminals. A nil storeID
// addresses every terminal. Implementations must not block.
type Notifier interface {
	Notify(event string, storeID *uuid.UUID)
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, *uuid.UUID) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
