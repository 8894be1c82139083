package errors

import "errors"

var (
	ErrInvalidDeposit       = errors.New("deposit amount and unit supply must be positive")
	ErrNotDepositAuthority  = errors.New("caller is not the deposit authority")
	ErrNoEligibleHolding    = errors.New("holder has no units to withdraw against")
	ErrNothingToWithdraw    = errors.New("no withdrawable balance accrued")
	ErrInsufficientCustody  = errors.New("custody balance is below the withdrawable amount")
	ErrIndexOutOfRange      = errors.New("distribution record index out of range")
	ErrTransferFailed       = errors.New("currency payout could not be delivered")
	ErrWithdrawalInProgress = errors.New("a withdrawal is already in progress for this holder")
	ErrOutboxNotFound       = errors.New("outbox message not found")
)
