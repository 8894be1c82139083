package errors

import "errors"

var (
	ErrInvalidTransfer       = errors.New("transfer parties and amount are invalid")
	ErrInsufficientUnits     = errors.New("holder balance is below the transfer amount")
	ErrAllowanceExceeded     = errors.New("spender allowance is below the transfer amount")
	ErrInvalidMint           = errors.New("mint recipient and amount are invalid")
	ErrNotMintAuthority      = errors.New("caller is not the mint authority")
	ErrObserverNotRegistered = errors.New("no pre-transfer observer is registered")
)
