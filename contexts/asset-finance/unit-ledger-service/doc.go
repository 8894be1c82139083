// Package unitledgerservice implements the fungible-unit ledger for a
// fractionalized asset: balances, total supply, transfers,
// transfer-on-behalf allowances, and privileged minting.
//
// Every balance-affecting operation invokes the registered pre-transfer
// observer synchronously with pre-mutation balances before any balance
// commits; operations fail outright while no observer is registered.
package unitledgerservice
