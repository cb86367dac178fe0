package synth

import (
	"errors"
	"math/big"
	"strings"

	"ogxd/crypto"
)

var (
	errInvalidAmount       = errors.New("synth: amount must be positive")
	errInsufficientBalance = errors.New("synth: insufficient balance")
)

// Token is the minimal mint/burn token backing a single synth. Balances are
// standard-tier decimals. The debt core is the only component permitted to
// mint or burn; transfers between holders are out of scope here.
type Token struct {
	currencyKey string
	name        string
	totalSupply *big.Int
	balances    map[string]*big.Int
}

// NewToken constructs an empty synth token for the currency key.
func NewToken(currencyKey, name string) *Token {
	return &Token{
		currencyKey: strings.TrimSpace(currencyKey),
		name:        strings.TrimSpace(name),
		totalSupply: big.NewInt(0),
		balances:    make(map[string]*big.Int),
	}
}

// CurrencyKey returns the synth's currency identifier (e.g. "oUSD").
func (t *Token) CurrencyKey() string { return t.currencyKey }

// Name returns the synth's display name.
func (t *Token) Name() string { return t.name }

// TotalSupply returns the outstanding supply.
func (t *Token) TotalSupply() *big.Int {
	return new(big.Int).Set(t.totalSupply)
}

// BalanceOf returns the account's balance.
func (t *Token) BalanceOf(account crypto.Address) *big.Int {
	if balance, ok := t.balances[balanceKey(account)]; ok {
		return new(big.Int).Set(balance)
	}
	return big.NewInt(0)
}

// Issue mints amount to the account.
func (t *Token) Issue(account crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	key := balanceKey(account)
	balance, ok := t.balances[key]
	if !ok {
		balance = big.NewInt(0)
	}
	t.balances[key] = new(big.Int).Add(balance, amount)
	t.totalSupply = new(big.Int).Add(t.totalSupply, amount)
	return nil
}

// Burn destroys amount from the account's balance.
func (t *Token) Burn(account crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	key := balanceKey(account)
	balance, ok := t.balances[key]
	if !ok || balance.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	t.balances[key] = new(big.Int).Sub(balance, amount)
	t.totalSupply = new(big.Int).Sub(t.totalSupply, amount)
	return nil
}

func balanceKey(account crypto.Address) string {
	return string(account.Bytes())
}
