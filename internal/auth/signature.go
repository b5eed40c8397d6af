package auth

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrBadSignature = errors.New("signature does not match wallet")

// VerifySignature checks that sigHex is a valid personal_sign signature of
// message by the given wallet address. Wallets emit the recovery byte as
// 27/28; go-ethereum expects 0/1.
func VerifySignature(wallet, message, sigHex string) error {
	if !common.IsHexAddress(wallet) {
		return errors.New("invalid wallet address")
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return errors.New("signature is not valid hex")
	}
	if len(sig) != crypto.SignatureLength {
		return errors.New("signature has wrong length")
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := accounts.TextHash([]byte(message))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return ErrBadSignature
	}
	recovered := crypto.PubkeyToAddress(*pub)
	if recovered != common.HexToAddress(wallet) {
		return ErrBadSignature
	}
	return nil
}
