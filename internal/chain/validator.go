package chain

import (
	"fmt"
	"regexp"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// tronAddressPrefix is the version byte of mainnet TRON addresses
// (base58check addresses starting with "T").
const tronAddressPrefix = 0x41

// solanaKeyBytes is the length of an ed25519 public key.
const solanaKeyBytes = 32

var evmAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Validate checks an address string against the encoding rules of the
// family the given network belongs to. It returns whether the address is
// structurally valid and a human-oriented reason. Validate never errors:
// addresses on unrecognized networks are accepted with a caveat reason.
func Validate(address, network string) (bool, string) {
	switch Classify(network) {
	case FamilyEVM:
		return validateEVM(address)
	case FamilyTron:
		return validateTron(address)
	case FamilySolana:
		return validateSolana(address)
	default:
		return true, "format not verified"
	}
}

func validateEVM(address string) (bool, string) {
	if !evmAddressPattern.MatchString(address) {
		return false, "invalid EVM address: must start with 0x and be 42 characters"
	}
	return true, "valid EVM address"
}

func validateTron(address string) (bool, string) {
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		if err == base58.ErrChecksum {
			return false, "invalid TRON address: base58check checksum mismatch"
		}
		return false, "invalid TRON address: not a valid base58check string"
	}
	// CheckDecode strips the version byte; a TRON address is 21 decoded
	// bytes total with version 0x41.
	if version != tronAddressPrefix || len(payload) != 20 {
		return false, fmt.Sprintf(
			"invalid TRON address: decoded to %d bytes with prefix 0x%02x, want 21 bytes starting 0x41",
			len(payload)+1, version)
	}
	return true, "valid TRON address"
}

func validateSolana(address string) (bool, string) {
	decoded := base58.Decode(address)
	if len(decoded) == 0 {
		return false, "invalid Solana address: not a valid base58 string"
	}
	if len(decoded) != solanaKeyBytes {
		return false, fmt.Sprintf(
			"invalid Solana address: decodes to %d bytes, want %d", len(decoded), solanaKeyBytes)
	}
	return true, "valid Solana address"
}
