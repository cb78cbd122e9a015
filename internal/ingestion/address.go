package ingestion

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const solanaPubkeyLen = 32

// ValidateAddress checks that addr is well-formed for the given chain.
// Solana addresses are base58-encoded 32-byte public keys; EVM
// addresses are 0x-prefixed 20-byte hex strings.
func ValidateAddress(chain, addr string) error {
	switch chain {
	case ChainSolana:
		return validateSolanaAddress(addr)
	case ChainEVM:
		return validateEVMAddress(addr)
	default:
		return fmt.Errorf("unknown chain %q", chain)
	}
}

func validateSolanaAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("empty address")
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode base58 address: %w", err)
	}
	if len(decoded) != solanaPubkeyLen {
		return fmt.Errorf("address decodes to %d bytes, want %d", len(decoded), solanaPubkeyLen)
	}
	return nil
}

func validateEVMAddress(addr string) error {
	if !strings.HasPrefix(addr, "0x") {
		return fmt.Errorf("address missing 0x prefix")
	}
	hexPart := addr[2:]
	if len(hexPart) != 40 {
		return fmt.Errorf("address has %d hex chars, want 40", len(hexPart))
	}
	for _, c := range hexPart {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return fmt.Errorf("address contains non-hex character %q", c)
		}
	}
	return nil
}
