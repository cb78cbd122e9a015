package ingestion

import "testing"

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		chain   string
		addr    string
		wantErr bool
	}{
		{
			name:  "valid solana pubkey",
			chain: ChainSolana,
			addr:  "So11111111111111111111111111111111111111112",
		},
		{
			name:    "solana empty",
			chain:   ChainSolana,
			addr:    "",
			wantErr: true,
		},
		{
			name:    "solana not base58",
			chain:   ChainSolana,
			addr:    "not-a-valid-address!!!",
			wantErr: true,
		},
		{
			name:    "solana too short",
			chain:   ChainSolana,
			addr:    "abc",
			wantErr: true,
		},
		{
			name:  "valid evm address",
			chain: ChainEVM,
			addr:  "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D",
		},
		{
			name:    "evm missing prefix",
			chain:   ChainEVM,
			addr:    "7a250d5630B4cF539739dF2C5dAcb4c659F2488D",
			wantErr: true,
		},
		{
			name:    "evm wrong length",
			chain:   ChainEVM,
			addr:    "0x7a250d",
			wantErr: true,
		},
		{
			name:    "evm non-hex character",
			chain:   ChainEVM,
			addr:    "0xzz250d5630B4cF539739dF2C5dAcb4c659F2488D",
			wantErr: true,
		},
		{
			name:    "unknown chain",
			chain:   "cosmos",
			addr:    "whatever",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.chain, tt.addr)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
