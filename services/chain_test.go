package services

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quest-widget-system/progression"
)

func TestRecoverSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	expected := crypto.PubkeyToAddress(key.PublicKey)

	message := "quest-widget test message"
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)

	// go-ethereum produces V as 0/1; browser wallets send 27/28. Both must
	// recover the same address.
	got, err := RecoverSigner(message, "0x"+hex.EncodeToString(sig))
	require.NoError(t, err)
	assert.Equal(t, expected, got)

	walletSig := append([]byte(nil), sig...)
	walletSig[64] += 27
	got, err = RecoverSigner(message, "0x"+hex.EncodeToString(walletSig))
	require.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestRecoverSigner_BadSignature(t *testing.T) {
	_, err := RecoverSigner("hello", "0xdeadbeef")
	assert.Error(t, err)

	_, err = RecoverSigner("hello", "")
	assert.Error(t, err)
}

func TestRecoverSigner_ChallengeMessage(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	ch := progression.BuildChallenge(addr.Hex(), "proj-1", "task-1", 1, time.Now())
	sig, err := crypto.Sign(accounts.TextHash([]byte(ch.String())), key)
	require.NoError(t, err)

	got, err := RecoverSigner(ch.String(), "0x"+hex.EncodeToString(sig))
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	// tampering with the signed message changes the recovered address
	got, err = RecoverSigner(ch.String()+"x", "0x"+hex.EncodeToString(sig))
	if err == nil {
		assert.NotEqual(t, addr, got)
	}
}
