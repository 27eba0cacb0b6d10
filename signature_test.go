package settlement

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaifufi/settlement-exchange-go/chain"
)

type staticWallet bool

func (w staticWallet) IsValidSignature(common.Hash, []byte) bool {
	return bool(w)
}

type staticValidator bool

func (v staticValidator) IsValidSignature(common.Hash, common.Address, []byte) bool {
	return bool(v)
}

func TestIsValidSignature(t *testing.T) {
	env := newTestEnv(t)
	ex := env.exchange

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	hash := crypto.Keccak256Hash([]byte("order"))

	sign := func(k *ecdsa.PrivateKey, sigType chain.SignatureType) []byte {
		sig, err := chain.SignHash(hash, k, sigType)
		require.NoError(t, err)
		return sig
	}

	goodWallet := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	badWallet := common.HexToAddress("0x00000000000000000000000000000000000000a2")
	ex.RegisterWallet(goodWallet, staticWallet(true))
	ex.RegisterWallet(badWallet, staticWallet(false))

	approvedValidator := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	unregisteredValidator := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	unapprovedValidator := common.HexToAddress("0x00000000000000000000000000000000000000b3")
	ex.RegisterSignatureValidator(approvedValidator, staticValidator(true))
	ex.RegisterSignatureValidator(unapprovedValidator, staticValidator(true))
	require.NoError(t, ex.SetSignatureValidatorApproval(signer, approvedValidator, true))
	require.NoError(t, ex.SetSignatureValidatorApproval(signer, unregisteredValidator, true))

	tests := []struct {
		name      string
		signer    common.Address
		signature []byte
		valid     bool
		code      *SignatureErrorCode
	}{
		{name: "eip712", signer: signer, signature: sign(key, chain.SignatureTypeEIP712), valid: true},
		{name: "eth sign", signer: signer, signature: sign(key, chain.SignatureTypeEthSign), valid: true},
		{name: "wrong signer", signer: signer, signature: sign(otherKey, chain.SignatureTypeEIP712)},
		{name: "invalid type", signer: signer, signature: []byte{byte(chain.SignatureTypeInvalid)}},
		{
			name:      "invalid type with body",
			signer:    signer,
			signature: []byte{1, 2, byte(chain.SignatureTypeInvalid)},
			code:      codePtr(SignatureErrorInvalidLength),
		},
		{
			name:      "illegal",
			signer:    signer,
			signature: []byte{byte(chain.SignatureTypeIllegal)},
			code:      codePtr(SignatureErrorIllegal),
		},
		{
			name:      "unsupported",
			signer:    signer,
			signature: []byte{byte(chain.NSignatureTypes)},
			code:      codePtr(SignatureErrorUnsupported),
		},
		{name: "empty", signer: signer, signature: nil, code: codePtr(SignatureErrorInvalidLength)},
		{
			name:      "short ecdsa",
			signer:    signer,
			signature: []byte{27, 1, 2, byte(chain.SignatureTypeEIP712)},
			code:      codePtr(SignatureErrorInvalidLength),
		},
		{
			name:      "zero signer",
			signature: sign(key, chain.SignatureTypeEIP712),
			code:      codePtr(SignatureErrorInvalidSigner),
		},
		{name: "wallet accepts", signer: goodWallet, signature: chain.WalletSignature([]byte{1}), valid: true},
		{name: "wallet rejects", signer: badWallet, signature: chain.WalletSignature([]byte{1})},
		{
			name:      "wallet not registered",
			signer:    signer,
			signature: chain.WalletSignature(nil),
			code:      codePtr(SignatureErrorWalletNotRegistered),
		},
		{
			name:      "validator",
			signer:    signer,
			signature: chain.ValidatorSignature(approvedValidator, []byte{1}),
			valid:     true,
		},
		{
			name:      "validator not approved",
			signer:    signer,
			signature: chain.ValidatorSignature(unapprovedValidator, nil),
			code:      codePtr(SignatureErrorValidatorNotApproved),
		},
		{
			name:      "validator not registered",
			signer:    signer,
			signature: chain.ValidatorSignature(unregisteredValidator, nil),
			code:      codePtr(SignatureErrorValidatorNotRegistered),
		},
		{
			name:      "validator too short",
			signer:    signer,
			signature: []byte{1, 2, byte(chain.SignatureTypeValidator)},
			code:      codePtr(SignatureErrorInvalidLength),
		},
		{name: "not pre-signed", signer: signer, signature: chain.PreSignedSignature()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := ex.IsValidSignature(hash, tt.signer, tt.signature)
			if tt.code != nil {
				var sigErr *SignatureError
				require.ErrorAs(t, err, &sigErr)
				assert.Equal(t, *tt.code, sigErr.Code)
				assert.ErrorIs(t, err, ErrBadSignature)
				assert.False(t, valid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.valid, valid)
		})
	}
}

func codePtr(c SignatureErrorCode) *SignatureErrorCode {
	return &c
}

func TestPreSign(t *testing.T) {
	env := newTestEnv(t)
	ex := env.exchange
	maker := env.maker.Address()
	order := env.order(t, nil)
	info, err := ex.GetOrderInfo(&order.Order)
	require.NoError(t, err)

	valid, err := ex.IsValidSignature(info.Hash, maker, chain.PreSignedSignature())
	require.NoError(t, err)
	assert.False(t, valid)

	require.NoError(t, ex.PreSign(maker, info.Hash, maker, nil))

	valid, err = ex.IsValidSignature(info.Hash, maker, chain.PreSignedSignature())
	require.NoError(t, err)
	assert.True(t, valid)

	// Pre-signing only covers its signer
	valid, err = ex.IsValidSignature(info.Hash, env.taker.Address(), chain.PreSignedSignature())
	require.NoError(t, err)
	assert.False(t, valid)

	// A pre-signed order fills without an ECDSA signature
	_, err = ex.FillOrder(env.taker.Address(), &order.Order, order.TakerAssetAmount, chain.PreSignedSignature())
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFullyFilled, env.status(t, &order.Order))
}

func TestPreSignOnBehalf(t *testing.T) {
	env := newTestEnv(t)
	ex := env.exchange
	maker := env.maker.Address()
	order := env.order(t, nil)
	info, err := ex.GetOrderInfo(&order.Order)
	require.NoError(t, err)

	// A third party needs the signer's signature over the hash
	err = ex.PreSign(testRelayer, info.Hash, maker, chain.PreSignedSignature())
	assert.ErrorIs(t, err, ErrBadSignature)

	takerSig, err := env.taker.SignOrder(&order.Order, chain.SignatureTypeEIP712)
	require.NoError(t, err)
	err = ex.PreSign(testRelayer, info.Hash, maker, takerSig)
	var sigErr *SignatureError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, SignatureErrorBadSignature, sigErr.Code)

	require.NoError(t, ex.PreSign(testRelayer, info.Hash, maker, order.Signature))
	valid, err := ex.IsValidSignature(info.Hash, maker, chain.PreSignedSignature())
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestSetSignatureValidatorApproval(t *testing.T) {
	env := newTestEnv(t)
	maker := env.maker.Address()
	validator := common.HexToAddress("0x00000000000000000000000000000000000000b1")

	require.NoError(t, env.exchange.SetSignatureValidatorApproval(maker, validator, true))
	approved, err := env.exchange.IsValidatorApproved(maker, validator)
	require.NoError(t, err)
	assert.True(t, approved)

	require.NoError(t, env.exchange.SetSignatureValidatorApproval(maker, validator, false))
	approved, err = env.exchange.IsValidatorApproved(maker, validator)
	require.NoError(t, err)
	assert.False(t, approved)
}
