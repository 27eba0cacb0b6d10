package chain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Asset data errors
var (
	ErrAssetDataTooShort   = errors.New("asset data too short")
	ErrUnknownAssetProxyID = errors.New("unknown asset proxy id")
)

// AssetProxyID identifies which proxy can move an asset
type AssetProxyID [4]byte

// ERC20ProxyID is the selector of ERC20Token(address)
var ERC20ProxyID = func() AssetProxyID {
	var id AssetProxyID
	copy(id[:], assetProxyABI.Methods["ERC20Token"].ID)
	return id
}()

func (id AssetProxyID) String() string {
	return fmt.Sprintf("0x%x", id[:])
}

// EncodeERC20AssetData encodes the asset data for an ERC20 token
func EncodeERC20AssetData(token common.Address) []byte {
	data, err := assetProxyABI.Pack("ERC20Token", token)
	if err != nil {
		panic("failed to encode ERC20 asset data: " + err.Error())
	}
	return data
}

// DecodeERC20AssetData returns the token address encoded in ERC20 asset data
func DecodeERC20AssetData(assetData []byte) (common.Address, error) {
	id, err := GetAssetProxyID(assetData)
	if err != nil {
		return common.Address{}, err
	}
	if id != ERC20ProxyID {
		return common.Address{}, fmt.Errorf("%w: %s", ErrUnknownAssetProxyID, id)
	}
	args, err := assetProxyABI.Methods["ERC20Token"].Inputs.Unpack(assetData[4:])
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid ERC20 asset data: %w", err)
	}
	token, ok := args[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("invalid ERC20 asset data: unexpected %T", args[0])
	}
	return token, nil
}

// GetAssetProxyID returns the proxy id prefix of the asset data
func GetAssetProxyID(assetData []byte) (AssetProxyID, error) {
	var id AssetProxyID
	if len(assetData) < len(id) {
		return id, fmt.Errorf("%w: %d bytes", ErrAssetDataTooShort, len(assetData))
	}
	copy(id[:], assetData[:4])
	return id, nil
}
