package accountstore

import (
	"github.com/google/uuid"
)

//nolint:gochecknoglobals // Test fixtures
var (
	ethAssetUUID = uuid.MustParse("356a192b-7913-504c-9457-4d18c28d46e6")
	repAssetUUID = uuid.MustParse("9d5c7b2e-9f0e-5a43-8b9d-1c3c8a4b6f70")
)

func testTransaction() TxReceipt {
	return TxReceipt{
		ChainID:  3,
		Data:     "0x",
		Nonce:    "0x9",
		To:       "0x909f74Ffdc223586d0d30E78016E707B6F5a45E2",
		GasLimit: "21000",
		GasPrice: "4000000000",
		Value:    "1000000000000000",
	}
}

func testAccounts() []Account {
	return []Account{
		{
			UUID:      uuid.MustParse("4ffb0d4a-adf3-1990-5eb9-fe78e794f1aa"),
			Label:     "WalletConnect Account 1",
			Address:   "0xfE5443FaC29fA621cFc33D41D1927fd0f5E0bB7c",
			NetworkID: "Ropsten",
			DPath:     "m/44'/60'/0'/0/0",
			Assets: []AssetBalance{
				{UUID: ethAssetUUID, Balance: "1000000000000000000", MTime: 1581530607024},
			},
			Transactions: []TxReceipt{},
		},
		{
			UUID:      uuid.MustParse("4be38596-5d9c-5c01-8e04-19d1c726fe24"),
			Label:     "Ledger Account 2",
			Address:   "0x82D69476357A03415E92B5780C89e5E9e972Ce75",
			NetworkID: "Ropsten",
			DPath:     "m/44'/60'/0'/0/1",
			Assets: []AssetBalance{
				{UUID: ethAssetUUID, Balance: "0", MTime: 1581530607024},
			},
			Transactions: []TxReceipt{},
		},
	}
}

type staticActive []uuid.UUID

func (s staticActive) ActiveAccountIDs() []uuid.UUID {
	return s
}
