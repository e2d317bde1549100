package store_test

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/warp/wallet-engine/ledger"
	"github.com/warp/wallet-engine/ledger/store"
	"github.com/warp/wallet-engine/ledger/storetest"
)

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &storetest.Suite{
		NewStore: func(t *testing.T) ledger.TxStore { return store.NewTxMemory() },
	})
}
