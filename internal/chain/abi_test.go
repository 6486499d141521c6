package chain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

func mustABI(t *testing.T, raw string) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("解析ABI失败: %v", err)
	}
	return parsed
}

func TestAuctionABIParses(t *testing.T) {
	parsed := mustABI(t, AuctionABI)

	for _, name := range []string{
		"getAuctionById",
		"s_currentAuctionId",
		"s_currentHighestBid",
		"s_currentWinner",
		"getWithdrawableAmountByBidderAddress",
		"getUnsoldNFTPrice",
		"getIsTokenListed",
		"getListOfBids",
		"placeBid",
		"placeBidNonPayable",
		"withdrawBid",
		"buyUnsoldNFT",
		"buyUnsoldNFTNonPayable",
		"startAuction",
		"closeAuction",
	} {
		if _, ok := parsed.Methods[name]; !ok {
			t.Errorf("ABI缺少方法 %s", name)
		}
	}
}

func TestNFTABIParses(t *testing.T) {
	parsed := mustABI(t, NFTABI)
	for _, name := range []string{"getOwnedNFTsArray", "tokenURI"} {
		if _, ok := parsed.Methods[name]; !ok {
			t.Errorf("ABI缺少方法 %s", name)
		}
	}
}

func TestPayableSplit(t *testing.T) {
	parsed := mustABI(t, AuctionABI)

	// payable / non-payable 成对入口必须保持各自的状态可变性
	if !parsed.Methods["placeBid"].Payable {
		t.Error("placeBid 应该是 payable")
	}
	if parsed.Methods["placeBidNonPayable"].Payable {
		t.Error("placeBidNonPayable 不应该是 payable")
	}
	if !parsed.Methods["buyUnsoldNFT"].Payable {
		t.Error("buyUnsoldNFT 应该是 payable")
	}
	if parsed.Methods["buyUnsoldNFTNonPayable"].Payable {
		t.Error("buyUnsoldNFTNonPayable 不应该是 payable")
	}
}

func TestPackBidCalls(t *testing.T) {
	parsed := mustABI(t, AuctionABI)

	// payable 入口不带参数
	if _, err := parsed.Pack("placeBid"); err != nil {
		t.Fatalf("打包placeBid失败: %v", err)
	}
	// non-payable 入口以出价金额为参数
	amount := new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18))
	if _, err := parsed.Pack("placeBidNonPayable", amount); err != nil {
		t.Fatalf("打包placeBidNonPayable失败: %v", err)
	}
	if _, err := parsed.Pack("withdrawBid", amount); err != nil {
		t.Fatalf("打包withdrawBid失败: %v", err)
	}
	if _, err := parsed.Pack("getWithdrawableAmountByBidderAddress",
		common.HexToAddress("0xa11ce00000000000000000000000000000000000")); err != nil {
		t.Fatalf("打包getWithdrawableAmountByBidderAddress失败: %v", err)
	}
}

func TestUnpackAuctionTuple(t *testing.T) {
	parsed := mustABI(t, AuctionABI)
	method := parsed.Methods["getAuctionById"]

	packed, err := method.Outputs.Pack(struct {
		AuctionId           *big.Int
		NftId               *big.Int
		OpeningTimestamp    *big.Int
		ClosingTimestamp    *big.Int
		StartingPrice       *big.Int
		MinimumBidIncrement *big.Int
		IsOpen              bool
	}{
		AuctionId:           big.NewInt(7),
		NftId:               big.NewInt(3),
		OpeningTimestamp:    big.NewInt(1_700_000_000),
		ClosingTimestamp:    big.NewInt(1_700_086_400),
		StartingPrice:       big.NewInt(1e18),
		MinimumBidIncrement: big.NewInt(5e17),
		IsOpen:              true,
	})
	if err != nil {
		t.Fatalf("打包返回值失败: %v", err)
	}

	var raw rawAuction
	if err := parsed.UnpackIntoInterface(&raw, "getAuctionById", packed); err != nil {
		t.Fatalf("解析getAuctionById结果失败: %v", err)
	}
	if raw.AuctionId.Uint64() != 7 || raw.NftId.Uint64() != 3 {
		t.Errorf("拍卖ID解析错误: auctionId=%v nftId=%v", raw.AuctionId, raw.NftId)
	}
	if !raw.IsOpen {
		t.Error("isOpen 解析错误")
	}
	if raw.MinimumBidIncrement.Cmp(big.NewInt(5e17)) != 0 {
		t.Errorf("最低加价幅度解析错误: %v", raw.MinimumBidIncrement)
	}
}
